// Package stats computes defect reporting aggregates: the KPI summary,
// status distribution, daily created-vs-closed trend, per-project
// totals, aging buckets and lead time percentiles.
package stats
