package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/snagtrack/snag/pkg/stats"
)

// Summary implements stats.Store. Counts are computed in a single query
// over the scoped defect set; lead time averages closed_at - created_at
// for defects closed in the period.
func (s *Store) Summary(ctx context.Context, f stats.Filter) (*stats.Summary, error) {
	var conds []string
	var args []interface{}

	add := func(cond string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ProjectID != "" {
		add("project_id = $%d", f.ProjectID)
	}
	if f.AssigneeID != "" {
		add("assignee_id = $%d", f.AssigneeID)
	}

	scope := ""
	if len(conds) > 0 {
		scope = " AND " + strings.Join(conds, " AND ")
	}

	createdRange := ""
	closedRange := ""
	if f.From != nil {
		args = append(args, *f.From)
		createdRange += fmt.Sprintf(" AND created_at >= $%d", len(args))
		closedRange += fmt.Sprintf(" AND closed_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		createdRange += fmt.Sprintf(" AND created_at <= $%d", len(args))
		closedRange += fmt.Sprintf(" AND closed_at <= $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE TRUE%[1]s%[2]s) AS created,
			COUNT(*) FILTER (WHERE status = 'closed' AND closed_at IS NOT NULL%[1]s%[3]s) AS closed_in_period,
			COUNT(*) FILTER (WHERE status NOT IN ('closed', 'canceled')%[1]s) AS open_now,
			AVG(EXTRACT(EPOCH FROM closed_at - created_at)) FILTER (WHERE status = 'closed' AND closed_at IS NOT NULL%[1]s%[3]s) AS avg_lead_time
		FROM defects
	`, scope, createdRange, closedRange)

	var summary stats.Summary
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&summary.Created, &summary.ClosedInPeriod, &summary.OpenNow, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	if avg.Valid {
		summary.AvgLeadTimeSec = &avg.Float64
	}
	return &summary, nil
}

func scopeConds(scope stats.Scope, args *[]interface{}) string {
	out := ""
	if scope.ProjectID != "" {
		*args = append(*args, scope.ProjectID)
		out += fmt.Sprintf(" AND project_id = $%d", len(*args))
	}
	if scope.AssigneeID != "" {
		*args = append(*args, scope.AssigneeID)
		out += fmt.Sprintf(" AND assignee_id = $%d", len(*args))
	}
	return out
}

// StatusDistribution implements stats.Store
func (s *Store) StatusDistribution(ctx context.Context, scope stats.Scope) ([]stats.StatusCount, error) {
	var args []interface{}
	query := fmt.Sprintf(`
		SELECT status, COUNT(*) FROM defects
		WHERE TRUE%s
		GROUP BY status ORDER BY status
	`, scopeConds(scope, &args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute status distribution: %w", err)
	}
	defer rows.Close()

	var out []stats.StatusCount
	for rows.Next() {
		var sc stats.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Trend implements stats.Store. The day series is generated in SQL so
// days without activity still appear with zero counts. Closures are
// attributed to closed_at.
func (s *Store) Trend(ctx context.Context, days int, scope stats.Scope) ([]stats.TrendPoint, error) {
	args := []interface{}{days}
	scoped := scopeConds(scope, &args)

	query := fmt.Sprintf(`
		WITH days AS (
			SELECT generate_series((CURRENT_DATE - $1 * INTERVAL '1 day')::date, CURRENT_DATE, '1 day')::date AS day
		),
		created AS (
			SELECT created_at::date AS day, COUNT(*) AS cnt FROM defects
			WHERE created_at >= CURRENT_DATE - $1 * INTERVAL '1 day'%[1]s
			GROUP BY created_at::date
		),
		closed AS (
			SELECT closed_at::date AS day, COUNT(*) AS cnt FROM defects
			WHERE status = 'closed' AND closed_at >= CURRENT_DATE - $1 * INTERVAL '1 day'%[1]s
			GROUP BY closed_at::date
		)
		SELECT days.day::text, COALESCE(created.cnt, 0), COALESCE(closed.cnt, 0)
		FROM days
		LEFT JOIN created ON created.day = days.day
		LEFT JOIN closed ON closed.day = days.day
		ORDER BY days.day ASC
	`, scoped)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trend: %w", err)
	}
	defer rows.Close()

	var out []stats.TrendPoint
	for rows.Next() {
		var p stats.TrendPoint
		if err := rows.Scan(&p.Day, &p.Created, &p.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ByProject implements stats.Store
func (s *Store) ByProject(ctx context.Context) ([]stats.ProjectTotals, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name,
			COUNT(d.id) AS total,
			COUNT(d.id) FILTER (WHERE d.status = 'closed') AS closed
		FROM projects p
		LEFT JOIN defects d ON d.project_id = p.id
		GROUP BY p.id, p.name
		ORDER BY total DESC, p.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute project totals: %w", err)
	}
	defer rows.Close()

	var out []stats.ProjectTotals
	for rows.Next() {
		var pt stats.ProjectTotals
		if err := rows.Scan(&pt.ProjectID, &pt.Name, &pt.Total, &pt.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan project totals: %w", err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}

// Aging implements stats.Store. Only non-terminal defects are bucketed.
func (s *Store) Aging(ctx context.Context, projectID string) (*stats.AgingBuckets, error) {
	var args []interface{}
	scoped := ""
	if projectID != "" {
		args = append(args, projectID)
		scoped = " AND project_id = $1"
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE CURRENT_DATE - created_at::date <= 2),
			COUNT(*) FILTER (WHERE CURRENT_DATE - created_at::date BETWEEN 3 AND 7),
			COUNT(*) FILTER (WHERE CURRENT_DATE - created_at::date BETWEEN 8 AND 14),
			COUNT(*) FILTER (WHERE CURRENT_DATE - created_at::date >= 15)
		FROM defects
		WHERE status NOT IN ('closed', 'canceled')%s
	`, scoped)

	var b stats.AgingBuckets
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&b.UpTo2Days, &b.Days3To7, &b.Days8To14, &b.Over2Wks)
	if err != nil {
		return nil, fmt.Errorf("failed to compute aging buckets: %w", err)
	}
	return &b, nil
}

// LeadTime implements stats.Store. Percentiles are computed over
// closed_at - created_at for defects closed in the period.
func (s *Store) LeadTime(ctx context.Context, f stats.Filter) (*stats.LeadTimePercentiles, error) {
	var args []interface{}
	scoped := scopeConds(stats.Scope{ProjectID: f.ProjectID, AssigneeID: f.AssigneeID}, &args)
	if f.From != nil {
		args = append(args, *f.From)
		scoped += fmt.Sprintf(" AND closed_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		scoped += fmt.Sprintf(" AND closed_at <= $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT
			PERCENTILE_CONT(0.50) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM closed_at - created_at)),
			PERCENTILE_CONT(0.75) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM closed_at - created_at)),
			PERCENTILE_CONT(0.90) WITHIN GROUP (ORDER BY EXTRACT(EPOCH FROM closed_at - created_at))
		FROM defects
		WHERE status = 'closed' AND closed_at IS NOT NULL%s
	`, scoped)

	var p50, p75, p90 sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p50, &p75, &p90)
	if err != nil {
		return nil, fmt.Errorf("failed to compute lead time percentiles: %w", err)
	}

	var out stats.LeadTimePercentiles
	if p50.Valid {
		out.P50 = &p50.Float64
	}
	if p75.Valid {
		out.P75 = &p75.Float64
	}
	if p90.Valid {
		out.P90 = &p90.Float64
	}
	return &out, nil
}
