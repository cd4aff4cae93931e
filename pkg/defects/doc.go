// Package defects implements the defect tracking domain: the defect entity
// with its lifecycle status, comments, file attachments, the shared
// filter/sort/pagination query composer, and the export adapter.
//
// Authorization lives in pkg/policy; this package looks up whatever the
// policy tables need (resource owner, current status) and then consults
// them. The query composer is deliberately the single code path behind both
// the paginated listing endpoint and the unpaginated export: the two must
// never be able to disagree about which rows match.
package defects
