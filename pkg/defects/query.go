package defects

import (
	"strconv"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/policy"
)

// Pagination bounds for the listing path
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter holds the recognized defect filters. All are optional and
// conjunctive. Q is matched case-insensitively as a substring against
// title OR description.
type Filter struct {
	Status     string
	Priority   string
	ProjectID  string
	AssigneeID string
	Q          string
}

// Sort columns accepted by the composer
const (
	SortCreatedAt = "created_at"
	SortDueDate   = "due_date"
)

// Sort describes the requested ordering
type Sort struct {
	By  string // created_at | due_date; empty means created_at
	Asc bool   // default is descending
}

// PageRequest is raw limit/offset input as received from the transport.
// Non-numeric or missing values fall back to defaults rather than erroring.
type PageRequest struct {
	Limit  string
	Offset string
}

// Op is a predicate operator
type Op string

const (
	// OpEq is an exact match on a single column
	OpEq Op = "eq"
	// OpTextSearch is a case-insensitive substring match over title OR description
	OpTextSearch Op = "text_search"
)

// Predicate is one conjunctive condition of a composed query
type Predicate struct {
	Column string
	Op     Op
	Value  interface{}
}

// Query is the composed predicate/ordering/pagination descriptor consumed
// by the persistence layer. Limit == 0 means unpaginated (the export path).
type Query struct {
	Predicates []Predicate
	OrderBy    string
	OrderDesc  bool
	Limit      int
	Offset     int
}

// Paginated reports whether the query carries a limit
func (q Query) Paginated() bool { return q.Limit > 0 }

// BuildQuery validates the filters and sort and composes the shared query
// descriptor. The same construction serves both the paginated listing path
// (page != nil) and the export path (page == nil); only limit/offset differ.
// Invalid enum values fail before any predicate is built.
func BuildQuery(filter Filter, sort Sort, page *PageRequest) (Query, error) {
	if filter.Status != "" && !policy.ValidStatus(filter.Status) {
		return Query{}, apperr.Newf(apperr.KindValidation, "invalid status filter %q", filter.Status)
	}
	if filter.Priority != "" && !ValidPriority(filter.Priority) {
		return Query{}, apperr.Newf(apperr.KindValidation, "invalid priority filter %q", filter.Priority)
	}
	orderBy, err := sortColumn(sort.By)
	if err != nil {
		return Query{}, err
	}

	q := Query{
		OrderBy:   orderBy,
		OrderDesc: !sort.Asc,
	}

	if filter.Status != "" {
		q.Predicates = append(q.Predicates, Predicate{Column: "status", Op: OpEq, Value: filter.Status})
	}
	if filter.Priority != "" {
		q.Predicates = append(q.Predicates, Predicate{Column: "priority", Op: OpEq, Value: filter.Priority})
	}
	if filter.ProjectID != "" {
		q.Predicates = append(q.Predicates, Predicate{Column: "project_id", Op: OpEq, Value: filter.ProjectID})
	}
	if filter.AssigneeID != "" {
		q.Predicates = append(q.Predicates, Predicate{Column: "assignee_id", Op: OpEq, Value: filter.AssigneeID})
	}
	if filter.Q != "" {
		q.Predicates = append(q.Predicates, Predicate{Op: OpTextSearch, Value: filter.Q})
	}

	if page != nil {
		q.Limit = clampLimit(page.Limit)
		q.Offset = clampOffset(page.Offset)
	}

	return q, nil
}

func sortColumn(by string) (string, error) {
	switch by {
	case "", SortCreatedAt:
		return SortCreatedAt, nil
	case SortDueDate:
		return SortDueDate, nil
	default:
		return "", apperr.Newf(apperr.KindValidation, "invalid sort field %q", by)
	}
}

// clampLimit parses a raw limit into [1, MaxLimit], defaulting on garbage
func clampLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}

// clampOffset parses a raw offset into [0, ∞), defaulting on garbage
func clampOffset(raw string) int {
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
