package defects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/apperr"
)

func TestBuildQueryDefaults(t *testing.T) {
	q, err := BuildQuery(Filter{}, Sort{}, &PageRequest{})
	require.NoError(t, err)

	assert.Empty(t, q.Predicates)
	assert.Equal(t, SortCreatedAt, q.OrderBy)
	assert.True(t, q.OrderDesc)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.True(t, q.Paginated())
}

func TestBuildQueryPredicates(t *testing.T) {
	q, err := BuildQuery(Filter{
		Status:     "in_work",
		Priority:   "high",
		ProjectID:  "p1",
		AssigneeID: "u1",
		Q:          "leak",
	}, Sort{By: SortDueDate, Asc: true}, &PageRequest{Limit: "50", Offset: "10"})
	require.NoError(t, err)

	require.Len(t, q.Predicates, 5)
	assert.Equal(t, Predicate{Column: "status", Op: OpEq, Value: "in_work"}, q.Predicates[0])
	assert.Equal(t, Predicate{Column: "priority", Op: OpEq, Value: "high"}, q.Predicates[1])
	assert.Equal(t, Predicate{Column: "project_id", Op: OpEq, Value: "p1"}, q.Predicates[2])
	assert.Equal(t, Predicate{Column: "assignee_id", Op: OpEq, Value: "u1"}, q.Predicates[3])
	assert.Equal(t, Predicate{Op: OpTextSearch, Value: "leak"}, q.Predicates[4])

	assert.Equal(t, SortDueDate, q.OrderBy)
	assert.False(t, q.OrderDesc)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, 10, q.Offset)
}

func TestBuildQueryInvalidEnums(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		sort   Sort
	}{
		{"unknown status", Filter{Status: "open"}, Sort{}},
		{"unknown priority", Filter{Priority: "urgent"}, Sort{}},
		{"unknown sort field", Filter{}, Sort{By: "title"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildQuery(tt.filter, tt.sort, &PageRequest{})
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestBuildQueryExportPath(t *testing.T) {
	// page == nil is the export path: same predicates, no pagination.
	filter := Filter{Status: "closed", Q: "crash"}
	sort := Sort{By: SortCreatedAt}

	listed, err := BuildQuery(filter, sort, &PageRequest{Limit: "5"})
	require.NoError(t, err)
	exported, err := BuildQuery(filter, sort, nil)
	require.NoError(t, err)

	assert.Equal(t, listed.Predicates, exported.Predicates)
	assert.Equal(t, listed.OrderBy, exported.OrderBy)
	assert.Equal(t, listed.OrderDesc, exported.OrderDesc)
	assert.Equal(t, 0, exported.Limit)
	assert.False(t, exported.Paginated())
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultLimit},
		{"garbage", DefaultLimit},
		{"0", DefaultLimit},
		{"-5", 1},
		{"1", 1},
		{"100", 100},
		{"101", MaxLimit},
		{"99999", MaxLimit},
		{"20", 20},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, clampLimit(tt.raw))
		})
	}
}

func TestClampOffset(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"garbage", 0},
		{"-1", 0},
		{"0", 0},
		{"40", 40},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, clampOffset(tt.raw))
		})
	}
}
