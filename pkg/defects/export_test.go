package defects

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/policy"
)

func TestCSVExporterRender(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	items := []Defect{
		{
			ID:          "d1",
			ProjectID:   "p1",
			Title:       "Cracked tile, aisle 3",
			Description: strPtr("near the \"north\" entrance"),
			Priority:    PriorityHigh,
			AssigneeID:  strPtr("u1"),
			Status:      policy.StatusInWork,
			DueDate:     &due,
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		{
			ID:        "d2",
			ProjectID: "p1",
			Title:     "Missing handrail",
			Priority:  PriorityMed,
			Status:    policy.StatusNew,
			CreatedAt: created,
			UpdatedAt: created,
		},
	}

	var buf bytes.Buffer
	exp := CSVExporter{}
	require.NoError(t, exp.Render(&buf, items))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{
		"id", "project_id", "stage_id", "title", "description",
		"priority", "assignee_id", "status", "due_date", "created_at", "updated_at",
	}, records[0])

	assert.Equal(t, []string{
		"d1", "p1", "", "Cracked tile, aisle 3", "near the \"north\" entrance",
		"high", "u1", "in_work", "2026-03-01T12:00:00Z",
		"2026-02-01T09:30:00Z", "2026-02-01T09:30:00Z",
	}, records[1])

	// Optional fields render as empty cells
	assert.Equal(t, "d2", records[2][0])
	assert.Equal(t, "", records[2][2])
	assert.Equal(t, "", records[2][4])
	assert.Equal(t, "", records[2][6])
	assert.Equal(t, "", records[2][8])
}

func TestCSVExporterEmptySet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Render(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCSVExporterMetadata(t *testing.T) {
	exp := CSVExporter{}
	assert.Equal(t, "text/csv; charset=utf-8", exp.ContentType())
	assert.Equal(t, "defects.csv", exp.FileName())
}
