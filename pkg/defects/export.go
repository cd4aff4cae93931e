package defects

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// Exporter renders an ordered defect sequence to a writer. The sequence is
// always the complete filtered set: exporters never paginate or truncate.
type Exporter interface {
	ContentType() string
	FileName() string
	Render(w io.Writer, items []Defect) error
}

// CSVExporter renders defects as RFC 4180 CSV with a header row
type CSVExporter struct{}

// ContentType implements Exporter
func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// FileName implements Exporter
func (CSVExporter) FileName() string { return "defects.csv" }

// Render implements Exporter
func (CSVExporter) Render(w io.Writer, items []Defect) error {
	cw := csv.NewWriter(w)

	header := []string{
		"id", "project_id", "stage_id", "title", "description",
		"priority", "assignee_id", "status", "due_date", "created_at", "updated_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, d := range items {
		row := []string{
			d.ID,
			d.ProjectID,
			strOrEmpty(d.StageID),
			d.Title,
			strOrEmpty(d.Description),
			string(d.Priority),
			strOrEmpty(d.AssigneeID),
			string(d.Status),
			timeOrEmpty(d.DueDate),
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
