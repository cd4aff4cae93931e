package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/defects"
	"github.com/snagtrack/snag/pkg/policy"
)

const defectColumns = `id, project_id, stage_id, title, description, priority, assignee_id, status, due_date, created_at, updated_at`

func scanDefect(row interface{ Scan(...interface{}) error }) (*defects.Defect, error) {
	var d defects.Defect
	err := row.Scan(
		&d.ID,
		&d.ProjectID,
		&d.StageID,
		&d.Title,
		&d.Description,
		&d.Priority,
		&d.AssigneeID,
		&d.Status,
		&d.DueDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "defect not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan defect: %w", err)
	}
	return &d, nil
}

// whereClause translates the composed predicates into SQL. OpEq becomes
// an exact column match; OpTextSearch becomes a case-insensitive
// substring match over title OR description via ILIKE.
func whereClause(preds []defects.Predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}

	var conds []string
	var args []interface{}
	for _, p := range preds {
		switch p.Op {
		case defects.OpTextSearch:
			args = append(args, "%"+fmt.Sprint(p.Value)+"%")
			n := len(args)
			conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
		default:
			args = append(args, p.Value)
			conds = append(conds, fmt.Sprintf("%s = $%d", p.Column, len(args)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListDefects implements defects.Store
func (s *Store) ListDefects(ctx context.Context, q defects.Query) ([]defects.Defect, int64, error) {
	where, args := whereClause(q.Predicates)

	var total int64
	countQuery := `SELECT COUNT(*) FROM defects` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count defects: %w", err)
	}

	direction := "ASC"
	if q.OrderDesc {
		direction = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM defects%s ORDER BY %s %s NULLS LAST`,
		defectColumns, where, q.OrderBy, direction)
	if q.Paginated() {
		args = append(args, q.Limit, q.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list defects: %w", err)
	}
	defer rows.Close()

	var items []defects.Defect
	for rows.Next() {
		d, err := scanDefect(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate defects: %w", err)
	}
	return items, total, nil
}

// GetDefect implements defects.Store
func (s *Store) GetDefect(ctx context.Context, id string) (*defects.Defect, error) {
	query := `SELECT ` + defectColumns + ` FROM defects WHERE id = $1`
	return scanDefect(s.db.QueryRowContext(ctx, query, id))
}

// CreateDefect implements defects.Store
func (s *Store) CreateDefect(ctx context.Context, d *defects.Defect) error {
	query := `
		INSERT INTO defects (id, project_id, stage_id, title, description, priority, assignee_id, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.ProjectID, d.StageID, d.Title, d.Description,
		d.Priority, d.AssigneeID, d.Status, d.DueDate, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create defect: %w", err)
	}
	return nil
}

// UpdateDefectFields implements defects.Store. Only the fields present
// in the patch are written.
func (s *Store) UpdateDefectFields(ctx context.Context, id string, patch defects.FieldPatch, now time.Time) (*defects.Defect, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.AssigneeID != nil {
		add("assignee_id", *patch.AssigneeID)
	}
	if patch.StageID != nil {
		add("stage_id", *patch.StageID)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	add("updated_at", now)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE defects SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), defectColumns)

	return scanDefect(s.db.QueryRowContext(ctx, query, args...))
}

// UpdateDefectStatus implements defects.Store. The write is conditional
// on the expected status; when the condition fails and the row still
// exists the caller raced another transition and gets a conflict.
func (s *Store) UpdateDefectStatus(ctx context.Context, id string, expected, target policy.Status, now time.Time) (*defects.Defect, error) {
	query := `
		UPDATE defects
		SET status = $1,
		    closed_at = CASE WHEN $1 = 'closed' THEN $4 ELSE closed_at END,
		    updated_at = $4
		WHERE id = $2 AND status = $3
		RETURNING ` + defectColumns

	d, err := scanDefect(s.db.QueryRowContext(ctx, query, target, id, expected, now))
	if err == nil {
		return d, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	// Distinguish a vanished row from a lost race
	var exists bool
	if scanErr := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM defects WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
		return nil, fmt.Errorf("failed to check defect existence: %w", scanErr)
	}
	if exists {
		return nil, apperr.New(apperr.KindConflict, "defect status changed concurrently")
	}
	return nil, apperr.New(apperr.KindNotFound, "defect not found")
}

// DeleteDefect implements defects.Store
func (s *Store) DeleteDefect(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM defects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete defect: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "defect not found")
	}
	return nil
}

// CreateComment implements defects.Store
func (s *Store) CreateComment(ctx context.Context, c *defects.Comment) error {
	query := `
		INSERT INTO comments (id, defect_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.DefectID, c.AuthorID, c.Text, c.CreatedAt); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments implements defects.Store
func (s *Store) ListComments(ctx context.Context, defectID string, limit, offset int) ([]defects.Comment, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE defect_id = $1`, defectID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, defect_id, author_id, body, created_at
		FROM comments
		WHERE defect_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, defectID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var items []defects.Comment
	for rows.Next() {
		var c defects.Comment
		if err := rows.Scan(&c.ID, &c.DefectID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// GetComment implements defects.Store
func (s *Store) GetComment(ctx context.Context, id string) (*defects.Comment, error) {
	var c defects.Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, defect_id, author_id, body, created_at
		FROM comments WHERE id = $1
	`, id).Scan(&c.ID, &c.DefectID, &c.AuthorID, &c.Text, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "comment not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

// DeleteComment implements defects.Store
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "comment not found")
	}
	return nil
}

// CreateAttachment implements defects.Store
func (s *Store) CreateAttachment(ctx context.Context, a *defects.Attachment) error {
	query := `
		INSERT INTO attachments (id, defect_id, author_id, file_name, mime_type, size_bytes, locator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.DefectID, a.AuthorID, a.FileName, a.MimeType, a.SizeBytes, a.Locator, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// ListAttachments implements defects.Store
func (s *Store) ListAttachments(ctx context.Context, defectID string) ([]defects.Attachment, int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, defect_id, author_id, file_name, mime_type, size_bytes, locator, created_at
		FROM attachments
		WHERE defect_id = $1
		ORDER BY created_at ASC
	`, defectID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var items []defects.Attachment
	for rows.Next() {
		var a defects.Attachment
		if err := rows.Scan(&a.ID, &a.DefectID, &a.AuthorID, &a.FileName, &a.MimeType, &a.SizeBytes, &a.Locator, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan attachment: %w", err)
		}
		items = append(items, a)
	}
	return items, int64(len(items)), rows.Err()
}

// GetAttachment implements defects.Store
func (s *Store) GetAttachment(ctx context.Context, id string) (*defects.Attachment, error) {
	var a defects.Attachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, defect_id, author_id, file_name, mime_type, size_bytes, locator, created_at
		FROM attachments WHERE id = $1
	`, id).Scan(&a.ID, &a.DefectID, &a.AuthorID, &a.FileName, &a.MimeType, &a.SizeBytes, &a.Locator, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "attachment not found")
	} else if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &a, nil
}

// DeleteAttachment implements defects.Store
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "attachment not found")
	}
	return nil
}

// ListAttachmentLocators returns every referenced blob locator. Used by
// the orphaned blob sweep.
func (s *Store) ListAttachmentLocators(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT locator FROM attachments`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locators: %w", err)
	}
	defer rows.Close()

	var locators []string
	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return nil, fmt.Errorf("failed to scan locator: %w", err)
		}
		locators = append(locators, locator)
	}
	return locators, rows.Err()
}

// CountDefects returns total and non-terminal defect counts for gauges
func (s *Store) CountDefects(ctx context.Context) (total, open int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status NOT IN ('closed', 'canceled'))
		FROM defects
	`).Scan(&total, &open)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count defects: %w", err)
	}
	return total, open, nil
}
