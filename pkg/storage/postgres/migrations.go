package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup. Each statement is
// idempotent so repeated startups are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role    TEXT NOT NULL,
		PRIMARY KEY (user_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		start_date  TIMESTAMPTZ,
		end_date    TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stages (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS defects (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL,
		stage_id    TEXT,
		title       TEXT NOT NULL,
		description TEXT,
		priority    TEXT NOT NULL,
		assignee_id TEXT,
		status      TEXT NOT NULL,
		due_date    TIMESTAMPTZ,
		closed_at   TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_defects_project ON defects(project_id)`,
	`CREATE INDEX IF NOT EXISTS idx_defects_status ON defects(status)`,
	`CREATE INDEX IF NOT EXISTS idx_defects_assignee ON defects(assignee_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         TEXT PRIMARY KEY,
		defect_id  TEXT NOT NULL REFERENCES defects(id) ON DELETE CASCADE,
		author_id  TEXT NOT NULL,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_defect ON comments(defect_id)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id         TEXT PRIMARY KEY,
		defect_id  TEXT NOT NULL REFERENCES defects(id) ON DELETE CASCADE,
		author_id  TEXT NOT NULL,
		file_name  TEXT NOT NULL,
		mime_type  TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		locator    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attachments_defect ON attachments(defect_id)`,
}

// Migrate applies the schema migrations
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
