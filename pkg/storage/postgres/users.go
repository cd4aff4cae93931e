package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

// CreateUser implements users.Store. The account row and its role rows
// are written in one transaction.
func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.FullName, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.New(apperr.KindConflict, "email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range u.Roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, u.ID, role); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

// GetUser implements users.Store
func (s *Store) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return s.getUserBy(ctx, "id", id, "user not found")
}

// GetUserByEmail implements users.Store
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUserBy(ctx, "email", email, "user not found")
}

func (s *Store) getUserBy(ctx context.Context, column, value, notFoundMsg string) (*auth.User, error) {
	var u auth.User
	query := fmt.Sprintf(`
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM users WHERE %s = $1
	`, column)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, notFoundMsg)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	roles, err := s.userRoles(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *Store) userRoles(ctx context.Context, userID string) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var role auth.Role
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListUsers implements users.Store. Roles are fetched in one pass and
// stitched onto the account rows.
func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, password_hash, created_at, updated_at
		FROM users ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var items []auth.User
	byID := map[string]int{}
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		byID[u.ID] = len(items)
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	roleRows, err := s.db.QueryContext(ctx, `SELECT user_id, role FROM user_roles ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer roleRows.Close()

	for roleRows.Next() {
		var userID string
		var role auth.Role
		if err := roleRows.Scan(&userID, &role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		if i, ok := byID[userID]; ok {
			items[i].Roles = append(items[i].Roles, role)
		}
	}
	return items, roleRows.Err()
}

// UpdateUserEmail implements users.Store
func (s *Store) UpdateUserEmail(ctx context.Context, id, email string, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = $2, updated_at = $3 WHERE id = $1`, id, email, now)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperr.New(apperr.KindConflict, "email already in use")
		}
		return fmt.Errorf("failed to update email: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// UpdateUserPassword implements users.Store
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, now)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

// DeleteUser implements users.Store. Role rows cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}
