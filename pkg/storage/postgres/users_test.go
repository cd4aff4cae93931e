package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

func TestCreateUserWithRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()
	u := auth.User{
		ID:           "u1",
		Email:        "lead@example.com",
		FullName:     "Site Lead",
		PasswordHash: "hash",
		Roles:        []auth.Role{auth.RoleEngineer, auth.RoleLead},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.ID, u.Email, u.FullName, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(u.ID, auth.RoleEngineer).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs(u.ID, auth.RoleLead).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.CreateUser(context.Background(), &u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("eng@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at", "updated_at"}).
			AddRow("u2", "eng@example.com", "Engineer", "hash", now, now))
	mock.ExpectQuery(`SELECT role FROM user_roles WHERE user_id = \$1`).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("Engineer"))

	u, err := store.GetUserByEmail(context.Background(), "eng@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)
	assert.Equal(t, []auth.Role{auth.RoleEngineer}, u.Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = store.GetUser(context.Background(), "missing")
	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsersStitchesRoles(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT (.+) FROM users ORDER BY created_at ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "full_name", "password_hash", "created_at", "updated_at"}).
			AddRow("u1", "a@example.com", "A", "hash", now, now).
			AddRow("u2", "b@example.com", "B", "hash", now, now))
	mock.ExpectQuery(`SELECT user_id, role FROM user_roles`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).
			AddRow("u1", "Admin").
			AddRow("u2", "Engineer").
			AddRow("u2", "Manager"))

	items, err := store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []auth.Role{auth.RoleAdmin}, items[0].Roles)
	assert.Equal(t, []auth.Role{auth.RoleEngineer, auth.RoleManager}, items[1].Roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)

	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, apperr.IsNotFound(store.DeleteUser(context.Background(), "missing")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE users SET email = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("u1", "new@example.com", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateUserEmail(context.Background(), "u1", "new@example.com", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserEmailTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE users SET email = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("u1", "taken@example.com", now).
		WillReturnError(&pq.Error{Code: "23505"})

	err = store.UpdateUserEmail(context.Background(), "u1", "taken@example.com", now)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserPasswordNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = \$3 WHERE id = \$1`).
		WithArgs("missing", "hash", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, apperr.IsNotFound(store.UpdateUserPassword(context.Background(), "missing", "hash", now)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
