package users

import (
	"context"
	"time"

	"github.com/snagtrack/snag/pkg/auth"
)

// Store is the persistence contract for user accounts. Roles are stored
// in a join table; implementations return them populated on every read.
type Store interface {
	CreateUser(ctx context.Context, u *auth.User) error
	GetUser(ctx context.Context, id string) (*auth.User, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	ListUsers(ctx context.Context) ([]auth.User, error)
	UpdateUserEmail(ctx context.Context, id, email string, now time.Time) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string, now time.Time) error
	DeleteUser(ctx context.Context, id string) error
}
