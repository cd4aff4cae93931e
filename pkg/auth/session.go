package auth

import (
	"context"
	"time"

	"github.com/snagtrack/snag/pkg/apperr"
)

// DefaultSessionTTL is how long an issued session stays valid
const DefaultSessionTTL = 24 * time.Hour

// SessionStore persists sessions keyed by token hash. Implementations
// expire entries at the stored TTL.
type SessionStore interface {
	Put(ctx context.Context, tokenHash string, session Session, ttl time.Duration) error
	Get(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

// SessionResolver resolves bearer tokens against a SessionStore
type SessionResolver struct {
	store  SessionStore
	tokens *TokenGenerator
	now    func() time.Time
}

// NewSessionResolver creates a resolver over the given store
func NewSessionResolver(store SessionStore) *SessionResolver {
	return &SessionResolver{
		store:  store,
		tokens: NewTokenGenerator(),
		now:    time.Now,
	}
}

// Resolve implements Resolver. The token shape is checked before any
// store lookup so malformed credentials never hit the backend.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if err := r.tokens.ValidateTokenFormat(token); err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token")
	}

	session, err := r.store.Get(ctx, r.tokens.HashToken(token))
	if err != nil {
		return nil, err
	}
	if r.now().After(session.ExpiresAt) {
		return nil, apperr.New(apperr.KindUnauthorized, "session expired")
	}

	identity := session.Identity
	return &identity, nil
}
