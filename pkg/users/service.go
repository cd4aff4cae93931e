package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/observability"
	"github.com/snagtrack/snag/pkg/policy"
)

// MinPasswordLen is the minimum accepted password length
const MinPasswordLen = 8

// Service provides user account operations
type Service struct {
	store      Store
	sessions   auth.SessionStore
	policy     *policy.Policy
	logger     *observability.Logger
	tokens     *auth.TokenGenerator
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService creates a new user service
func NewService(store Store, sessions auth.SessionStore, pol *policy.Policy, logger *observability.Logger) *Service {
	return &Service{
		store:      store,
		sessions:   sessions,
		policy:     pol,
		logger:     logger,
		tokens:     auth.NewTokenGenerator(),
		sessionTTL: auth.DefaultSessionTTL,
		now:        time.Now,
	}
}

// SetSessionTTL overrides the lifetime of newly issued sessions
func (s *Service) SetSessionTTL(ttl time.Duration) {
	if ttl > 0 {
		s.sessionTTL = ttl
	}
}

// EnsureAdmin creates an Admin account with the given credentials if no
// user with that email exists. Used at startup to bootstrap the first
// account; the permission matrix is bypassed because there is no caller.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return apperr.New(apperr.KindValidation, "a valid email is required")
	}
	if len(password) < MinPasswordLen {
		return apperr.Newf(apperr.KindValidation, "password must be at least %d characters", MinPasswordLen)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := s.now()
	u := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     "Administrator",
		PasswordHash: string(hash),
		Roles:        []auth.Role{auth.RoleAdmin},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return err
	}
	s.logger.WithField("user_id", u.ID).Info("bootstrap admin created")
	return nil
}

// CreateInput carries the fields accepted at user creation
type CreateInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Roles    interface{} `json:"roles"`
}

// Login verifies the credentials and issues a bearer session. The raw
// token is returned exactly once; only its hash is stored.
func (s *Service) Login(ctx context.Context, email, password string) (string, *auth.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, apperr.New(apperr.KindValidation, "email and password are required")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, tokenHash, err := s.tokens.GenerateToken()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, "failed to issue session", err)
	}

	now := s.now()
	session := auth.Session{
		Identity:  auth.Identity{UserID: u.ID, Email: u.Email, Roles: u.Roles},
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Put(ctx, tokenHash, session, s.sessionTTL); err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, "failed to store session", err)
	}

	s.logger.WithField("user_id", u.ID).Info("user logged in")
	return token, &session, nil
}

// Create creates a user account. The permission matrix decides whether
// the caller may assign the requested roles; it runs before any field
// validation so the caller's standing is established first.
func (s *Service) Create(ctx context.Context, in CreateInput, callerID string, callerRoles interface{}) (*auth.User, error) {
	roles := auth.NormalizeRoles(in.Roles)
	d := s.policy.Matrix.Authorize(policy.ActionCreateUser, policy.Input{
		CallerID:       callerID,
		Roles:          auth.NormalizeRoles(callerRoles),
		RequestedRoles: roles,
	})
	if err := d.Err(); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.KindValidation, "a valid email is required")
	}
	if len(in.Password) < MinPasswordLen {
		return nil, apperr.Newf(apperr.KindValidation, "password must be at least %d characters", MinPasswordLen)
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, apperr.New(apperr.KindValidation, "full_name is required")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, apperr.New(apperr.KindConflict, "a user with this email already exists")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	now := s.now()
	u := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    u.ID,
		"created_by": callerID,
	}).Info("user created")
	return u, nil
}

// Get returns a user by ID
func (s *Service) Get(ctx context.Context, id string) (*auth.User, error) {
	return s.store.GetUser(ctx, id)
}

// List returns user accounts. Admin and Lead callers only; Lead callers
// do not see Admin accounts. The gate runs before the store is read.
func (s *Service) List(ctx context.Context, callerRoles interface{}) ([]auth.User, error) {
	roles := auth.NormalizeRoles(callerRoles)
	if !auth.HasAnyRole(roles, auth.RoleAdmin, auth.RoleLead) {
		return nil, apperr.New(apperr.KindForbidden, "insufficient permissions to list users")
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []auth.User{}
	}

	if auth.ContainsRole(roles, auth.RoleAdmin) {
		return users, nil
	}
	visible := make([]auth.User, 0, len(users))
	for _, u := range users {
		if !auth.ContainsRole(u.Roles, auth.RoleAdmin) {
			visible = append(visible, u)
		}
	}
	return visible, nil
}

// Delete removes a user account per the permission matrix. The target is
// loaded first so the matrix can see its roles; a missing target is
// reported as not found before any rule fires.
func (s *Service) Delete(ctx context.Context, targetID, callerID string, callerRoles interface{}) error {
	target, err := s.store.GetUser(ctx, targetID)
	if err != nil {
		return err
	}

	d := s.policy.Matrix.Authorize(policy.ActionDeleteUser, policy.Input{
		CallerID:    callerID,
		Roles:       auth.NormalizeRoles(callerRoles),
		TargetID:    target.ID,
		TargetRoles: target.Roles,
	})
	if err := d.Err(); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, targetID); err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"user_id":    targetID,
		"deleted_by": callerID,
	}).Info("user deleted")
	return nil
}

// VerifyPassword checks a plaintext password against a user's stored hash
func (s *Service) VerifyPassword(u *auth.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangeEmail updates the caller's own email after re-verifying their
// current password. Another account holding the address is a conflict.
func (s *Service) ChangeEmail(ctx context.Context, callerID, newEmail, currentPassword string) (*auth.User, error) {
	email := strings.TrimSpace(strings.ToLower(newEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.New(apperr.KindValidation, "a valid email is required")
	}

	u, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !s.VerifyPassword(u, currentPassword) {
		return nil, apperr.New(apperr.KindValidation, "current password is incorrect")
	}

	if existing, err := s.store.GetUserByEmail(ctx, email); err == nil {
		if existing.ID != u.ID {
			return nil, apperr.New(apperr.KindConflict, "email already in use")
		}
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	now := s.now()
	if err := s.store.UpdateUserEmail(ctx, u.ID, email, now); err != nil {
		return nil, err
	}
	u.Email = email
	u.UpdatedAt = now

	s.logger.WithField("user_id", u.ID).Info("email changed")
	return u, nil
}

// ChangePassword replaces the caller's own password after re-verifying
// the current one
func (s *Service) ChangePassword(ctx context.Context, callerID, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return apperr.Newf(apperr.KindValidation, "password must be at least %d characters", MinPasswordLen)
	}

	u, err := s.store.GetUser(ctx, callerID)
	if err != nil {
		return err
	}
	if !s.VerifyPassword(u, currentPassword) {
		return apperr.New(apperr.KindValidation, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	if err := s.store.UpdateUserPassword(ctx, u.ID, string(hash), s.now()); err != nil {
		return err
	}

	s.logger.WithField("user_id", u.ID).Info("password changed")
	return nil
}
