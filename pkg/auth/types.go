package auth

import "time"

// Role is an application-level role name
type Role string

const (
	RoleEngineer Role = "Engineer"
	RoleManager  Role = "Manager"
	RoleLead     Role = "Lead"
	RoleAdmin    Role = "Admin"
)

// AllRoles lists every valid role
var AllRoles = []Role{RoleEngineer, RoleManager, RoleLead, RoleAdmin}

// ValidRole reports whether the string names a known role
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleEngineer, RoleManager, RoleLead, RoleAdmin:
		return true
	}
	return false
}

// User represents a user account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"` // never expose
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity holds the resolved caller of a request
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Roles  []Role `json:"roles"`
}

// HasRole reports whether the identity holds the given role
func (id *Identity) HasRole(role Role) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session is a resolved bearer session
type Session struct {
	Identity  Identity  `json:"identity"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
