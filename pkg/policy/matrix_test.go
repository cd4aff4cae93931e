package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

func roles(rs ...auth.Role) []auth.Role { return rs }

func TestDeleteDefect(t *testing.T) {
	m := DefaultMatrix()

	tests := []struct {
		name    string
		roles   []auth.Role
		allowed bool
	}{
		{"engineer denied", roles(auth.RoleEngineer), false},
		{"engineer denied even as assignee", roles(auth.RoleEngineer), false},
		{"manager allowed", roles(auth.RoleManager), true},
		{"lead allowed", roles(auth.RoleLead), true},
		{"admin allowed", roles(auth.RoleAdmin), true},
		{"engineer with manager allowed", roles(auth.RoleEngineer, auth.RoleManager), true},
		{"no roles denied", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Authorize(ActionDeleteDefect, Input{CallerID: "u1", Roles: tt.roles})
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, apperr.KindForbidden, d.Kind)
			}
		})
	}
}

func TestDeleteComment(t *testing.T) {
	m := DefaultMatrix()

	// Author may always delete their own comment, even as plain Engineer
	d := m.Authorize(ActionDeleteComment, Input{
		CallerID: "u1", Roles: roles(auth.RoleEngineer), OwnerID: "u1",
	})
	assert.True(t, d.Allowed)

	// Non-author Engineer denied
	d = m.Authorize(ActionDeleteComment, Input{
		CallerID: "u2", Roles: roles(auth.RoleEngineer), OwnerID: "u1",
	})
	assert.False(t, d.Allowed)

	// Moderators may delete regardless of authorship
	for _, r := range []auth.Role{auth.RoleManager, auth.RoleLead, auth.RoleAdmin} {
		d = m.Authorize(ActionDeleteComment, Input{
			CallerID: "u2", Roles: roles(r), OwnerID: "u1",
		})
		assert.Truef(t, d.Allowed, "role %s", r)
	}

	// Empty caller ID never matches an empty owner ID
	d = m.Authorize(ActionDeleteComment, Input{Roles: roles(auth.RoleEngineer)})
	assert.False(t, d.Allowed)
}

func TestDeleteAttachmentAsymmetry(t *testing.T) {
	m := DefaultMatrix()

	// Unlike comments, authorship grants nothing: an Engineer cannot
	// delete an attachment they uploaded themselves.
	d := m.Authorize(ActionDeleteAttachment, Input{
		CallerID: "u1", Roles: roles(auth.RoleEngineer), OwnerID: "u1",
	})
	require.False(t, d.Allowed)
	assert.Equal(t, apperr.KindForbidden, d.Kind)
	assert.Contains(t, d.Reason, "Engineers cannot delete attachments")

	for _, r := range []auth.Role{auth.RoleManager, auth.RoleLead, auth.RoleAdmin} {
		d = m.Authorize(ActionDeleteAttachment, Input{CallerID: "u2", Roles: roles(r)})
		assert.Truef(t, d.Allowed, "role %s", r)
	}

	// Mixed Engineer+Manager caller is a moderator and passes
	d = m.Authorize(ActionDeleteAttachment, Input{
		CallerID: "u1", Roles: roles(auth.RoleEngineer, auth.RoleManager),
	})
	assert.True(t, d.Allowed)

	d = m.Authorize(ActionDeleteAttachment, Input{CallerID: "u1"})
	assert.False(t, d.Allowed)
}

func TestExportDefects(t *testing.T) {
	m := DefaultMatrix()

	d := m.Authorize(ActionExportDefects, Input{Roles: roles(auth.RoleEngineer)})
	assert.False(t, d.Allowed)

	d = m.Authorize(ActionExportDefects, Input{Roles: roles(auth.RoleEngineer, auth.RoleLead)})
	assert.True(t, d.Allowed)

	d = m.Authorize(ActionExportDefects, Input{})
	assert.False(t, d.Allowed)
}

func TestCreateUser(t *testing.T) {
	m := DefaultMatrix()

	tests := []struct {
		name      string
		caller    []auth.Role
		requested []auth.Role
		allowed   bool
		kind      apperr.Kind
	}{
		{"admin assigns engineer", roles(auth.RoleAdmin), roles(auth.RoleEngineer), true, ""},
		{"admin assigns manager and lead", roles(auth.RoleAdmin), roles(auth.RoleManager, auth.RoleLead), true, ""},
		{"admin cannot assign admin", roles(auth.RoleAdmin), roles(auth.RoleAdmin), false, apperr.KindForbidden},
		{"lead assigns engineer", roles(auth.RoleLead), roles(auth.RoleEngineer), true, ""},
		{"lead assigns manager", roles(auth.RoleLead), roles(auth.RoleManager), true, ""},
		{"lead cannot assign lead", roles(auth.RoleLead), roles(auth.RoleLead), false, apperr.KindForbidden},
		{"lead cannot assign admin", roles(auth.RoleLead), roles(auth.RoleAdmin), false, apperr.KindForbidden},
		{"lead cannot smuggle lead in a set", roles(auth.RoleLead), roles(auth.RoleEngineer, auth.RoleLead), false, apperr.KindForbidden},
		{"manager cannot create users", roles(auth.RoleManager), roles(auth.RoleEngineer), false, apperr.KindForbidden},
		{"engineer cannot create users", roles(auth.RoleEngineer), roles(auth.RoleEngineer), false, apperr.KindForbidden},
		{"empty requested set rejected", roles(auth.RoleAdmin), nil, false, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Authorize(ActionCreateUser, Input{
				CallerID: "u1", Roles: tt.caller, RequestedRoles: tt.requested,
			})
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.kind, d.Kind)
			}
		})
	}
}

func TestDeleteUser(t *testing.T) {
	m := DefaultMatrix()

	tests := []struct {
		name    string
		in      Input
		allowed bool
		kind    apperr.Kind
	}{
		{
			name:    "admin deletes engineer",
			in:      Input{CallerID: "a", Roles: roles(auth.RoleAdmin), TargetID: "b", TargetRoles: roles(auth.RoleEngineer)},
			allowed: true,
		},
		{
			name: "admin target undeletable by admin",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleAdmin), TargetID: "b", TargetRoles: roles(auth.RoleAdmin)},
			kind: apperr.KindForbidden,
		},
		{
			name: "admin target undeletable by lead",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleLead), TargetID: "b", TargetRoles: roles(auth.RoleAdmin)},
			kind: apperr.KindForbidden,
		},
		{
			name: "admin self-delete forbidden via admin target rule",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleAdmin), TargetID: "a", TargetRoles: roles(auth.RoleAdmin)},
			kind: apperr.KindForbidden,
		},
		{
			name: "self-delete rejected regardless of role",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleLead), TargetID: "a", TargetRoles: roles(auth.RoleLead)},
			kind: apperr.KindValidation,
		},
		{
			name: "lead cannot delete lead",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleLead), TargetID: "b", TargetRoles: roles(auth.RoleLead)},
			kind: apperr.KindForbidden,
		},
		{
			name:    "admin may delete lead",
			in:      Input{CallerID: "a", Roles: roles(auth.RoleAdmin), TargetID: "b", TargetRoles: roles(auth.RoleLead)},
			allowed: true,
		},
		{
			name:    "lead deletes engineer",
			in:      Input{CallerID: "a", Roles: roles(auth.RoleLead), TargetID: "b", TargetRoles: roles(auth.RoleEngineer)},
			allowed: true,
		},
		{
			name: "manager cannot delete users",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleManager), TargetID: "b", TargetRoles: roles(auth.RoleEngineer)},
			kind: apperr.KindForbidden,
		},
		{
			name: "engineer cannot delete users",
			in:   Input{CallerID: "a", Roles: roles(auth.RoleEngineer), TargetID: "b", TargetRoles: roles(auth.RoleEngineer)},
			kind: apperr.KindForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Authorize(ActionDeleteUser, tt.in)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, tt.kind, d.Kind)
				assert.Error(t, d.Err())
			} else {
				assert.NoError(t, d.Err())
			}
		})
	}
}

func TestUnknownAction(t *testing.T) {
	m := DefaultMatrix()
	d := m.Authorize(Action("bogus"), Input{Roles: roles(auth.RoleAdmin)})
	assert.False(t, d.Allowed)
}
