package policy

import (
	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

// Action is a gated non-status mutation
type Action string

const (
	ActionDeleteDefect     Action = "defect:delete"
	ActionDeleteComment    Action = "comment:delete"
	ActionDeleteAttachment Action = "attachment:delete"
	ActionExportDefects    Action = "defect:export"
	ActionCreateUser       Action = "user:create"
	ActionDeleteUser       Action = "user:delete"
)

// Input carries everything a rule needs. Resource attributes (owner,
// target roles) are looked up by the caller before authorization; the
// matrix itself performs no I/O.
type Input struct {
	CallerID string
	Roles    []auth.Role

	// OwnerID is the author of the resource being moderated (comments).
	OwnerID string

	// TargetID and TargetRoles describe the user being deleted.
	TargetID    string
	TargetRoles []auth.Role

	// RequestedRoles is the role set requested for a new user.
	RequestedRoles []auth.Role
}

// Decision is the outcome of an authorization check
type Decision struct {
	Allowed bool
	Kind    apperr.Kind // set when denied
	Reason  string
}

// Err converts a denial into a typed error, or nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return apperr.New(d.Kind, d.Reason)
}

func allow() Decision {
	return Decision{Allowed: true}
}

func forbid(reason string) Decision {
	return Decision{Kind: apperr.KindForbidden, Reason: reason}
}

func reject(reason string) Decision {
	return Decision{Kind: apperr.KindValidation, Reason: reason}
}

// Matrix holds the decision tables for non-status actions
type Matrix struct {
	// Moderators are the roles allowed for moderator-gated actions
	// (defect deletion, attachment deletion, export).
	Moderators []auth.Role

	// UserManagers are the roles allowed to create and delete users at all.
	UserManagers []auth.Role

	// Assignable maps a manager role to the roles it may hand out.
	// Admin is never assignable through user creation by anyone.
	Assignable map[auth.Role][]auth.Role
}

// DefaultMatrix returns the canonical permission tables
func DefaultMatrix() *Matrix {
	return &Matrix{
		Moderators:   []auth.Role{auth.RoleManager, auth.RoleLead, auth.RoleAdmin},
		UserManagers: []auth.Role{auth.RoleAdmin, auth.RoleLead},
		Assignable: map[auth.Role][]auth.Role{
			auth.RoleAdmin: {auth.RoleEngineer, auth.RoleManager, auth.RoleLead},
			auth.RoleLead:  {auth.RoleEngineer, auth.RoleManager},
		},
	}
}

// Authorize evaluates the rule for the given action
func (m *Matrix) Authorize(action Action, in Input) Decision {
	switch action {
	case ActionDeleteDefect:
		return m.deleteDefect(in)
	case ActionDeleteComment:
		return m.deleteComment(in)
	case ActionDeleteAttachment:
		return m.deleteAttachment(in)
	case ActionExportDefects:
		return m.exportDefects(in)
	case ActionCreateUser:
		return m.createUser(in)
	case ActionDeleteUser:
		return m.deleteUser(in)
	default:
		return forbid("unknown action " + string(action))
	}
}

// deleteDefect: moderators only. Engineers may not delete defects even
// when assigned to them.
func (m *Matrix) deleteDefect(in Input) Decision {
	if auth.HasAnyRole(in.Roles, m.Moderators...) {
		return allow()
	}
	return forbid("deleting a defect requires " + roleList(m.Moderators))
}

// deleteComment: the comment's author, or any moderator.
func (m *Matrix) deleteComment(in Input) Decision {
	if in.CallerID != "" && in.CallerID == in.OwnerID {
		return allow()
	}
	if auth.HasAnyRole(in.Roles, m.Moderators...) {
		return allow()
	}
	return forbid("deleting another user's comment requires " + roleList(m.Moderators))
}

// deleteAttachment: moderators only. Unlike comments, authorship grants
// nothing here: an Engineer may not delete an attachment they uploaded.
// This asymmetry is deliberate.
func (m *Matrix) deleteAttachment(in Input) Decision {
	if auth.ContainsRole(in.Roles, auth.RoleEngineer) && !auth.HasAnyRole(in.Roles, m.Moderators...) {
		return forbid("Engineers cannot delete attachments")
	}
	if auth.HasAnyRole(in.Roles, m.Moderators...) {
		return allow()
	}
	return forbid("deleting an attachment requires " + roleList(m.Moderators))
}

// exportDefects: any role except exclusively Engineer.
func (m *Matrix) exportDefects(in Input) Decision {
	if auth.HasAnyRole(in.Roles, m.Moderators...) {
		return allow()
	}
	return forbid("exporting defects requires " + roleList(m.Moderators))
}

// createUser: Admin may assign Engineer/Manager/Lead; Lead may assign
// Engineer/Manager. The Admin role is never assignable through this path.
func (m *Matrix) createUser(in Input) Decision {
	if len(in.RequestedRoles) == 0 {
		return reject("at least one role is required")
	}
	if auth.ContainsRole(in.RequestedRoles, auth.RoleAdmin) {
		return forbid("the Admin role cannot be assigned through user creation")
	}
	if !auth.HasAnyRole(in.Roles, m.UserManagers...) {
		return forbid("creating users requires " + roleList(m.UserManagers))
	}

	granter := m.granterRole(in.Roles)
	for _, requested := range in.RequestedRoles {
		if !auth.ContainsRole(m.Assignable[granter], requested) {
			return forbid(string(granter) + " cannot assign the " + string(requested) + " role")
		}
	}
	return allow()
}

// deleteUser rule order: an Admin-tagged target is undeletable by anyone,
// then self-deletion is rejected regardless of role, then the caller's
// base role and the Lead-on-Lead restriction are checked.
func (m *Matrix) deleteUser(in Input) Decision {
	if auth.ContainsRole(in.TargetRoles, auth.RoleAdmin) {
		return forbid("users holding the Admin role cannot be deleted")
	}
	if in.CallerID != "" && in.CallerID == in.TargetID {
		return reject("you cannot delete your own account")
	}
	if !auth.HasAnyRole(in.Roles, m.UserManagers...) {
		return forbid("deleting users requires " + roleList(m.UserManagers))
	}
	isLeadOnly := auth.ContainsRole(in.Roles, auth.RoleLead) && !auth.ContainsRole(in.Roles, auth.RoleAdmin)
	if isLeadOnly && auth.ContainsRole(in.TargetRoles, auth.RoleLead) {
		return forbid("Lead cannot delete another Lead")
	}
	return allow()
}

// granterRole picks the most privileged user-managing role the caller holds
func (m *Matrix) granterRole(roles []auth.Role) auth.Role {
	for _, candidate := range m.UserManagers {
		if auth.ContainsRole(roles, candidate) {
			return candidate
		}
	}
	return ""
}
