package policy

import (
	"strings"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

// Status is a defect lifecycle status
type Status string

const (
	StatusNew      Status = "new"
	StatusInWork   Status = "in_work"
	StatusReview   Status = "review"
	StatusClosed   Status = "closed"
	StatusCanceled Status = "canceled"
)

// AllStatuses lists every valid status
var AllStatuses = []Status{StatusNew, StatusInWork, StatusReview, StatusClosed, StatusCanceled}

// ValidStatus reports whether the string names a known status
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusNew, StatusInWork, StatusReview, StatusClosed, StatusCanceled:
		return true
	}
	return false
}

// Workflow is the defect status state machine: a fixed directed transition
// graph plus the table of which roles may set which target status.
type Workflow struct {
	// Transitions maps a current status to the statuses reachable from it.
	// Statuses absent from the map (including malformed input) have an
	// empty adjacency set: nothing is reachable from them.
	Transitions map[Status][]Status

	// StatusRoles maps a target status to the roles allowed to set it.
	// The check is independent of the current status.
	StatusRoles map[Status][]auth.Role
}

// DefaultWorkflow returns the canonical workflow tables:
//
//	new → in_work → review → closed | canceled
//
// closed and canceled are terminal. Engineers may set in_work and review;
// Manager, Lead and Admin may set all four mutable statuses.
func DefaultWorkflow() *Workflow {
	return &Workflow{
		Transitions: map[Status][]Status{
			StatusNew:      {StatusInWork},
			StatusInWork:   {StatusReview},
			StatusReview:   {StatusClosed, StatusCanceled},
			StatusClosed:   {},
			StatusCanceled: {},
		},
		StatusRoles: map[Status][]auth.Role{
			StatusInWork:   {auth.RoleEngineer, auth.RoleManager, auth.RoleLead, auth.RoleAdmin},
			StatusReview:   {auth.RoleEngineer, auth.RoleManager, auth.RoleLead, auth.RoleAdmin},
			StatusClosed:   {auth.RoleManager, auth.RoleLead, auth.RoleAdmin},
			StatusCanceled: {auth.RoleManager, auth.RoleLead, auth.RoleAdmin},
		},
	}
}

// CanTransition reports whether target is reachable from current.
// Unknown statuses on either side resolve to false.
func (w *Workflow) CanTransition(current, target Status) bool {
	for _, next := range w.Transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Validate checks the structural legality of a transition. The returned
// error reports both the current and the requested status.
func (w *Workflow) Validate(current, target Status) error {
	if w.CanTransition(current, target) {
		return nil
	}
	return apperr.Newf(apperr.KindInvalidTransition,
		"cannot transition defect from %q to %q", current, target)
}

// AuthorizeTarget checks whether any held role may set the target status.
// The denial message names the roles that would suffice.
func (w *Workflow) AuthorizeTarget(target Status, roles []auth.Role) error {
	allowed := w.StatusRoles[target]
	if auth.HasAnyRole(roles, allowed...) {
		return nil
	}
	return apperr.Newf(apperr.KindForbidden,
		"setting status %q requires %s", target, roleList(allowed))
}

// Transition validates a status change end to end: structural validity is
// checked strictly before authorization, so an unauthorized caller
// requesting an impossible transition sees InvalidTransition, not Forbidden.
func (w *Workflow) Transition(current, target Status, roles []auth.Role) error {
	if err := w.Validate(current, target); err != nil {
		return err
	}
	return w.AuthorizeTarget(target, roles)
}

func roleList(roles []auth.Role) string {
	if len(roles) == 0 {
		return "no role"
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
