package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
)

func TestCanTransitionFullGraph(t *testing.T) {
	w := DefaultWorkflow()

	legal := map[[2]Status]bool{
		{StatusNew, StatusInWork}:     true,
		{StatusInWork, StatusReview}:  true,
		{StatusReview, StatusClosed}:  true,
		{StatusReview, StatusCanceled}: true,
	}

	// Every (current, target) pair outside the four legal edges must be
	// rejected, including self-transitions and moves out of terminal states.
	for _, current := range AllStatuses {
		for _, target := range AllStatuses {
			want := legal[[2]Status{current, target}]
			assert.Equalf(t, want, w.CanTransition(current, target),
				"transition %s -> %s", current, target)
		}
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	w := DefaultWorkflow()

	// Malformed statuses resolve to an empty adjacency set
	err := w.Validate(Status("bogus"), StatusInWork)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	err = w.Validate(StatusNew, Status("bogus"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestValidateReportsBothStatuses(t *testing.T) {
	w := DefaultWorkflow()

	err := w.Validate(StatusClosed, StatusInWork)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
	assert.Contains(t, err.Error(), "in_work")
}

func TestAuthorizeTargetByRole(t *testing.T) {
	w := DefaultWorkflow()

	engineerAllowed := map[Status]bool{
		StatusInWork: true,
		StatusReview: true,
	}

	for _, target := range []Status{StatusInWork, StatusReview, StatusClosed, StatusCanceled} {
		t.Run(string(target), func(t *testing.T) {
			err := w.AuthorizeTarget(target, []auth.Role{auth.RoleEngineer})
			if engineerAllowed[target] {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
			}

			// Manager, Lead and Admin may set all four mutable statuses
			for _, role := range []auth.Role{auth.RoleManager, auth.RoleLead, auth.RoleAdmin} {
				assert.NoErrorf(t, w.AuthorizeTarget(target, []auth.Role{role}),
					"%s should set %s", role, target)
			}

			// The empty role set authorizes nothing
			assert.Error(t, w.AuthorizeTarget(target, nil))
		})
	}
}

func TestAuthorizeTargetAnyHeldRoleSuffices(t *testing.T) {
	w := DefaultWorkflow()

	// A caller holding Engineer plus Manager gets the union of both sets
	roles := []auth.Role{auth.RoleEngineer, auth.RoleManager}
	assert.NoError(t, w.AuthorizeTarget(StatusClosed, roles))
}

func TestTransitionFailurePrecedence(t *testing.T) {
	w := DefaultWorkflow()

	// An Engineer attempting closed -> in_work is both structurally invalid
	// and unauthorized; the structural check must win.
	err := w.Transition(StatusClosed, StatusInWork, []auth.Role{auth.RoleEngineer})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	// A structurally valid but unauthorized transition is Forbidden
	err = w.Transition(StatusReview, StatusClosed, []auth.Role{auth.RoleEngineer})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// The denial names roles that would suffice
	assert.Contains(t, err.Error(), "Manager")
}

func TestTransitionHappyPath(t *testing.T) {
	w := DefaultWorkflow()
	engineer := []auth.Role{auth.RoleEngineer}
	manager := []auth.Role{auth.RoleManager}

	assert.NoError(t, w.Transition(StatusNew, StatusInWork, engineer))
	assert.NoError(t, w.Transition(StatusInWork, StatusReview, engineer))
	assert.Error(t, w.Transition(StatusReview, StatusClosed, engineer))
	assert.NoError(t, w.Transition(StatusReview, StatusClosed, manager))
	assert.NoError(t, w.Transition(StatusReview, StatusCanceled, manager))
}

func TestSelfTransitionsNeverPermitted(t *testing.T) {
	w := DefaultWorkflow()
	for _, s := range AllStatuses {
		err := w.Transition(s, s, []auth.Role{auth.RoleAdmin})
		require.Errorf(t, err, "self-transition on %s", s)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, ValidStatus(string(s)))
	}
	for _, s := range []string{"", "open", "NEW", "done"} {
		assert.Falsef(t, ValidStatus(s), "status %q", s)
	}
}

func ExampleWorkflow_Transition() {
	w := DefaultWorkflow()
	err := w.Transition(StatusReview, StatusClosed, []auth.Role{auth.RoleEngineer})
	fmt.Println(apperr.KindOf(err))
	// Output: forbidden
}
