package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/auth"
)

func TestLoadEmptyKeepsDefaults(t *testing.T) {
	p, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, DefaultWorkflow(), p.Workflow)
	assert.Equal(t, DefaultMatrix(), p.Matrix)
}

func TestLoadOverridesWorkflow(t *testing.T) {
	// A stricter policy: only moderators may move defects at all
	doc := `
workflow:
  status_roles:
    in_work: [Manager, Lead, Admin]
    review: [Manager, Lead, Admin]
    closed: [Admin]
    canceled: [Admin]
`
	p, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	err = p.Workflow.AuthorizeTarget(StatusInWork, []auth.Role{auth.RoleEngineer})
	assert.Error(t, err)

	err = p.Workflow.AuthorizeTarget(StatusClosed, []auth.Role{auth.RoleLead})
	assert.Error(t, err)

	assert.NoError(t, p.Workflow.AuthorizeTarget(StatusClosed, []auth.Role{auth.RoleAdmin}))

	// The transition graph was not overridden and keeps its default shape
	assert.True(t, p.Workflow.CanTransition(StatusNew, StatusInWork))
}

func TestLoadOverridesMatrix(t *testing.T) {
	doc := `
moderators: [Admin]
assignable_roles:
  Admin: [Engineer]
`
	p, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	d := p.Matrix.Authorize(ActionDeleteDefect, Input{Roles: []auth.Role{auth.RoleManager}})
	assert.False(t, d.Allowed)

	d = p.Matrix.Authorize(ActionCreateUser, Input{
		CallerID:       "a",
		Roles:          []auth.Role{auth.RoleAdmin},
		RequestedRoles: []auth.Role{auth.RoleManager},
	})
	assert.False(t, d.Allowed)
}

func TestLoadRejectsUnknownNames(t *testing.T) {
	cases := []string{
		"workflow:\n  transitions:\n    bogus: [in_work]\n",
		"workflow:\n  transitions:\n    new: [bogus]\n",
		"workflow:\n  status_roles:\n    in_work: [Superuser]\n",
		"moderators: [Superuser]\n",
		"assignable_roles:\n  Superuser: [Engineer]\n",
	}
	for _, doc := range cases {
		_, err := Load(strings.NewReader(doc))
		assert.Errorf(t, err, "doc: %s", doc)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(strings.NewReader("moderators: [unterminated"))
	assert.Error(t, err)
}
