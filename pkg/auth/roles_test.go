package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  []Role
	}{
		{
			name:  "string slice",
			input: []string{"Admin", "Lead"},
			want:  []Role{RoleAdmin, RoleLead},
		},
		{
			name:  "single string",
			input: "Admin",
			want:  []Role{RoleAdmin},
		},
		{
			name:  "comma delimited string",
			input: "Engineer, Manager",
			want:  []Role{RoleEngineer, RoleManager},
		},
		{
			name:  "duplicates removed preserving order",
			input: []string{"Admin", "Engineer", "Admin"},
			want:  []Role{RoleAdmin, RoleEngineer},
		},
		{
			name:  "nil yields empty",
			input: nil,
			want:  []Role{},
		},
		{
			name:  "empty string yields empty",
			input: "",
			want:  []Role{},
		},
		{
			name:  "blank entries dropped",
			input: []string{"", "  ", "Manager"},
			want:  []Role{RoleManager},
		},
		{
			name:  "mixed interface slice keeps only strings",
			input: []interface{}{"Lead", 42, nil, "Engineer"},
			want:  []Role{RoleLead, RoleEngineer},
		},
		{
			name:  "role slice passes through",
			input: []Role{RoleManager, RoleManager},
			want:  []Role{RoleManager},
		},
		{
			name:  "unexpected type yields empty",
			input: 17,
			want:  []Role{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRoles(tt.input))
		})
	}
}

func TestNormalizeRolesEquivalence(t *testing.T) {
	// A bare string and a one-element array must produce identical results
	assert.Equal(t, NormalizeRoles("Admin"), NormalizeRoles([]string{"Admin"}))
	assert.Equal(t, []Role{RoleAdmin}, NormalizeRoles("Admin"))
}

func TestHasAnyRole(t *testing.T) {
	held := []Role{RoleEngineer, RoleManager}

	assert.True(t, HasAnyRole(held, RoleManager))
	assert.True(t, HasAnyRole(held, RoleAdmin, RoleEngineer))
	assert.False(t, HasAnyRole(held, RoleAdmin, RoleLead))
	assert.False(t, HasAnyRole(nil, RoleAdmin))
	assert.False(t, HasAnyRole(held))
}

func TestIsModerator(t *testing.T) {
	assert.False(t, IsModerator([]Role{RoleEngineer}))
	assert.False(t, IsModerator(nil))
	assert.True(t, IsModerator([]Role{RoleManager}))
	assert.True(t, IsModerator([]Role{RoleEngineer, RoleLead}))
	assert.True(t, IsModerator([]Role{RoleAdmin}))
}

func TestValidRole(t *testing.T) {
	for _, r := range AllRoles {
		assert.True(t, ValidRole(string(r)))
	}
	assert.False(t, ValidRole("Superuser"))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("admin")) // role names are case-sensitive
}
