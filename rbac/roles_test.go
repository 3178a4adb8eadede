package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRoleIgnoresCase(t *testing.T) {
	req := MustRequire(RoleOfficer)

	for _, held := range [][]Role{
		{"OFFICER"},
		{"officer"},
		{"Officer"},
		{" oFFicer "},
		{"CITIZEN", "officer"},
	} {
		assert.True(t, HasRole(held, req), "%v", held)
	}

	assert.False(t, HasRole([]Role{"CITIZEN"}, req))
	assert.False(t, HasRole(nil, req))
	assert.False(t, HasRole([]Role{"OFFICER"}, Requirement{}))
}

func TestHasRoleMatchesAnyOf(t *testing.T) {
	req := MustRequire(RoleOfficer, RoleDeptHead)

	assert.True(t, HasRole([]Role{"dept_head"}, req))
	assert.True(t, HasRole([]Role{"OFFICER"}, req))
	assert.False(t, HasRole([]Role{"ADMIN"}, req))
}

func TestNewRequirementRejectsEmpty(t *testing.T) {
	_, err := NewRequirement()
	assert.ErrorIs(t, err, ErrEmptyRequirement)

	_, err = NewRequirement("", "  ")
	assert.ErrorIs(t, err, ErrEmptyRequirement)

	assert.Panics(t, func() { MustRequire() })
}

func TestNewRequirementCanonicalizes(t *testing.T) {
	req, err := NewRequirement("admin", "ADMIN", "citizen")
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleCitizen}, req.Roles())
	assert.False(t, req.IsZero())
}

func TestFold(t *testing.T) {
	assert.Equal(t, []string{"CITIZEN", "OFFICER"}, Fold([]string{"citizen"}, "officer"))
	assert.Equal(t, []string{"OFFICER"}, Fold([]string{"OFFICER"}, "officer"))
	assert.Equal(t, []string{"ADMIN"}, Fold(nil, "", " admin "))
	assert.Empty(t, Fold(nil))

	once := Fold([]string{"CITIZEN"}, "DEPT_HEAD")
	assert.Equal(t, once, Fold(once, "DEPT_HEAD"))
}

func TestLandingPath(t *testing.T) {
	cases := []struct {
		roles []string
		want  string
	}{
		{[]string{"ADMIN", "CITIZEN"}, "/admin"},
		{[]string{"officer"}, "/officer"},
		{[]string{"DEPT_HEAD"}, "/depthead"},
		{[]string{"OFFICER", "DEPT_HEAD"}, "/officer"},
		{[]string{"citizen"}, "/citizen"},
		{nil, "/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LandingPath(tc.roles), "%v", tc.roles)
	}
}
