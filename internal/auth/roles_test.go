package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input    string
		expected Role
	}{
		{"CONTRIBUTOR", RoleContributor},
		{"ROLE_CONTRIBUTOR", RoleContributor},
		{"role_editor", RoleEditor},
		{"  Publisher  ", RolePublisher},
		{"ROLE_ADMIN", RoleAdmin},
		{"SUPER_ADMIN", RoleSuperAdmin},
		{"ROLE_SUPER_ADMIN", RoleSuperAdmin},
		{"", RoleUnknown},
		{"INTERN", RoleUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseRole(tt.input))
		})
	}
}

func TestRequireMin(t *testing.T) {
	t.Run("equal role passes", func(t *testing.T) {
		assert.NoError(t, RequireMin(RoleEditor, RoleEditor))
	})

	t.Run("higher role passes", func(t *testing.T) {
		assert.NoError(t, RequireMin(RoleSuperAdmin, RoleContributor))
	})

	t.Run("lower role fails", func(t *testing.T) {
		assert.Error(t, RequireMin(RoleContributor, RoleEditor))
	})

	t.Run("unknown role fails everything", func(t *testing.T) {
		assert.Error(t, RequireMin(RoleUnknown, RoleContributor))
	})
}

func TestNextReceiver(t *testing.T) {
	tests := []struct {
		actor    Role
		expected Role
	}{
		{RoleContributor, RoleEditor},
		{RoleEditor, RolePublisher},
		{RolePublisher, RoleAdmin},
		{RoleAdmin, RoleSuperAdmin},
		{RoleSuperAdmin, RoleSuperAdmin},
		{RoleUnknown, RoleEditor},
	}

	for _, tt := range tests {
		t.Run(tt.actor.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, NextReceiver(tt.actor))
		})
	}
}

func TestRoleLevelOrdering(t *testing.T) {
	ordered := []Role{RoleContributor, RoleEditor, RolePublisher, RoleAdmin, RoleSuperAdmin}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Level(), ordered[i-1].Level())
	}
}
