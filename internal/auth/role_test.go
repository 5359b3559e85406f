// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RoleSuperAdmin, ParseRole("super_admin", RoleUser))
	assert.Equal(t, RoleAllianceAdmin, ParseRole("alliance_admin", RoleUser))

	// Legacy free-form role strings fall back instead of guessing.
	assert.Equal(t, RoleAdmin, ParseRole("Leader", RoleAdmin))
	assert.Equal(t, RoleUser, ParseRole("", RoleUser))
}

func TestRoleScoped(t *testing.T) {
	t.Parallel()

	assert.False(t, RoleMaster.Scoped())
	assert.False(t, RoleSuperAdmin.Scoped())
	assert.True(t, RoleAllianceAdmin.Scoped())
	assert.True(t, RoleAdmin.Scoped())
	assert.True(t, RoleUser.Scoped())
}

func TestRoleCan(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleMaster.Can(ActionManageSuperAdmin))
	assert.True(t, RoleSuperAdmin.Can(ActionApproveRequests))
	assert.False(t, RoleSuperAdmin.Can(ActionManageSuperAdmin))
	assert.False(t, RoleAllianceAdmin.Can(ActionApproveRequests))
	assert.True(t, RoleAllianceAdmin.Can(ActionManageRoster))
	assert.False(t, RoleUser.Can(ActionManageRoster))
	assert.True(t, RoleUser.Can(ActionViewDashboard))

	// Unknown roles can do nothing.
	assert.False(t, Role("wizard").Can(ActionViewDashboard))
}
