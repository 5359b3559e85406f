// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

// Role is the authorization level assigned to a resolved principal. Role is
// never inferred from the identifier; it always comes from the matched
// record or the hardcoded master table.
type Role string

const (
	RoleMaster        Role = "master"
	RoleSuperAdmin    Role = "super_admin"
	RoleAllianceAdmin Role = "alliance_admin"
	RoleAdmin         Role = "admin"
	RoleUser          Role = "user"
)

// ParseRole maps a stored role string to a Role, defaulting unknown or
// empty values to the given fallback. Legacy records carry free-form role
// strings; anything unrecognized gets the fallback rather than a guess.
func ParseRole(s string, fallback Role) Role {
	switch Role(s) {
	case RoleMaster, RoleSuperAdmin, RoleAllianceAdmin, RoleAdmin, RoleUser:
		return Role(s)
	default:
		return fallback
	}
}

// Scoped reports whether the role is bound to one alliance. Master and
// super_admin operate globally and take their scope from context.
func (r Role) Scoped() bool {
	switch r {
	case RoleAllianceAdmin, RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// Action names an operation gated by role.
type Action string

const (
	ActionApproveRequests  Action = "approve_requests"
	ActionManageSysAdmins  Action = "manage_sys_admins"
	ActionManageRoster     Action = "manage_roster"
	ActionEditSettings     Action = "edit_settings"
	ActionViewDashboard    Action = "view_dashboard"
	ActionManageSuperAdmin Action = "manage_super_admins"
)

// permissions is the authorization table: which actions each role may
// perform. Privilege comes from here, never from the identifier string.
var permissions = map[Role]map[Action]bool{
	RoleMaster: {
		ActionApproveRequests:  true,
		ActionManageSysAdmins:  true,
		ActionManageRoster:     true,
		ActionEditSettings:     true,
		ActionViewDashboard:    true,
		ActionManageSuperAdmin: true,
	},
	RoleSuperAdmin: {
		ActionApproveRequests: true,
		ActionManageSysAdmins: true,
		ActionManageRoster:    true,
		ActionEditSettings:    true,
		ActionViewDashboard:   true,
	},
	RoleAllianceAdmin: {
		ActionManageSysAdmins: true,
		ActionManageRoster:    true,
		ActionEditSettings:    true,
		ActionViewDashboard:   true,
	},
	RoleAdmin: {
		ActionManageRoster:  true,
		ActionEditSettings:  true,
		ActionViewDashboard: true,
	},
	RoleUser: {
		ActionViewDashboard: true,
	},
}

// Can reports whether the role may perform the action.
func (r Role) Can(a Action) bool {
	return permissions[r][a]
}
