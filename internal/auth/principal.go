// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"strings"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

// Scope binds a principal's authorization to one alliance.
type Scope struct {
	ServerID   string
	AllianceID string
}

// Complete reports whether both scope parts are present.
func (s Scope) Complete() bool {
	return s.ServerID != "" && s.AllianceID != ""
}

// NormalizeServerID trims the server id and ensures the canonical "#"
// prefix ("245" and "#245" both become "#245"). Empty input stays empty.
func NormalizeServerID(serverID string) string {
	serverID = strings.TrimSpace(serverID)
	if serverID == "" {
		return ""
	}
	if !strings.HasPrefix(serverID, "#") {
		return "#" + serverID
	}
	return serverID
}

// Status is a credential record's lifecycle state. Only active principals
// may authenticate; hardcoded masters carry no status at all.
type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"

	// StatusApproved marks a decided alliance request; it never appears on
	// credential records themselves.
	StatusApproved Status = "approved"
)

// Source identifies which credential source matched, in priority order.
type Source int

const (
	SourceMaster Source = iota
	SourceGlobalUser
	SourceLegacyAdmin
	SourceLegacyMember
)

func (s Source) String() string {
	switch s {
	case SourceMaster:
		return "master"
	case SourceGlobalUser:
		return "global_user"
	case SourceLegacyAdmin:
		return "legacy_admin"
	case SourceLegacyMember:
		return "legacy_member"
	default:
		return "unknown"
	}
}

// Principal is the unified view of the four credential record shapes. Each
// source constructor normalizes its own shape so the resolver never touches
// raw document fields.
type Principal struct {
	Identifier   string
	Role         Role
	Scope        Scope
	Status       Status
	Source       Source
	storedSecret string
}

// StoredSecret returns the stored digest (or legacy plaintext) to verify
// against. Unexported field with an accessor so logging never stringifies it
// by accident.
func (p Principal) StoredSecret() string { return p.storedSecret }

// HasStatus reports whether this source tracks a lifecycle status. Legacy
// admin/member rows and hardcoded masters predate the status field.
func (p Principal) HasStatus() bool { return p.Source == SourceGlobalUser }

// Identity is the result of successful resolution.
type Identity struct {
	Identifier string
	Role       Role
	Scope      Scope
}

// globalUserPrincipal builds a Principal from a users document.
func globalUserPrincipal(doc docstore.Document) Principal {
	return Principal{
		Identifier: doc.Key,
		Role:       ParseRole(doc.String("role"), RoleUser),
		Scope: Scope{
			ServerID:   doc.String("serverId"),
			AllianceID: doc.String("allianceId"),
		},
		Status:       Status(doc.String("status")),
		Source:       SourceGlobalUser,
		storedSecret: doc.String("password"),
	}
}

// legacyAdminPrincipal builds a Principal from a per-alliance admins
// document. Records without a role default to admin.
func legacyAdminPrincipal(doc docstore.Document, scope Scope) Principal {
	return Principal{
		Identifier:   doc.Key,
		Role:         ParseRole(doc.String("role"), RoleAdmin),
		Scope:        scope,
		Source:       SourceLegacyAdmin,
		storedSecret: doc.String("password"),
	}
}

// legacyMemberPrincipal builds a Principal from a per-alliance members
// document. Members are always plain users no matter what the row says.
func legacyMemberPrincipal(doc docstore.Document, scope Scope) Principal {
	return Principal{
		Identifier:   doc.Key,
		Role:         RoleUser,
		Scope:        scope,
		Source:       SourceLegacyMember,
		storedSecret: doc.String("password"),
	}
}
