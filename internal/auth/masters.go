// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import "strings"

// masterCredential is a hardcoded top-level account. Masters are not stored
// in the credential store and carry no status.
type masterCredential struct {
	id           string
	secretDigest string
}

// masterSecretDigest is sha256("wos1234") in lowercase hex.
const masterSecretDigest = "ed9f02f10e07faa4b8c450098c23ad6a8b6a2396523897c0beec0ecdf327d2e9"

// defaultMasters is the built-in master table. A small fixed set, digests
// only.
var defaultMasters = []masterCredential{
	{id: "admin", secretDigest: masterSecretDigest},
	{id: "master", secretDigest: masterSecretDigest},
}

// DefaultMasterScope is the scope a master receives when none is supplied.
var DefaultMasterScope = Scope{ServerID: "#000", AllianceID: "MASTER_SYSTEM"}

// lookupMaster finds a master credential by case-insensitive identifier.
func lookupMaster(masters []masterCredential, identifier string) (masterCredential, bool) {
	for _, m := range masters {
		if strings.EqualFold(m.id, identifier) {
			return m, true
		}
	}
	return masterCredential{}, false
}
