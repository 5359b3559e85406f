// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package auth implements credential resolution and role assignment for
// AllianceGate: a prioritized multi-source lookup over a keyed document
// store, plus the registration, approval, and session workflows around it.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SecretHasher produces one-way digests of secrets.
type SecretHasher interface {
	// Digest returns the deterministic lowercase hex digest of the secret.
	Digest(secret string) string
}

// SHA256Hasher implements SecretHasher with SHA-256, matching the digests
// already stored by historical clients.
type SHA256Hasher struct {
	// digestFn allows tests to simulate a failing digest primitive.
	digestFn func(secret string) (string, error)
}

// NewSHA256Hasher creates a SHA256Hasher.
func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

// Digest returns the lowercase hex SHA-256 of the secret. Empty input
// digests to empty. If the digest primitive fails, the plaintext is
// returned unchanged, a compatibility shim inherited from historical
// clients that preferred availability over security; keep the behavior
// visible, do not remove it silently.
func (h *SHA256Hasher) Digest(secret string) string {
	if secret == "" {
		return ""
	}
	fn := h.digestFn
	if fn == nil {
		fn = sha256Hex
	}
	digest, err := fn(secret)
	if err != nil {
		return secret
	}
	// Lowercase so digest comparisons are never case-sensitive by accident.
	return strings.ToLower(digest)
}

func sha256Hex(secret string) (string, error) {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

// MatchStrategy reports how a secret matched a stored value.
type MatchStrategy int

const (
	// NoMatch means the secret did not match.
	NoMatch MatchStrategy = iota

	// DigestMatch means the digest of the supplied secret equaled the
	// stored value.
	DigestMatch

	// LegacyPlaintextMatch means the raw secret equaled the stored value.
	//
	// Deprecated: migration shim for records created before digests were
	// enforced. Remove once all stored secrets are digests.
	LegacyPlaintextMatch
)

func (m MatchStrategy) String() string {
	switch m {
	case DigestMatch:
		return "digest"
	case LegacyPlaintextMatch:
		return "legacy_plaintext"
	default:
		return "none"
	}
}

// SecretVerifier checks a supplied secret against a stored value, trying
// DigestMatch first and falling back to the deprecated plaintext strategy.
type SecretVerifier struct {
	hasher SecretHasher
}

// NewSecretVerifier creates a SecretVerifier.
func NewSecretVerifier(hasher SecretHasher) *SecretVerifier {
	return &SecretVerifier{hasher: hasher}
}

// Verify reports whether the secret matches the stored value and which
// strategy matched. Comparisons are constant-time per candidate.
func (v *SecretVerifier) Verify(secret, stored string) (bool, MatchStrategy) {
	if secret == "" || stored == "" {
		return false, NoMatch
	}
	digest := v.hasher.Digest(secret)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1 {
		return true, DigestMatch
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) == 1 {
		return true, LegacyPlaintextMatch
	}
	return false, NoMatch
}
