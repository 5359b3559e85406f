// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import "errors"

// Sentinel errors for expected failure modes. Callers branch with
// errors.Is; oops codes are attached at the return sites for logging.
var (
	// ErrMissingCredentials is returned when identifier or secret is empty
	// after trimming.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrSecretMismatch is returned when an identifier matched a source but
	// the secret did not. Resolution stops; lower-priority sources are not
	// consulted.
	ErrSecretMismatch = errors.New("secret mismatch")

	// ErrAccountNotActive is returned when credentials are correct but the
	// record's status is not active.
	ErrAccountNotActive = errors.New("account not active")

	// ErrPrincipalNotFound is returned when no source matched the identifier.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrAlreadyExists is returned by registration when the identifier is
	// already taken.
	ErrAlreadyExists = errors.New("identifier already exists")

	// ErrAdminIDConflict is returned by approval when a user record already
	// exists at the request's admin id; approving would overwrite it.
	ErrAdminIDConflict = errors.New("admin id conflict")

	// ErrScopeRequired is returned when a scoped role resolves without a
	// usable (server, alliance) scope.
	ErrScopeRequired = errors.New("scope required")

	// ErrStoreUnavailable wraps unexpected credential-store failures,
	// distinguishing backend trouble from authentication failure.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// UserMessage maps an error to a distinct human-readable message. Every
// failure surfaces; none is silent.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "Enter both an ID and a password."
	case errors.Is(err, ErrSecretMismatch):
		return "The password does not match. Please try again."
	case errors.Is(err, ErrAccountNotActive):
		return "This account is awaiting approval or has been disabled."
	case errors.Is(err, ErrPrincipalNotFound):
		return "No account was found for that ID."
	case errors.Is(err, ErrAlreadyExists):
		return "That ID is already registered."
	case errors.Is(err, ErrAdminIDConflict):
		return "An account with that admin ID already exists."
	case errors.Is(err, ErrScopeRequired):
		return "Enter a server number and alliance tag."
	case errors.Is(err, ErrStoreUnavailable):
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Authentication failed due to an unexpected error."
	}
}
