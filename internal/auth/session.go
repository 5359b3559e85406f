// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

// State is the session's externally visible shape. The zero value is the
// logged-out state.
type State struct {
	LoggedIn   bool
	Identifier string
	Role       Role
	Scope      Scope
}

// SessionStore persists the last-known-good session across restarts.
type SessionStore interface {
	SaveSession(state State) error
	LoadSession() (State, bool, error)
	ClearSession() error
}

// LastAdminRecorder is implemented by session stores that also remember
// the identifier most recently logged in, for pre-filling login forms.
type LastAdminRecorder interface {
	SetLastAdminID(adminID string) error
}

// SessionManager owns the login lifecycle: LoggedOut -> LoggedIn only via a
// successful Resolve, back via explicit Logout or a failed rehydration
// check. Safe for concurrent reads; a single logical caller drives the
// transitions.
type SessionManager struct {
	resolver *Resolver
	store    docstore.Store
	persist  SessionStore
	logger   *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewSessionManager creates a SessionManager. persist may be nil, in which
// case sessions live only for the process lifetime.
func NewSessionManager(resolver *Resolver, store docstore.Store, persist SessionStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		resolver: resolver,
		store:    store,
		persist:  persist,
		logger:   logger,
	}
}

// Current returns a copy of the session state.
func (m *SessionManager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Login resolves the credentials and, on success, transitions to LoggedIn
// and persists the snapshot. Persistence failures are logged, not returned;
// the in-memory session is already established.
func (m *SessionManager) Login(ctx context.Context, identifier, secret string, scopeHint Scope) (Identity, error) {
	identity, err := m.resolver.Resolve(ctx, identifier, secret, scopeHint)
	if err != nil {
		return Identity{}, err
	}

	state := State{
		LoggedIn:   true,
		Identifier: identity.Identifier,
		Role:       identity.Role,
		Scope:      identity.Scope,
	}

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	m.save(state)
	if rec, ok := m.persist.(LastAdminRecorder); ok {
		if err := rec.SetLastAdminID(identity.Identifier); err != nil {
			m.logger.Warn("failed to record last admin id", "error", err)
		}
	}
	m.logger.Info("session established",
		"identifier", identity.Identifier,
		"role", string(identity.Role),
		"server_id", identity.Scope.ServerID,
		"alliance_id", identity.Scope.AllianceID,
	)
	return identity, nil
}

// Logout resets the session and clears the persisted snapshot.
func (m *SessionManager) Logout() {
	m.mu.Lock()
	identifier := m.state.Identifier
	m.state = State{}
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist.ClearSession(); err != nil {
			m.logger.Warn("failed to clear persisted session", "error", err)
		}
	}
	if identifier != "" {
		m.logger.Info("session ended", "identifier", identifier)
	}
}

// Rehydrate restores the persisted session, re-verifying the backing
// principal against the store first. A principal that disappeared or is no
// longer active resets the session instead of trusting the snapshot.
// Store unavailability is surfaced so callers can retry startup; the
// session stays logged out until verification succeeds.
func (m *SessionManager) Rehydrate(ctx context.Context) error {
	if m.persist == nil {
		return nil
	}
	snapshot, ok, err := m.persist.LoadSession()
	if err != nil {
		return oops.Code("AUTH_SESSION_RESTORE").Wrap(err)
	}
	if !ok || !snapshot.LoggedIn {
		return nil
	}

	alive, err := m.verifyPrincipal(ctx, snapshot)
	if err != nil {
		return err
	}
	if !alive {
		m.logger.Info("persisted session no longer valid, resetting",
			"identifier", snapshot.Identifier,
		)
		m.Logout()
		return nil
	}

	m.mu.Lock()
	m.state = snapshot
	m.mu.Unlock()
	m.logger.Info("session restored",
		"identifier", snapshot.Identifier,
		"role", string(snapshot.Role),
	)
	return nil
}

// verifyPrincipal checks that the snapshot's principal still exists and is
// active. Masters are checked against the hardcoded table; store-backed
// principals against users first, then the legacy collections under the
// snapshot's scope.
func (m *SessionManager) verifyPrincipal(ctx context.Context, snapshot State) (bool, error) {
	if _, ok := lookupMaster(m.resolver.masters, snapshot.Identifier); ok {
		return snapshot.Role == RoleMaster, nil
	}

	doc, err := m.store.GetByKey(ctx, docstore.UsersCollection, snapshot.Identifier)
	if err == nil {
		return Status(doc.String("status")) == StatusActive, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return false, sessionStoreFailure("verify persisted user", err)
	}

	if !snapshot.Scope.Complete() {
		return false, nil
	}
	for _, collection := range []string{
		docstore.AdminsCollection(snapshot.Scope.ServerID, snapshot.Scope.AllianceID),
		docstore.MembersCollection(snapshot.Scope.ServerID, snapshot.Scope.AllianceID),
	} {
		_, err := m.store.GetByKey(ctx, collection, snapshot.Identifier)
		if err == nil {
			// Legacy rows carry no status; existing is enough.
			return true, nil
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return false, sessionStoreFailure("verify persisted legacy principal", err)
		}
	}
	return false, nil
}

func (m *SessionManager) save(state State) {
	if m.persist == nil {
		return
	}
	if err := m.persist.SaveSession(state); err != nil {
		m.logger.Warn("failed to persist session", "error", err)
	}
}

func sessionStoreFailure(operation string, err error) error {
	return oops.Code("AUTH_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}
