// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancegate/alliancegate/internal/docstore"
	"github.com/alliancegate/alliancegate/internal/docstore/memory"
)

type fakeSessionStore struct {
	snapshot *State
	saveErr  error
	loadErr  error
	clears   int
}

func (f *fakeSessionStore) SaveSession(state State) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = &state
	return nil
}

func (f *fakeSessionStore) LoadSession() (State, bool, error) {
	if f.loadErr != nil {
		return State{}, false, f.loadErr
	}
	if f.snapshot == nil {
		return State{}, false, nil
	}
	return *f.snapshot, true, nil
}

func (f *fakeSessionStore) ClearSession() error {
	f.clears++
	f.snapshot = nil
	return nil
}

type recordingSessionStore struct {
	fakeSessionStore
	lastAdminID string
}

func (f *recordingSessionStore) SetLastAdminID(adminID string) error {
	f.lastAdminID = adminID
	return nil
}

func seedActiveUser(t *testing.T, store docstore.Store, key string) {
	t.Helper()
	hasher := NewSHA256Hasher()
	seedDoc(t, store, docstore.UsersCollection, key, map[string]any{
		"role":       "user",
		"status":     "active",
		"serverId":   "#100",
		"allianceId": "ABC",
		"password":   hasher.Digest("pw1"),
	})
}

func TestSessionLoginLogout(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedActiveUser(t, store, "alice")
	persist := &fakeSessionStore{}
	m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

	assert.False(t, m.Current().LoggedIn)

	identity, err := m.Login(context.Background(), "alice", "pw1", Scope{})
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Identifier)

	state := m.Current()
	assert.True(t, state.LoggedIn)
	assert.Equal(t, RoleUser, state.Role)
	assert.Equal(t, Scope{ServerID: "#100", AllianceID: "ABC"}, state.Scope)

	require.NotNil(t, persist.snapshot)
	assert.Equal(t, state, *persist.snapshot)

	m.Logout()
	assert.False(t, m.Current().LoggedIn)
	assert.Nil(t, persist.snapshot)
	assert.Equal(t, 1, persist.clears)
}

func TestSessionLoginRecordsLastAdminID(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedActiveUser(t, store, "alice")
	persist := &recordingSessionStore{}
	m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

	_, err := m.Login(context.Background(), "alice", "pw1", Scope{})
	require.NoError(t, err)
	assert.Equal(t, "alice", persist.lastAdminID)

	// A failed login leaves the recorded id alone.
	_, err = m.Login(context.Background(), "ghost", "pw1", Scope{})
	require.Error(t, err)
	assert.Equal(t, "alice", persist.lastAdminID)
}

func TestSessionLoginFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedActiveUser(t, store, "alice")
	persist := &fakeSessionStore{}
	m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

	_, err := m.Login(context.Background(), "alice", "wrong", Scope{})
	require.ErrorIs(t, err, ErrSecretMismatch)
	assert.False(t, m.Current().LoggedIn)
	assert.Nil(t, persist.snapshot)
}

func TestSessionPersistFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seedActiveUser(t, store, "alice")
	persist := &fakeSessionStore{saveErr: errors.New("disk full")}
	m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

	_, err := m.Login(context.Background(), "alice", "pw1", Scope{})
	require.NoError(t, err)
	assert.True(t, m.Current().LoggedIn)
}

func TestSessionRehydrate(t *testing.T) {
	t.Parallel()

	t.Run("restores active user", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedActiveUser(t, store, "alice")
		persist := &fakeSessionStore{snapshot: &State{
			LoggedIn:   true,
			Identifier: "alice",
			Role:       RoleUser,
			Scope:      Scope{ServerID: "#100", AllianceID: "ABC"},
		}}
		m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		state := m.Current()
		assert.True(t, state.LoggedIn)
		assert.Equal(t, "alice", state.Identifier)
	})

	t.Run("resets when user went inactive", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "alice", map[string]any{
			"role":   "user",
			"status": "rejected",
		})
		persist := &fakeSessionStore{snapshot: &State{
			LoggedIn:   true,
			Identifier: "alice",
			Role:       RoleUser,
		}}
		m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		assert.False(t, m.Current().LoggedIn)
		assert.Nil(t, persist.snapshot)
	})

	t.Run("resets when user disappeared", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		persist := &fakeSessionStore{snapshot: &State{
			LoggedIn:   true,
			Identifier: "ghost",
			Role:       RoleUser,
		}}
		m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		assert.False(t, m.Current().LoggedIn)
	})

	t.Run("restores master from hardcoded table", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		persist := &fakeSessionStore{snapshot: &State{
			LoggedIn:   true,
			Identifier: "admin",
			Role:       RoleMaster,
			Scope:      DefaultMasterScope,
		}}
		m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		assert.True(t, m.Current().LoggedIn)
		assert.Equal(t, RoleMaster, m.Current().Role)
	})

	t.Run("restores legacy admin via snapshot scope", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "bob", map[string]any{
			"password": "pw",
		})
		persist := &fakeSessionStore{snapshot: &State{
			LoggedIn:   true,
			Identifier: "bob",
			Role:       RoleAdmin,
			Scope:      Scope{ServerID: "#200", AllianceID: "XYZ"},
		}}
		m := NewSessionManager(newTestResolver(t, store), store, persist, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		assert.True(t, m.Current().LoggedIn)
		assert.Equal(t, RoleAdmin, m.Current().Role)
	})

	t.Run("no snapshot is a no-op", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		m := NewSessionManager(newTestResolver(t, store), store, &fakeSessionStore{}, nil)

		require.NoError(t, m.Rehydrate(context.Background()))
		assert.False(t, m.Current().LoggedIn)
	})
}
