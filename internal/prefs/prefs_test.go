// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancegate/alliancegate/internal/auth"
)

func openTestPrefs(t *testing.T) (*Prefs, string) {
	t.Helper()
	dir := t.TempDir()
	p, err := Open(dir)
	require.NoError(t, err)
	return p, dir
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	p, dir := openTestPrefs(t)

	_, ok, err := p.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)

	state := auth.State{
		LoggedIn:   true,
		Identifier: "alice",
		Role:       auth.RoleAllianceAdmin,
		Scope:      auth.Scope{ServerID: "#100", AllianceID: "ABC"},
	}
	require.NoError(t, p.SaveSession(state))

	// A fresh Open sees the persisted snapshot.
	reopened, err := Open(dir)
	require.NoError(t, err)
	got, ok, err := reopened.LoadSession()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, got)

	require.NoError(t, reopened.ClearSession())
	_, ok, err = reopened.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecencyPersistence(t *testing.T) {
	t.Parallel()

	p, dir := openTestPrefs(t)

	for _, v := range []string{"#1", "#2", "#3", "#4", "#5", "#6", "#2"} {
		p.Record(auth.RecentServers, v)
	}
	p.Record(auth.RecentAlliances, "ABC")

	assert.Equal(t, []string{"#2", "#6", "#5", "#4", "#3"}, p.Recents(auth.RecentServers))
	assert.Equal(t, []string{"ABC"}, p.Recents(auth.RecentAlliances))
	assert.Empty(t, p.Recents(auth.RecentUserIDs))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"#2", "#6", "#5", "#4", "#3"}, reopened.Recents(auth.RecentServers))
}

func TestLastAdminID(t *testing.T) {
	t.Parallel()

	p, dir := openTestPrefs(t)
	assert.Empty(t, p.LastAdminID())

	require.NoError(t, p.SetLastAdminID("bob"))

	reopened, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "bob", reopened.LastAdminID())
}

func TestReset(t *testing.T) {
	t.Parallel()

	p, dir := openTestPrefs(t)
	require.NoError(t, p.SaveSession(auth.State{LoggedIn: true, Identifier: "alice"}))
	p.Record(auth.RecentServers, "#1")
	require.NoError(t, p.SetLastAdminID("bob"))

	require.NoError(t, p.Reset())

	reopened, err := Open(dir)
	require.NoError(t, err)
	_, ok, err := reopened.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, reopened.Recents(auth.RecentServers))
	assert.Empty(t, reopened.LastAdminID())
}

func TestCorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prefs.json"), []byte("{not json"), 0o600))

	p, err := Open(dir)
	require.NoError(t, err)
	_, ok, err := p.LoadSession()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoTempFileLeftBehind(t *testing.T) {
	t.Parallel()

	p, dir := openTestPrefs(t)
	require.NoError(t, p.SetLastAdminID("bob"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prefs.json", entries[0].Name())
}
