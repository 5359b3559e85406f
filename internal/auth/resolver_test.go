// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alliancegate/alliancegate/internal/docstore"
	"github.com/alliancegate/alliancegate/internal/docstore/memory"
)

type recorderSpy struct {
	calls map[RecencyCategory][]string
}

func newRecorderSpy() *recorderSpy {
	return &recorderSpy{calls: make(map[RecencyCategory][]string)}
}

func (r *recorderSpy) Record(category RecencyCategory, value string) {
	r.calls[category] = append(r.calls[category], value)
}

func newTestResolver(t *testing.T, store docstore.Store, opts ...ResolverOption) *Resolver {
	t.Helper()
	return NewResolver(store, NewSHA256Hasher(), opts...)
}

func seedDoc(t *testing.T, store docstore.Store, collection, key string, fields map[string]any) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), collection, key, fields, false))
}

func TestResolveMissingCredentials(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, memory.New())

	_, err := r.Resolve(context.Background(), "  ", "pw", Scope{})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = r.Resolve(context.Background(), "alice", "   ", Scope{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolveMaster(t *testing.T) {
	t.Parallel()

	t.Run("seeded master credentials", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(t, memory.New())

		identity, err := r.Resolve(context.Background(), "admin", "wos1234", Scope{})
		require.NoError(t, err)
		assert.Equal(t, RoleMaster, identity.Role)
		assert.Equal(t, DefaultMasterScope, identity.Scope)
	})

	t.Run("case-insensitive identifier", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(t, memory.New())

		identity, err := r.Resolve(context.Background(), "ADMIN", "wos1234", Scope{})
		require.NoError(t, err)
		assert.Equal(t, RoleMaster, identity.Role)
	})

	t.Run("scope hint wins over default", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(t, memory.New())

		identity, err := r.Resolve(context.Background(), "master", "wos1234",
			Scope{ServerID: "300", AllianceID: "DEF"})
		require.NoError(t, err)
		assert.Equal(t, Scope{ServerID: "#300", AllianceID: "DEF"}, identity.Scope)
	})

	t.Run("shadows users record with same identifier", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		hasher := NewSHA256Hasher()
		seedDoc(t, store, docstore.UsersCollection, "admin", map[string]any{
			"role":     "user",
			"status":   "active",
			"password": hasher.Digest("userpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "admin", "wos1234", Scope{})
		require.NoError(t, err)
		assert.Equal(t, RoleMaster, identity.Role)

		// The shadowed users record's secret does not work either; the
		// master match short-circuits before the store is consulted.
		_, err = r.Resolve(context.Background(), "admin", "userpw", Scope{})
		assert.ErrorIs(t, err, ErrSecretMismatch)
	})

	t.Run("wrong secret terminates", func(t *testing.T) {
		t.Parallel()
		r := newTestResolver(t, memory.New())

		_, err := r.Resolve(context.Background(), "admin", "nope", Scope{})
		assert.ErrorIs(t, err, ErrSecretMismatch)
	})
}

func TestResolveGlobalUser(t *testing.T) {
	t.Parallel()

	hasher := NewSHA256Hasher()

	activeAlice := map[string]any{
		"username":   "alice-name",
		"nickname":   "ally",
		"role":       "user",
		"status":     "active",
		"serverId":   "#100",
		"allianceId": "ABC",
		"password":   hasher.Digest("pw1"),
	}

	t.Run("key lookup with correct secret", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "alice", activeAlice)
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "alice", "pw1", Scope{})
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Identifier)
		assert.Equal(t, RoleUser, identity.Role)
		assert.Equal(t, Scope{ServerID: "#100", AllianceID: "ABC"}, identity.Scope)
	})

	t.Run("username field fallback", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "alice", activeAlice)
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "alice-name", "pw1", Scope{})
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Identifier)
	})

	t.Run("nickname field fallback", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "alice", activeAlice)
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "ally", "pw1", Scope{})
		require.NoError(t, err)
		assert.Equal(t, "alice", identity.Identifier)
	})

	t.Run("wrong secret does not fall through to legacy sources", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "alice", activeAlice)
		// A legacy admin with the same identifier and a matching secret
		// must never be reached once the users record matched.
		seedDoc(t, store, docstore.AdminsCollection("#100", "ABC"), "alice", map[string]any{
			"password": hasher.Digest("wrong"),
		})
		r := newTestResolver(t, store)

		_, err := r.Resolve(context.Background(), "alice", "wrong",
			Scope{ServerID: "#100", AllianceID: "ABC"})
		assert.ErrorIs(t, err, ErrSecretMismatch)
	})

	t.Run("legacy plaintext stored secret still matches", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "olduser", map[string]any{
			"role":       "user",
			"status":     "active",
			"serverId":   "#100",
			"allianceId": "ABC",
			"password":   "plain-secret",
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "olduser", "plain-secret", Scope{})
		require.NoError(t, err)
		assert.Equal(t, RoleUser, identity.Role)
	})

	t.Run("pending account rejected after secret check", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "pat", map[string]any{
			"role":       "user",
			"status":     "pending",
			"serverId":   "#100",
			"allianceId": "ABC",
			"password":   hasher.Digest("pw1"),
		})
		r := newTestResolver(t, store)

		_, err := r.Resolve(context.Background(), "pat", "pw1", Scope{})
		assert.ErrorIs(t, err, ErrAccountNotActive)

		// Wrong secret reports the mismatch, not the account state.
		_, err = r.Resolve(context.Background(), "pat", "wrong", Scope{})
		assert.ErrorIs(t, err, ErrSecretMismatch)
	})

	t.Run("global role takes hinted scope", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "ops", map[string]any{
			"role":     "super_admin",
			"status":   "active",
			"password": hasher.Digest("pw1"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "ops", "pw1",
			Scope{ServerID: "#300", AllianceID: "DEF"})
		require.NoError(t, err)
		assert.Equal(t, RoleSuperAdmin, identity.Role)
		assert.Equal(t, Scope{ServerID: "#300", AllianceID: "DEF"}, identity.Scope)

		identity, err = r.Resolve(context.Background(), "ops", "pw1", Scope{})
		require.NoError(t, err)
		assert.Equal(t, Scope{ServerID: "#000", AllianceID: "SYSTEM"}, identity.Scope)
	})

	t.Run("scoped role without stored scope surfaces ScopeRequired", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.UsersCollection, "dana", map[string]any{
			"role":     "user",
			"status":   "active",
			"password": hasher.Digest("pw1"),
		})
		r := newTestResolver(t, store)

		_, err := r.Resolve(context.Background(), "dana", "pw1",
			Scope{ServerID: "#100", AllianceID: "ABC"})
		assert.ErrorIs(t, err, ErrScopeRequired)
	})
}

func TestResolveLegacySources(t *testing.T) {
	t.Parallel()

	hasher := NewSHA256Hasher()
	hint := Scope{ServerID: "#200", AllianceID: "XYZ"}

	t.Run("legacy admin by key", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "bob", map[string]any{
			"password": hasher.Digest("adminpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "bob", "adminpw", hint)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, identity.Role)
		assert.Equal(t, hint, identity.Scope)
	})

	t.Run("legacy admin by name field", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "bob-key", map[string]any{
			"name":     "Bobby",
			"password": hasher.Digest("adminpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "Bobby", "adminpw", hint)
		require.NoError(t, err)
		assert.Equal(t, "bob-key", identity.Identifier)
	})

	t.Run("server id in hint is normalized", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "bob", map[string]any{
			"password": hasher.Digest("adminpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "bob", "adminpw",
			Scope{ServerID: "200", AllianceID: "XYZ"})
		require.NoError(t, err)
		assert.Equal(t, "#200", identity.Scope.ServerID)
	})

	t.Run("legacy member role is always user", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.MembersCollection("#200", "XYZ"), "carol", map[string]any{
			"role":     "alliance_admin",
			"password": hasher.Digest("memberpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "carol", "memberpw", hint)
		require.NoError(t, err)
		assert.Equal(t, RoleUser, identity.Role)
	})

	t.Run("legacy member by nickname field", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.MembersCollection("#200", "XYZ"), "carol-key", map[string]any{
			"nickname": "CC",
			"password": hasher.Digest("memberpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "CC", "memberpw", hint)
		require.NoError(t, err)
		assert.Equal(t, "carol-key", identity.Identifier)
	})

	t.Run("admins searched before members", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "dual", map[string]any{
			"password": hasher.Digest("adminpw"),
		})
		seedDoc(t, store, docstore.MembersCollection("#200", "XYZ"), "dual", map[string]any{
			"password": hasher.Digest("memberpw"),
		})
		r := newTestResolver(t, store)

		identity, err := r.Resolve(context.Background(), "dual", "adminpw", hint)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, identity.Role)

		// The admin match is terminal; the member record's secret cannot
		// be used to slip past it.
		_, err = r.Resolve(context.Background(), "dual", "memberpw", hint)
		assert.ErrorIs(t, err, ErrSecretMismatch)
	})

	t.Run("skipped entirely without a full scope hint", func(t *testing.T) {
		t.Parallel()
		store := memory.New()
		seedDoc(t, store, docstore.AdminsCollection("#200", "XYZ"), "charlie", map[string]any{
			"password": hasher.Digest("pw"),
		})
		r := newTestResolver(t, store)

		_, err := r.Resolve(context.Background(), "charlie", "pw", Scope{})
		assert.ErrorIs(t, err, ErrPrincipalNotFound)

		_, err = r.Resolve(context.Background(), "charlie", "pw", Scope{ServerID: "#200"})
		assert.ErrorIs(t, err, ErrPrincipalNotFound)
	})
}

func TestResolveUnknownIdentifier(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, memory.New())

	_, err := r.Resolve(context.Background(), "nobody", "pw",
		Scope{ServerID: "#100", AllianceID: "ABC"})
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}

func TestResolveRecordsRecency(t *testing.T) {
	t.Parallel()

	store := memory.New()
	hasher := NewSHA256Hasher()
	seedDoc(t, store, docstore.UsersCollection, "alice", map[string]any{
		"role":       "user",
		"status":     "active",
		"serverId":   "#100",
		"allianceId": "ABC",
		"password":   hasher.Digest("pw1"),
	})

	spy := newRecorderSpy()
	r := newTestResolver(t, store, WithRecencyRecorder(spy))

	_, err := r.Resolve(context.Background(), "alice", "pw1", Scope{})
	require.NoError(t, err)

	assert.Equal(t, []string{"#100"}, spy.calls[RecentServers])
	assert.Equal(t, []string{"ABC"}, spy.calls[RecentAlliances])
	assert.Equal(t, []string{"alice"}, spy.calls[RecentUserIDs])

	// Failures record nothing.
	_, err = r.Resolve(context.Background(), "alice", "wrong", Scope{})
	require.ErrorIs(t, err, ErrSecretMismatch)
	assert.Len(t, spy.calls[RecentUserIDs], 1)
}

func TestEnterScope(t *testing.T) {
	t.Parallel()

	spy := newRecorderSpy()
	r := newTestResolver(t, memory.New(), WithRecencyRecorder(spy))

	scope, err := r.EnterScope("245", " ABC ")
	require.NoError(t, err)
	assert.Equal(t, Scope{ServerID: "#245", AllianceID: "ABC"}, scope)
	assert.Equal(t, []string{"#245"}, spy.calls[RecentServers])
	assert.Equal(t, []string{"ABC"}, spy.calls[RecentAlliances])
	assert.Empty(t, spy.calls[RecentUserIDs])

	_, err = r.EnterScope("245", "")
	assert.ErrorIs(t, err, ErrScopeRequired)
}
