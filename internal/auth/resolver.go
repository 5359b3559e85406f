// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

// Resolver decides identity and role for a raw (identifier, secret) pair by
// consulting credential sources in strict priority order: hardcoded
// masters, the global users collection, then the legacy per-alliance admins
// and members collections. First identifier match wins; a matched
// identifier with a wrong secret terminates immediately instead of falling
// through.
type Resolver struct {
	store    docstore.Store
	verifier *SecretVerifier
	masters  []masterCredential
	recents  RecencyRecorder
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRecencyRecorder wires the recorder that captures successful-login
// values for form prepopulation.
func WithRecencyRecorder(rec RecencyRecorder) ResolverOption {
	return func(r *Resolver) { r.recents = rec }
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver over the given store and hasher.
func NewResolver(store docstore.Store, hasher SecretHasher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		verifier: NewSecretVerifier(hasher),
		masters:  defaultMasters,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve validates the credentials and returns the caller's identity, role
// and scope. scopeHint carries the server/alliance the caller typed into
// the gate form; legacy sources cannot be searched without it.
func (r *Resolver) Resolve(ctx context.Context, identifier, secret string, scopeHint Scope) (Identity, error) {
	identifier = strings.TrimSpace(identifier)
	secret = strings.TrimSpace(secret)
	scopeHint.ServerID = NormalizeServerID(scopeHint.ServerID)
	scopeHint.AllianceID = strings.TrimSpace(scopeHint.AllianceID)

	if identifier == "" || secret == "" {
		recordResolution("none", "missing_credentials")
		return Identity{}, oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}

	// 1. Hardcoded masters. A match here short-circuits every other source,
	// so a users record sharing the identifier can never shadow a master.
	if m, ok := lookupMaster(r.masters, identifier); ok {
		return r.authenticateMaster(identifier, secret, m, scopeHint)
	}

	// 2. Global users: key lookup, then username field, then nickname field.
	principal, found, err := r.findGlobalUser(ctx, identifier)
	if err != nil {
		return Identity{}, err
	}
	if found {
		return r.authenticate(principal, secret, scopeHint)
	}

	// 3/4. Legacy per-alliance sources are only searchable with a full
	// scope hint; without one they are skipped entirely.
	if scopeHint.Complete() {
		principal, found, err = r.findLegacyAdmin(ctx, identifier, scopeHint)
		if err != nil {
			return Identity{}, err
		}
		if found {
			return r.authenticate(principal, secret, scopeHint)
		}

		principal, found, err = r.findLegacyMember(ctx, identifier, scopeHint)
		if err != nil {
			return Identity{}, err
		}
		if found {
			return r.authenticate(principal, secret, scopeHint)
		}
	}

	recordResolution("none", "not_found")
	return Identity{}, oops.Code("AUTH_PRINCIPAL_NOT_FOUND").
		With("identifier", identifier).
		Wrap(ErrPrincipalNotFound)
}

// EnterScope establishes a browsing scope without authenticating. This is
// the lower-assurance "guest of alliance X" entry point, kept separate
// from Resolve.
func (r *Resolver) EnterScope(serverID, allianceID string) (Scope, error) {
	scope := Scope{
		ServerID:   NormalizeServerID(serverID),
		AllianceID: strings.TrimSpace(allianceID),
	}
	if !scope.Complete() {
		return Scope{}, oops.Code("AUTH_SCOPE_REQUIRED").Wrap(ErrScopeRequired)
	}
	if r.recents != nil {
		r.recents.Record(RecentServers, scope.ServerID)
		r.recents.Record(RecentAlliances, scope.AllianceID)
	}
	return scope, nil
}

func (r *Resolver) authenticateMaster(identifier, secret string, m masterCredential, scopeHint Scope) (Identity, error) {
	ok, strategy := r.verifier.Verify(secret, m.secretDigest)
	if !ok {
		recordResolution(SourceMaster.String(), "secret_mismatch")
		return Identity{}, oops.Code("AUTH_SECRET_MISMATCH").
			With("source", SourceMaster.String()).
			Wrap(ErrSecretMismatch)
	}

	scope := scopeHint
	if scope.ServerID == "" {
		scope.ServerID = DefaultMasterScope.ServerID
	}
	if scope.AllianceID == "" {
		scope.AllianceID = DefaultMasterScope.AllianceID
	}

	identity := Identity{Identifier: identifier, Role: RoleMaster, Scope: scope}
	r.finish(identity, strategy, SourceMaster)
	return identity, nil
}

// authenticate verifies a principal found in the store. The secret is
// always checked before status so callers without the secret learn nothing
// about the account's state.
func (r *Resolver) authenticate(p Principal, secret string, scopeHint Scope) (Identity, error) {
	ok, strategy := r.verifier.Verify(secret, p.StoredSecret())
	if !ok {
		recordResolution(p.Source.String(), "secret_mismatch")
		return Identity{}, oops.Code("AUTH_SECRET_MISMATCH").
			With("source", p.Source.String()).
			Wrap(ErrSecretMismatch)
	}

	if p.HasStatus() && p.Status != StatusActive {
		recordResolution(p.Source.String(), "not_active")
		return Identity{}, oops.Code("AUTH_ACCOUNT_NOT_ACTIVE").
			With("status", string(p.Status)).
			Wrap(ErrAccountNotActive)
	}

	scope, err := r.resolveScope(p, scopeHint)
	if err != nil {
		recordResolution(p.Source.String(), "scope_required")
		return Identity{}, err
	}

	identity := Identity{Identifier: p.Identifier, Role: p.Role, Scope: scope}
	r.finish(identity, strategy, p.Source)
	return identity, nil
}

// resolveScope picks the session scope for a matched principal. Scoped
// roles use the record's own scope; global roles operate inside the hinted
// alliance, defaulting to the system scope.
func (r *Resolver) resolveScope(p Principal, scopeHint Scope) (Scope, error) {
	if !p.Role.Scoped() {
		scope := scopeHint
		if scope.ServerID == "" {
			scope.ServerID = "#000"
		}
		if scope.AllianceID == "" {
			scope.AllianceID = "SYSTEM"
		}
		return scope, nil
	}
	if p.Scope.Complete() {
		return p.Scope, nil
	}
	// Historical clients silently fell through to legacy sources here;
	// surfacing the missing scope is the redesigned behavior.
	return Scope{}, oops.Code("AUTH_SCOPE_REQUIRED").
		With("identifier", p.Identifier).
		Wrap(ErrScopeRequired)
}

func (r *Resolver) finish(identity Identity, strategy MatchStrategy, source Source) {
	if strategy == LegacyPlaintextMatch {
		r.logger.Warn("secret matched via deprecated plaintext comparison",
			"identifier", identity.Identifier,
			"source", source.String(),
		)
	}
	if r.recents != nil {
		r.recents.Record(RecentServers, identity.Scope.ServerID)
		r.recents.Record(RecentAlliances, identity.Scope.AllianceID)
		r.recents.Record(RecentUserIDs, identity.Identifier)
	}
	recordResolution(source.String(), "success")
}

// findGlobalUser looks up the users collection by key, then by username
// field, then by nickname field. First non-empty result wins.
func (r *Resolver) findGlobalUser(ctx context.Context, identifier string) (Principal, bool, error) {
	doc, err := r.store.GetByKey(ctx, docstore.UsersCollection, identifier)
	if err == nil {
		return globalUserPrincipal(doc), true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Principal{}, false, r.storeFailure("get user by key", err)
	}

	for _, field := range []string{"username", "nickname"} {
		docs, qErr := r.store.QueryByField(ctx, docstore.UsersCollection, field, identifier)
		if qErr != nil {
			return Principal{}, false, r.storeFailure("query users by "+field, qErr)
		}
		if len(docs) > 0 {
			return globalUserPrincipal(docs[0]), true, nil
		}
	}
	return Principal{}, false, nil
}

// findLegacyAdmin looks up the per-alliance admins collection by key, then
// by name field.
func (r *Resolver) findLegacyAdmin(ctx context.Context, identifier string, scope Scope) (Principal, bool, error) {
	collection := docstore.AdminsCollection(scope.ServerID, scope.AllianceID)

	doc, err := r.store.GetByKey(ctx, collection, identifier)
	if err == nil {
		return legacyAdminPrincipal(doc, scope), true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Principal{}, false, r.storeFailure("get legacy admin by key", err)
	}

	docs, err := r.store.QueryByField(ctx, collection, "name", identifier)
	if err != nil {
		return Principal{}, false, r.storeFailure("query legacy admins by name", err)
	}
	if len(docs) > 0 {
		return legacyAdminPrincipal(docs[0], scope), true, nil
	}
	return Principal{}, false, nil
}

// findLegacyMember looks up the per-alliance members collection by key,
// then by nickname field.
func (r *Resolver) findLegacyMember(ctx context.Context, identifier string, scope Scope) (Principal, bool, error) {
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)

	doc, err := r.store.GetByKey(ctx, collection, identifier)
	if err == nil {
		return legacyMemberPrincipal(doc, scope), true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Principal{}, false, r.storeFailure("get legacy member by key", err)
	}

	docs, err := r.store.QueryByField(ctx, collection, "nickname", identifier)
	if err != nil {
		return Principal{}, false, r.storeFailure("query legacy members by nickname", err)
	}
	if len(docs) > 0 {
		return legacyMemberPrincipal(docs[0], scope), true, nil
	}
	return Principal{}, false, nil
}

// storeFailure converts an unexpected backend error into StoreUnavailable,
// keeping it distinct from authentication failures.
func (r *Resolver) storeFailure(operation string, err error) error {
	recordResolution("none", "store_unavailable")
	return oops.Code("AUTH_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}
