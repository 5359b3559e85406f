// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package roster manages the per-alliance member list: live feeds, bulk
// imports, and member maintenance operations.
package roster

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/docstore"
)

// DefaultReadinessTimeout bounds how long a feed waits for its first
// snapshot before reporting ready anyway. The subscription itself is not
// cancelled; only the perceived loading state is.
const DefaultReadinessTimeout = 5 * time.Second

// Member is one alliance roster entry.
type Member struct {
	Key       string
	Nickname  string
	Level     int64
	Power     int64
	UpdatedAt int64
}

func memberFromDocument(doc docstore.Document) Member {
	return Member{
		Key:       doc.Key,
		Nickname:  doc.String("nickname"),
		Level:     doc.Int64("level"),
		Power:     doc.Int64("power"),
		UpdatedAt: doc.Int64("updatedAt"),
	}
}

func (m Member) fields(now int64) map[string]any {
	return map[string]any{
		"nickname":  m.Nickname,
		"level":     m.Level,
		"power":     m.Power,
		"updatedAt": now,
	}
}

// Service owns roster operations for any alliance scope.
type Service struct {
	store   docstore.Store
	hasher  auth.SecretHasher
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithReadinessTimeout overrides the feed readiness bound.
func WithReadinessTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New creates a roster Service.
func New(store docstore.Store, hasher auth.SecretHasher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:   store,
		hasher:  hasher,
		logger:  logger,
		timeout: DefaultReadinessTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Feed is a live member list for one alliance, sorted by nickname. Ready
// closes when the first snapshot arrives or the readiness bound elapses,
// whichever comes first; the feed keeps delivering either way. Stop must
// be called.
type Feed struct {
	updates <-chan []Member
	ready   <-chan struct{}
	stop    func()
}

// Updates delivers the full member list on every change.
func (f *Feed) Updates() <-chan []Member { return f.updates }

// Ready closes once the feed should be considered loaded.
func (f *Feed) Ready() <-chan struct{} { return f.ready }

// Stop tears down the underlying subscription.
func (f *Feed) Stop() { f.stop() }

// Watch opens a live member feed for the scope.
func (s *Service) Watch(ctx context.Context, scope auth.Scope) (*Feed, error) {
	if !scope.Complete() {
		return nil, oops.Code("ROSTER_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)
	sub, err := s.store.Subscribe(ctx, collection)
	if err != nil {
		return nil, storeFailure("subscribe to members", err)
	}

	out := make(chan []Member, 1)
	ready := make(chan struct{})
	var once sync.Once
	markReady := func() { once.Do(func() { close(ready) }) }

	go func() {
		defer close(out)
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		for {
			select {
			case docs, ok := <-sub.Updates():
				if !ok {
					markReady()
					return
				}
				markReady()
				members := make([]Member, 0, len(docs))
				for _, doc := range docs {
					members = append(members, memberFromDocument(doc))
				}
				sort.Slice(members, func(i, j int) bool {
					return members[i].Nickname < members[j].Nickname
				})
				select {
				case out <- members:
				default:
					select {
					case <-out:
					default:
					}
					out <- members
				}
			case <-timer.C:
				s.logger.Warn("member feed readiness timed out, marking loaded",
					"server_id", scope.ServerID,
					"alliance_id", scope.AllianceID,
				)
				markReady()
			}
		}
	}()

	return &Feed{updates: out, ready: ready, stop: sub.Unsubscribe}, nil
}

// SaveMembers merges a batch of members into the roster in one atomic
// batch. Existing fields not named by the import survive.
func (s *Service) SaveMembers(ctx context.Context, scope auth.Scope, members []Member) error {
	if !scope.Complete() {
		return oops.Code("ROSTER_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	if len(members) == 0 {
		return nil
	}
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)
	now := s.now().UnixMilli()

	batch := s.store.Batch()
	for _, m := range members {
		key := strings.TrimSpace(m.Key)
		if key == "" {
			key = strings.TrimSpace(m.Nickname)
		}
		if key == "" {
			continue
		}
		batch.Set(collection, key, m.fields(now), true)
	}
	if err := batch.Commit(ctx); err != nil {
		return storeFailure("save members", err)
	}
	s.logger.Info("roster saved", "count", len(members), "alliance_id", scope.AllianceID)
	return nil
}

// ClearMembers removes every member of the alliance in one batch.
func (s *Service) ClearMembers(ctx context.Context, scope auth.Scope) error {
	if !scope.Complete() {
		return oops.Code("ROSTER_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)

	docs, err := s.store.QueryOrdered(ctx, collection, "nickname", docstore.Ascending)
	if err != nil {
		return storeFailure("list members for clear", err)
	}
	if len(docs) == 0 {
		return nil
	}

	batch := s.store.Batch()
	for _, doc := range docs {
		batch.Delete(collection, doc.Key)
	}
	if err := batch.Commit(ctx); err != nil {
		return storeFailure("clear members", err)
	}
	s.logger.Info("roster cleared", "count", len(docs), "alliance_id", scope.AllianceID)
	return nil
}

// DeleteMember removes one member. Deleting a missing member is not an
// error; the store's delete is idempotent.
func (s *Service) DeleteMember(ctx context.Context, scope auth.Scope, key string) error {
	if !scope.Complete() {
		return oops.Code("ROSTER_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)
	if err := s.store.Delete(ctx, collection, key); err != nil {
		return storeFailure("delete member", err)
	}
	return nil
}

// UpdateMemberSecret replaces a member's stored secret with the digest of
// the new one.
func (s *Service) UpdateMemberSecret(ctx context.Context, scope auth.Scope, key, secret string) error {
	if !scope.Complete() {
		return oops.Code("ROSTER_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return oops.Code("ROSTER_MISSING_SECRET").Wrap(auth.ErrMissingCredentials)
	}
	collection := docstore.MembersCollection(scope.ServerID, scope.AllianceID)

	_, err := s.store.GetByKey(ctx, collection, key)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return oops.Code("ROSTER_MEMBER_NOT_FOUND").
			With("member", key).
			Wrap(auth.ErrPrincipalNotFound)
	case err != nil:
		return storeFailure("load member for secret update", err)
	}

	fields := map[string]any{"password": s.hasher.Digest(secret)}
	if err := s.store.Put(ctx, collection, key, fields, true); err != nil {
		return storeFailure("update member secret", err)
	}
	return nil
}

func storeFailure(operation string, err error) error {
	return oops.Code("ROSTER_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(auth.ErrStoreUnavailable, err))
}
