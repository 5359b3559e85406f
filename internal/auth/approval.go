// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

// Approver promotes pending alliance requests into active credential
// records and manages the super-admin roster.
type Approver struct {
	store  docstore.Store
	hasher SecretHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewApprover creates an Approver.
func NewApprover(store docstore.Store, hasher SecretHasher, logger *slog.Logger) *Approver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Approver{
		store:  store,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// Approve promotes one pending request: it creates an active alliance_admin
// user keyed by the request's admin id and marks the request approved, in
// one atomic batch. Approving over an existing users record would silently
// replace an unrelated account, so that is rejected up front.
func (a *Approver) Approve(ctx context.Context, req AllianceRequest) error {
	_, err := a.store.GetByKey(ctx, docstore.UsersCollection, req.AdminID)
	switch {
	case err == nil:
		recordDecision("approve_conflict")
		return oops.Code("AUTH_ADMIN_ID_CONFLICT").
			With("admin_id", req.AdminID).
			Wrap(ErrAdminIDConflict)
	case !errors.Is(err, docstore.ErrNotFound):
		return approvalStoreFailure("check admin id uniqueness", err)
	}

	batch := a.store.Batch()
	a.stageApproval(batch, req)
	if err := batch.Commit(ctx); err != nil {
		return approvalStoreFailure("commit approval", err)
	}

	recordDecision("approve")
	a.logger.Info("alliance request approved",
		"request_id", req.Key,
		"admin_id", req.AdminID,
		"server_id", req.ServerID,
		"alliance_id", req.AllianceID,
	)
	return nil
}

// Reject marks the request rejected. No other side effects.
func (a *Approver) Reject(ctx context.Context, req AllianceRequest) error {
	fields := map[string]any{
		"status":    string(StatusRejected),
		"decidedAt": a.now().UnixMilli(),
	}
	if err := a.store.Put(ctx, docstore.AllianceRequestsCollection, req.Key, fields, true); err != nil {
		return approvalStoreFailure("mark request rejected", err)
	}
	recordDecision("reject")
	a.logger.Info("alliance request rejected", "request_id", req.Key, "admin_id", req.AdminID)
	return nil
}

// BulkApprove applies every approval in one atomic batch.
//
// Unlike Approve, the bulk path performs no per-item admin-id uniqueness
// check, so a request whose admin id collides with an existing user record
// overwrites it. Known gap carried over from earlier clients; confirm the
// intended behavior before tightening it.
func (a *Approver) BulkApprove(ctx context.Context, reqs []AllianceRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	batch := a.store.Batch()
	for _, req := range reqs {
		a.stageApproval(batch, req)
	}
	if err := batch.Commit(ctx); err != nil {
		return approvalStoreFailure("commit bulk approval", err)
	}
	for range reqs {
		recordDecision("bulk_approve")
	}
	a.logger.Info("alliance requests bulk approved", "count", len(reqs))
	return nil
}

// BulkReject marks every request rejected in one atomic batch.
func (a *Approver) BulkReject(ctx context.Context, reqs []AllianceRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	decidedAt := a.now().UnixMilli()
	batch := a.store.Batch()
	for _, req := range reqs {
		batch.Update(docstore.AllianceRequestsCollection, req.Key, map[string]any{
			"status":    string(StatusRejected),
			"decidedAt": decidedAt,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		return approvalStoreFailure("commit bulk rejection", err)
	}
	for range reqs {
		recordDecision("bulk_reject")
	}
	a.logger.Info("alliance requests bulk rejected", "count", len(reqs))
	return nil
}

func (a *Approver) stageApproval(batch docstore.Batch, req AllianceRequest) {
	batch.Set(docstore.UsersCollection, req.AdminID, map[string]any{
		"username":   req.AdminID,
		"role":       string(RoleAllianceAdmin),
		"status":     string(StatusActive),
		"password":   req.SecretDigest,
		"serverId":   req.ServerID,
		"allianceId": req.AllianceID,
		"createdAt":  a.now().UnixMilli(),
	}, false)
	batch.Update(docstore.AllianceRequestsCollection, req.Key, map[string]any{
		"status":    string(StatusApproved),
		"decidedAt": a.now().UnixMilli(),
	})
}

// ResetAdminSecret resets an admin's stored secret to the digest of the
// well-known reset value "1234". The admin is expected to change it on the
// next login.
func (a *Approver) ResetAdminSecret(ctx context.Context, adminID string) error {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}

	_, err := a.store.GetByKey(ctx, docstore.UsersCollection, adminID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return oops.Code("AUTH_PRINCIPAL_NOT_FOUND").
			With("admin_id", adminID).
			Wrap(ErrPrincipalNotFound)
	case err != nil:
		return approvalStoreFailure("load admin for secret reset", err)
	}

	fields := map[string]any{"password": a.hasher.Digest("1234")}
	if err := a.store.Put(ctx, docstore.UsersCollection, adminID, fields, true); err != nil {
		return approvalStoreFailure("reset admin secret", err)
	}
	a.logger.Info("admin secret reset", "admin_id", adminID)
	return nil
}

// DeleteAlliance removes an approved alliance: the admin's user record and
// the originating request go together in one batch.
func (a *Approver) DeleteAlliance(ctx context.Context, req AllianceRequest) error {
	batch := a.store.Batch()
	batch.Delete(docstore.UsersCollection, req.AdminID)
	batch.Delete(docstore.AllianceRequestsCollection, req.Key)
	if err := batch.Commit(ctx); err != nil {
		return approvalStoreFailure("delete alliance", err)
	}
	a.logger.Info("alliance deleted",
		"request_id", req.Key,
		"admin_id", req.AdminID,
		"alliance_id", req.AllianceID,
	)
	return nil
}

// SuperAdmin is one entry in the sys_admins roster.
type SuperAdmin struct {
	Key     string
	Name    string
	AddedAt int64
}

func superAdminFromDocument(doc docstore.Document) SuperAdmin {
	return SuperAdmin{
		Key:     doc.Key,
		Name:    doc.String("name"),
		AddedAt: doc.Int64("addedAt"),
	}
}

// AddSuperAdmin records an operator in the sys_admins roster. The roster
// is informational; authorization still comes from the matched credential
// record's role.
func (a *Approver) AddSuperAdmin(ctx context.Context, adminID, name string) error {
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}
	fields := map[string]any{
		"name":    strings.TrimSpace(name),
		"addedAt": a.now().UnixMilli(),
	}
	if err := a.store.Put(ctx, docstore.SysAdminsCollection, adminID, fields, false); err != nil {
		return approvalStoreFailure("add super admin", err)
	}
	return nil
}

// RemoveSuperAdmin drops an operator from the sys_admins roster.
func (a *Approver) RemoveSuperAdmin(ctx context.Context, adminID string) error {
	if err := a.store.Delete(ctx, docstore.SysAdminsCollection, strings.TrimSpace(adminID)); err != nil {
		return approvalStoreFailure("remove super admin", err)
	}
	return nil
}

// ListSuperAdmins returns the roster, most recently added first.
func (a *Approver) ListSuperAdmins(ctx context.Context) ([]SuperAdmin, error) {
	docs, err := a.store.QueryOrdered(ctx, docstore.SysAdminsCollection, "addedAt", docstore.Descending)
	if err != nil {
		return nil, approvalStoreFailure("list super admins", err)
	}
	admins := make([]SuperAdmin, 0, len(docs))
	for _, doc := range docs {
		admins = append(admins, superAdminFromDocument(doc))
	}
	return admins, nil
}

// RequestFeed is a live view of the alliance_requests collection, newest
// first. Stop must be called; the subscription outlives any reader that
// walks away.
type RequestFeed struct {
	updates <-chan []AllianceRequest
	stop    func()
}

// Updates delivers the full request list on every change.
func (f *RequestFeed) Updates() <-chan []AllianceRequest { return f.updates }

// Stop tears down the underlying subscription.
func (f *RequestFeed) Stop() { f.stop() }

// WatchRequests opens a live feed of alliance requests ordered by
// requestedAt descending.
func (a *Approver) WatchRequests(ctx context.Context) (*RequestFeed, error) {
	sub, err := a.store.Subscribe(ctx, docstore.AllianceRequestsCollection)
	if err != nil {
		return nil, approvalStoreFailure("subscribe to alliance requests", err)
	}

	out := make(chan []AllianceRequest, 1)
	go func() {
		defer close(out)
		for docs := range sub.Updates() {
			reqs := make([]AllianceRequest, 0, len(docs))
			for _, doc := range docs {
				reqs = append(reqs, RequestFromDocument(doc))
			}
			sort.SliceStable(reqs, func(i, j int) bool {
				return reqs[i].RequestedAt > reqs[j].RequestedAt
			})
			select {
			case out <- reqs:
			default:
				// Reader is behind; replace the stale snapshot.
				select {
				case <-out:
				default:
				}
				out <- reqs
			}
		}
	}()

	return &RequestFeed{updates: out, stop: sub.Unsubscribe}, nil
}

// SuperAdminFeed is a live view of the sys_admins roster, most recently
// added first.
type SuperAdminFeed struct {
	updates <-chan []SuperAdmin
	stop    func()
}

// Updates delivers the full roster on every change.
func (f *SuperAdminFeed) Updates() <-chan []SuperAdmin { return f.updates }

// Stop tears down the underlying subscription.
func (f *SuperAdminFeed) Stop() { f.stop() }

// WatchSuperAdmins opens a live feed of the sys_admins roster ordered by
// addedAt descending.
func (a *Approver) WatchSuperAdmins(ctx context.Context) (*SuperAdminFeed, error) {
	sub, err := a.store.Subscribe(ctx, docstore.SysAdminsCollection)
	if err != nil {
		return nil, approvalStoreFailure("subscribe to super admins", err)
	}

	out := make(chan []SuperAdmin, 1)
	go func() {
		defer close(out)
		for docs := range sub.Updates() {
			admins := make([]SuperAdmin, 0, len(docs))
			for _, doc := range docs {
				admins = append(admins, superAdminFromDocument(doc))
			}
			sort.SliceStable(admins, func(i, j int) bool {
				return admins[i].AddedAt > admins[j].AddedAt
			})
			select {
			case out <- admins:
			default:
				// Reader is behind; replace the stale snapshot.
				select {
				case <-out:
				default:
				}
				out <- admins
			}
		}
	}()

	return &SuperAdminFeed{updates: out, stop: sub.Unsubscribe}, nil
}

// SeedSuperAdmin ensures the built-in super_admin user record exists.
// Idempotent; an existing record is left untouched.
func (a *Approver) SeedSuperAdmin(ctx context.Context) error {
	_, err := a.store.GetByKey(ctx, docstore.UsersCollection, "admin")
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, docstore.ErrNotFound):
		return approvalStoreFailure("check seed user", err)
	}

	fields := map[string]any{
		"username":  "admin",
		"role":      string(RoleSuperAdmin),
		"status":    string(StatusActive),
		"password":  a.hasher.Digest("wos1234"),
		"createdAt": a.now().UnixMilli(),
	}
	if err := a.store.Put(ctx, docstore.UsersCollection, "admin", fields, false); err != nil {
		return approvalStoreFailure("write seed user", err)
	}
	a.logger.Info("seeded built-in super admin")
	return nil
}

func approvalStoreFailure(operation string, err error) error {
	return oops.Code("AUTH_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}
