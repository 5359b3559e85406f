// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/docstore"
)

// Profile is the self-registration input.
type Profile struct {
	Identifier string
	Username   string
	Nickname   string
}

// AllianceRequest is a pending registration for an alliance admin account.
// Requests are never deleted automatically; they carry their decision in
// the Status field.
type AllianceRequest struct {
	Key          string
	ServerID     string
	AllianceID   string
	AllianceName string
	AdminID      string
	SecretDigest string
	Contact      string
	Status       Status
	RequestedAt  int64
}

// RequestFromDocument maps a stored alliance_requests document.
func RequestFromDocument(doc docstore.Document) AllianceRequest {
	return AllianceRequest{
		Key:          doc.Key,
		ServerID:     doc.String("serverId"),
		AllianceID:   doc.String("allianceId"),
		AllianceName: doc.String("allianceName"),
		AdminID:      doc.String("adminId"),
		SecretDigest: doc.String("adminPasswordDigest"),
		Contact:      doc.String("contact"),
		Status:       Status(doc.String("status")),
		RequestedAt:  doc.Int64("requestedAt"),
	}
}

// Registrar creates pending credential records and alliance requests. It
// never creates sessions and never promotes anything; promotion belongs to
// the Approver.
type Registrar struct {
	store  docstore.Store
	hasher SecretHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistrar creates a Registrar.
func NewRegistrar(store docstore.Store, hasher SecretHasher, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		store:  store,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// Register writes a new pending user record. The identifier must not
// already exist in the users collection.
//
// The existence check and the write are not one atomic unit; two
// concurrent registrations for the same identifier can both pass the
// check. Last writer wins, which the domain accepts.
func (r *Registrar) Register(ctx context.Context, profile Profile, secret string) error {
	identifier := strings.TrimSpace(profile.Identifier)
	secret = strings.TrimSpace(secret)
	if identifier == "" || secret == "" {
		return oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}

	_, err := r.store.GetByKey(ctx, docstore.UsersCollection, identifier)
	switch {
	case err == nil:
		return oops.Code("AUTH_ALREADY_EXISTS").
			With("identifier", identifier).
			Wrap(ErrAlreadyExists)
	case !errors.Is(err, docstore.ErrNotFound):
		return registrationStoreFailure("check registration uniqueness", err)
	}

	fields := map[string]any{
		"username":  profile.Username,
		"nickname":  profile.Nickname,
		"role":      string(RoleUser),
		"status":    string(StatusPending),
		"password":  r.hasher.Digest(secret),
		"createdAt": r.now().UnixMilli(),
	}
	if err := r.store.Put(ctx, docstore.UsersCollection, identifier, fields, false); err != nil {
		return registrationStoreFailure("write pending user", err)
	}

	r.logger.Info("registration submitted", "identifier", identifier)
	return nil
}

// SubmitAllianceRequest writes a pending alliance request. Duplicates
// against existing requests are allowed; the approver dedupes.
func (r *Registrar) SubmitAllianceRequest(ctx context.Context, serverID, allianceID, allianceName, adminID, secret, contact string) error {
	serverID = NormalizeServerID(serverID)
	allianceID = strings.TrimSpace(allianceID)
	adminID = strings.TrimSpace(adminID)
	secret = strings.TrimSpace(secret)

	if serverID == "" || allianceID == "" {
		return oops.Code("AUTH_SCOPE_REQUIRED").Wrap(ErrScopeRequired)
	}
	if adminID == "" || secret == "" {
		return oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}

	key := ulid.Make().String()
	fields := map[string]any{
		"serverId":            serverID,
		"allianceId":          allianceID,
		"allianceName":        strings.TrimSpace(allianceName),
		"adminId":             adminID,
		"adminPasswordDigest": r.hasher.Digest(secret),
		"contact":             strings.TrimSpace(contact),
		"status":              string(StatusPending),
		"requestedAt":         r.now().UnixMilli(),
	}
	if err := r.store.Put(ctx, docstore.AllianceRequestsCollection, key, fields, false); err != nil {
		return registrationStoreFailure("write alliance request", err)
	}

	r.logger.Info("alliance request submitted",
		"request_id", key,
		"server_id", serverID,
		"alliance_id", allianceID,
		"admin_id", adminID,
	)
	return nil
}

func registrationStoreFailure(operation string, err error) error {
	return oops.Code("AUTH_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}
