// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

// Package settings reads and writes per-alliance settings documents. Each
// setting is one document in the alliance's settings collection, keyed by
// setting name, with free-form fields.
package settings

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/docstore"
)

// Service owns settings access for any alliance scope.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
}

// New creates a settings Service.
func New(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Get returns a setting's fields. Missing settings return
// docstore.ErrNotFound so callers can fall back to defaults.
func (s *Service) Get(ctx context.Context, scope auth.Scope, name string) (map[string]any, error) {
	if !scope.Complete() {
		return nil, oops.Code("SETTINGS_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.SettingsCollection(scope.ServerID, scope.AllianceID)
	doc, err := s.store.GetByKey(ctx, collection, name)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, storeFailure("get setting", err)
	}
	return doc.Fields, nil
}

// Set merges fields into the setting document, creating it if absent.
// Fields not named survive; a setting is never replaced wholesale.
func (s *Service) Set(ctx context.Context, scope auth.Scope, name string, fields map[string]any) error {
	if !scope.Complete() {
		return oops.Code("SETTINGS_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.SettingsCollection(scope.ServerID, scope.AllianceID)
	if err := s.store.Put(ctx, collection, name, fields, true); err != nil {
		return storeFailure("set setting", err)
	}
	s.logger.Debug("setting updated", "setting", name, "alliance_id", scope.AllianceID)
	return nil
}

// Watch opens a live stream over the alliance's settings collection. The
// caller must call Unsubscribe on the returned subscription.
func (s *Service) Watch(ctx context.Context, scope auth.Scope) (docstore.Subscription, error) {
	if !scope.Complete() {
		return nil, oops.Code("SETTINGS_SCOPE_REQUIRED").Wrap(auth.ErrScopeRequired)
	}
	collection := docstore.SettingsCollection(scope.ServerID, scope.AllianceID)
	sub, err := s.store.Subscribe(ctx, collection)
	if err != nil {
		return nil, storeFailure("subscribe to settings", err)
	}
	return sub, nil
}

func storeFailure(operation string, err error) error {
	return oops.Code("SETTINGS_STORE_UNAVAILABLE").
		With("operation", operation).
		Wrap(errors.Join(auth.ErrStoreUnavailable, err))
}
