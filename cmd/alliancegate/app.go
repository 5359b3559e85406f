// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"context"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/config"
	"github.com/alliancegate/alliancegate/internal/docstore/postgres"
	"github.com/alliancegate/alliancegate/internal/prefs"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(configFile, cmd.Flags())
}

func openStore(ctx context.Context, cfg config.Config) (*postgres.Store, error) {
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return store, nil
}

func openPrefs(cfg config.Config) (*prefs.Prefs, error) {
	return prefs.Open(cfg.StateDir)
}

// newSession wires the resolver and session manager over the store, with
// recency lists and session snapshots persisted through prefs.
func newSession(store *postgres.Store, p *prefs.Prefs) *auth.SessionManager {
	resolver := auth.NewResolver(store, auth.NewSHA256Hasher(),
		auth.WithRecencyRecorder(p),
	)
	return auth.NewSessionManager(resolver, store, p, nil)
}
