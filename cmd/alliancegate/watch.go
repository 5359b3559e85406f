// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/observability"
)

// NewWatchCmd creates the watch subcommand.
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch alliance requests live",
		Long: `Follow the alliance request feed, printing the pending list whenever it
changes. Also serves metrics and health probes until interrupted.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Readiness tracks the store, not the feed: a stalled subscription
	// still reports ready as long as the database answers.
	obs := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		return store.Ping(pingCtx) == nil
	})
	obsErr, err := obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if stopErr := obs.Stop(stopCtx); stopErr != nil {
			slog.Error("failed to stop observability server", "error", stopErr)
		}
	}()

	approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
	feed, err := approver.WatchRequests(ctx)
	if err != nil {
		return err
	}
	defer feed.Stop()

	cmd.Println("Watching alliance requests (ctrl-c to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case serveErr := <-obsErr:
			if serveErr != nil {
				return serveErr
			}
		case reqs, ok := <-feed.Updates():
			if !ok {
				return nil
			}
			pending := 0
			for _, req := range reqs {
				if req.Status == auth.StatusPending {
					pending++
					printRequest(cmd, req)
				}
			}
			cmd.Printf("-- %d pending of %d total --\n", pending, len(reqs))
		}
	}
}
