// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
	"github.com/alliancegate/alliancegate/internal/docstore"
)

// NewRequestsCmd creates the requests subcommand group.
func NewRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Manage pending alliance requests",
	}
	cmd.AddCommand(newRequestsListCmd())
	cmd.AddCommand(newRequestsApproveCmd())
	cmd.AddCommand(newRequestsRejectCmd())
	cmd.AddCommand(newRequestsResetPasswordCmd())
	cmd.AddCommand(newRequestsDeleteCmd())
	return cmd
}

func newRequestsListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alliance requests, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := store.QueryOrdered(cmd.Context(),
				docstore.AllianceRequestsCollection, "requestedAt", docstore.Descending)
			if err != nil {
				return err
			}

			for _, doc := range docs {
				req := auth.RequestFromDocument(doc)
				if !all && req.Status != auth.StatusPending {
					continue
				}
				printRequest(cmd, req)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include decided requests")
	return cmd
}

func newRequestsApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <request-id>...",
		Short: "Approve alliance requests",
		Long: `Approve one or more alliance requests. A single approval checks that no
user record exists at the request's admin id; multiple approvals go as
one atomic batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
			reqs, err := loadRequests(cmd.Context(), store, args)
			if err != nil {
				return err
			}

			if len(reqs) == 1 {
				if err := approver.Approve(cmd.Context(), reqs[0]); err != nil {
					cmd.PrintErrln(auth.UserMessage(err))
					return err
				}
			} else if err := approver.BulkApprove(cmd.Context(), reqs); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}

			cmd.Printf("Approved %d request(s)\n", len(reqs))
			return nil
		},
	}
}

func newRequestsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <request-id>...",
		Short: "Reject alliance requests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
			reqs, err := loadRequests(cmd.Context(), store, args)
			if err != nil {
				return err
			}

			if len(reqs) == 1 {
				err = approver.Reject(cmd.Context(), reqs[0])
			} else {
				err = approver.BulkReject(cmd.Context(), reqs)
			}
			if err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}

			cmd.Printf("Rejected %d request(s)\n", len(reqs))
			return nil
		},
	}
}

func newRequestsResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <admin-id>",
		Short: "Reset an alliance admin's password to the well-known reset value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
			if err := approver.ResetAdminSecret(cmd.Context(), args[0]); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Password for %s reset\n", args[0])
			return nil
		},
	}
}

func newRequestsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <request-id>",
		Short: "Delete an alliance: its admin account and the originating request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
			reqs, err := loadRequests(cmd.Context(), store, args)
			if err != nil {
				return err
			}
			if err := approver.DeleteAlliance(cmd.Context(), reqs[0]); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Alliance for request %s deleted\n", args[0])
			return nil
		},
	}
}

func loadRequests(ctx context.Context, store docstore.Store, keys []string) ([]auth.AllianceRequest, error) {
	reqs := make([]auth.AllianceRequest, 0, len(keys))
	for _, key := range keys {
		doc, err := store.GetByKey(ctx, docstore.AllianceRequestsCollection, key)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, auth.RequestFromDocument(doc))
	}
	return reqs, nil
}

func printRequest(cmd *cobra.Command, req auth.AllianceRequest) {
	requested := time.UnixMilli(req.RequestedAt).UTC().Format(time.RFC3339)
	cmd.Printf("%s  %-8s  %s/%s (%s)  admin=%s  requested=%s\n",
		req.Key, req.Status, req.ServerID, req.AllianceID, req.AllianceName,
		req.AdminID, requested)
}
