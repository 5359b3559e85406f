// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
)

// NewSysAdminCmd creates the sysadmin subcommand group.
func NewSysAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sysadmin",
		Short: "Manage the super admin roster",
	}
	cmd.AddCommand(newSysAdminListCmd())
	cmd.AddCommand(newSysAdminAddCmd())
	cmd.AddCommand(newSysAdminRemoveCmd())
	return cmd
}

func newSysAdminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List super admins, most recently added first",
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

			approver := auth.NewApprover(store, auth.NewSHA256Hasher(), nil)
			admins, err := approver.ListSuperAdmins(cmd.Context())
			if err != nil {
				return err
			}
			for _, admin := range admins {
				added := time.UnixMilli(admin.AddedAt).UTC().Format(time.RFC3339)
				cmd.Printf("%s  %s  added=%s\n", admin.Key, admin.Name, added)
			}
			return nil
		},
	}
}

func newSysAdminAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <admin-id>",
		Short: "Add an operator to the super admin roster",
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
			if err := approver.AddSuperAdmin(cmd.Context(), args[0], name); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Added %s to the super admin roster\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func newSysAdminRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <admin-id>",
		Short: "Remove an operator from the super admin roster",
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
			if err := approver.RemoveSuperAdmin(cmd.Context(), args[0]); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Removed %s from the super admin roster\n", args[0])
			return nil
		},
	}
}
