// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the built-in super admin account",
		Long: `Create the built-in super admin user record if it does not exist.
Safe to run repeatedly; an existing record is left untouched.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
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
	if err := approver.SeedSuperAdmin(cmd.Context()); err != nil {
		return err
	}

	cmd.Println("Seed completed")
	return nil
}
