// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/config"
	"github.com/alliancegate/alliancegate/internal/logging"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the AllianceGate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alliancegate",
		Short: "AllianceGate - alliance access control",
		Long: `AllianceGate resolves alliance credentials against the global user
directory and the legacy per-alliance collections, and manages the
registration and approval lifecycle for alliance admins.`,
		// Errors are logged structured at the top of main; cobra's own
		// print would duplicate them.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.SetDefault("alliancegate", version, cfg.LogFormat)
			return nil
		},
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	// Add subcommands
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewEnterCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewRequestAllianceCmd())
	cmd.AddCommand(NewRequestsCmd())
	cmd.AddCommand(NewSysAdminCmd())
	cmd.AddCommand(NewWatchCmd())

	return cmd
}
