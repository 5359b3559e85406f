// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
)

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	var (
		password string
		username string
		nickname string
	)

	cmd := &cobra.Command{
		Use:   "register <identifier>",
		Short: "Register a new pending user account",
		Long: `Create a pending user record. The account cannot authenticate until an
authorizer activates it.`,
		Args: cobra.ExactArgs(1),
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

			registrar := auth.NewRegistrar(store, auth.NewSHA256Hasher(), nil)
			profile := auth.Profile{
				Identifier: args[0],
				Username:   username,
				Nickname:   nickname,
			}
			if err := registrar.Register(cmd.Context(), profile, password); err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Registration for %s submitted; awaiting approval\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&username, "username", "", "display username")
	cmd.Flags().StringVar(&nickname, "nickname", "", "in-game nickname")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// NewRequestAllianceCmd creates the request-alliance subcommand.
func NewRequestAllianceCmd() *cobra.Command {
	var (
		serverID     string
		allianceID   string
		allianceName string
		adminID      string
		password     string
		contact      string
	)

	cmd := &cobra.Command{
		Use:   "request-alliance",
		Short: "Submit an alliance registration request",
		Long: `Submit a pending alliance request. An approver promotes it into an
active alliance admin account.`,
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

			registrar := auth.NewRegistrar(store, auth.NewSHA256Hasher(), nil)
			err = registrar.SubmitAllianceRequest(cmd.Context(),
				serverID, allianceID, allianceName, adminID, password, contact)
			if err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Alliance request for %s on %s submitted\n", allianceID, serverID)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverID, "server", "", "server id (e.g. 245 or #245)")
	cmd.Flags().StringVar(&allianceID, "alliance", "", "alliance tag")
	cmd.Flags().StringVar(&allianceName, "alliance-name", "", "full alliance name")
	cmd.Flags().StringVar(&adminID, "admin", "", "requested admin account id")
	cmd.Flags().StringVarP(&password, "password", "p", "", "requested admin password")
	cmd.Flags().StringVar(&contact, "contact", "", "contact info for the approver")
	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("alliance")
	_ = cmd.MarkFlagRequired("admin")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
