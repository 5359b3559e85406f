// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/alliancegate/alliancegate/internal/auth"
)

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	var (
		password   string
		serverID   string
		allianceID string
	)

	cmd := &cobra.Command{
		Use:   "login <identifier>",
		Short: "Resolve credentials and establish a session",
		Long: `Resolve the identifier and password against the credential sources in
priority order (masters, global users, legacy per-alliance admins and
members) and persist the resulting session.`,
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

			p, err := openPrefs(cfg)
			if err != nil {
				return err
			}
			session := newSession(store, p)

			hint := auth.Scope{ServerID: serverID, AllianceID: allianceID}
			identity, err := session.Login(cmd.Context(), args[0], password, hint)
			if err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}

			cmd.Printf("Logged in as %s (role %s, server %s, alliance %s)\n",
				identity.Identifier, identity.Role,
				identity.Scope.ServerID, identity.Scope.AllianceID)

			if recents := p.Recents(auth.RecentServers); len(recents) > 1 {
				cmd.Printf("Recent servers: %s\n", strings.Join(recents, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&serverID, "server", "", "server id hint (e.g. 245 or #245)")
	cmd.Flags().StringVar(&allianceID, "alliance", "", "alliance tag hint")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// NewEnterCmd creates the enter subcommand.
func NewEnterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enter <server> <alliance>",
		Short: "Browse an alliance without authenticating",
		Long: `Establish a guest scope for one alliance without credentials. This is a
lower-assurance entry point than login; it grants no role.`,
		Args: cobra.ExactArgs(2),
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

			p, err := openPrefs(cfg)
			if err != nil {
				return err
			}
			resolver := auth.NewResolver(store, auth.NewSHA256Hasher(),
				auth.WithRecencyRecorder(p))

			scope, err := resolver.EnterScope(args[0], args[1])
			if err != nil {
				cmd.PrintErrln(auth.UserMessage(err))
				return err
			}
			cmd.Printf("Browsing %s on %s as guest\n", scope.AllianceID, scope.ServerID)
			return nil
		},
	}
}
