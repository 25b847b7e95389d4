package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/cache"
)

// NewAuthCmd creates the auth command group.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the chat API key",
		Long: `Auth stores the API key used by the chat command. The key is kept in the
local cache database, separate from scan history, and survives 'clear'.

The key is never printed and never written to logs.`,
	}

	cmd.AddCommand(newAuthSetCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthDeleteCmd())

	return cmd
}

// newAuthSetCmd creates the auth set subcommand.
func newAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <api-key>",
		Short: "Store the chat API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := authStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.PutKey(cmd.Context(), cache.ChatAPIKeyName, args[0]); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "API key stored.")
			return nil
		},
	}
}

// newAuthStatusCmd creates the auth status subcommand.
func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a chat API key is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := authStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			_, ok, err := store.Key(cmd.Context(), cache.ChatAPIKeyName)
			if err != nil {
				return fmt.Errorf("failed to read API key: %w", err)
			}

			if ok {
				fmt.Fprintln(cmd.OutOrStdout(), "An API key is stored.")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No API key stored. Run 'sitesense auth set <api-key>'.")
			}
			return nil
		},
	}
}

// newAuthDeleteCmd creates the auth delete subcommand.
func newAuthDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored chat API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := authStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteKey(cmd.Context(), cache.ChatAPIKeyName); err != nil {
				return fmt.Errorf("failed to delete API key: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "API key removed.")
			return nil
		},
	}
}

// authStore opens the cache for a credential operation.
func authStore(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg)
	return openStore(cfg)
}
