// Package main provides the entry point for the SiteSense CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/config"
)

// NewRootCmd creates the root command for SiteSense.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitesense",
		Short: "Website analysis client with local scan history",
		Long: `SiteSense submits websites to a remote analysis service, polls scans to
completion, and keeps a local history of results in a SQLite cache.

Completed scans carry per-category scores (performance, security, SEO and
more) plus recommendations, rendered as text, markdown, or JSON reports.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("api-base", "a", "",
		fmt.Sprintf("Scan service base URL (default %s, env %s)", config.DefaultAPIBase, config.EnvAPIBase))
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .sitesense in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory for the local scan cache (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewClearCmd())
	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewAuthCmd())
	cmd.AddCommand(NewHeatmapCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
