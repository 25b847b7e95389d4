package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all scans from history",
		Long: `Clear empties the local scan cache and asks the service to delete its
scans as well. Stored credentials (the chat API key) are kept.

The command asks for confirmation unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: runClearCmd,
	}

	cmd.Flags().BoolP("force", "f", false,
		"Skip the confirmation prompt")

	return cmd
}

// runClearCmd executes the clear command.
func runClearCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	if !force {
		fmt.Fprint(cmd.OutOrStdout(), "Delete all scans from history? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	controller := newController(client, store, logger, cfg, newConsoleSink(cmd.ErrOrStderr()))
	if err := controller.ClearAll(ctx); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Scan history cleared.")
	return nil
}
