package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scan-id>...",
		Short: "Delete scans from history",
		Long: `Delete removes scans from the local cache and asks the service to delete
them too. The two removals are independent: if the service is unreachable
the local copy is still removed, and the failure is reported. Deleting a
scan the service no longer has is not an error.

Examples:
  # Delete one scan
  sitesense delete 3f2a9c

  # Delete several scans
  sitesense delete 3f2a9c 81d0ee`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDeleteCmd,
	}
}

// runDeleteCmd executes the delete command.
func runDeleteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

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

	var errs []error
	for _, id := range args {
		if err := controller.Delete(ctx, id); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Delete %s: %v\n", id, err)
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", id)
	}

	return errors.Join(errs...)
}
