package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List scans, newest first",
		Long: `History lists known scans with their status and creation time.

By default the listing comes from the local cache. Use --remote to list
the service's view instead; differences between the two reveal scans that
exist on only one side.

Examples:
  # List cached scans
  sitesense history

  # List the service's scans
  sitesense history --remote`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("remote", "r", false,
		"List scans from the service instead of the local cache")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	remote, err := cmd.Flags().GetBool("remote")
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

	var records []model.ScanRecord
	if remote {
		records, err = client.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list scans from service: %w", err)
		}
	} else {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		controller := newController(client, store, logger, cfg, newConsoleSink(cmd.ErrOrStderr()))
		records, err = controller.History(ctx)
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scans yet. Run 'sitesense scan <url>' to create one.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SCAN ID\tURL\tSTATUS\tCREATED")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			record.ID,
			record.URL,
			record.Status,
			record.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}
