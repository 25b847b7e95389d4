package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rnks2003/proj-sitesense/internal/cache"
	"github.com/rnks2003/proj-sitesense/internal/model"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <scan-id> <message>",
		Short: "Ask a question about a scan's results",
		Long: `Chat sends a question about a completed scan to the analysis service's
AI backend. The scan's results travel with the request as context, so the
answer can reference concrete findings.

An API key is required: store one with 'sitesense auth set' or pass
--api-key for a single invocation.

Examples:
  # Ask about a scan using the stored key
  sitesense chat 3f2a9c "What should I fix first?"

  # One-off key
  sitesense chat --api-key AIza... 3f2a9c "Why is the SEO score low?"`,
		Args: cobra.ExactArgs(2),
		RunE: runChatCmd,
	}

	cmd.Flags().String("api-key", "",
		"API key for this invocation (overrides the stored key)")

	return cmd
}

// runChatCmd executes the chat command.
func runChatCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	apiKey, err := cmd.Flags().GetString("api-key")
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

	if apiKey == "" {
		stored, ok, err := store.Key(ctx, cache.ChatAPIKeyName)
		if err != nil {
			return fmt.Errorf("failed to read stored API key: %w", err)
		}
		if !ok {
			return errors.New("no API key available: run 'sitesense auth set <api-key>' or pass --api-key")
		}
		apiKey = stored
	}

	// Resolve the scan so its results can travel as chat context.
	controller := newController(client, store, logger, cfg, newConsoleSink(cmd.ErrOrStderr()))
	record, err := controller.Load(ctx, args[0])
	if err != nil {
		return err
	}

	scanContext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode scan context: %w", err)
	}

	resp, err := client.Chat(ctx, &model.ChatRequest{
		Message:     args[1],
		APIKey:      apiKey,
		ScanContext: scanContext,
	})
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Response)
	return nil
}
