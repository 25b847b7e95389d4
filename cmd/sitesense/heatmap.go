package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rnks2003/proj-sitesense/internal/api"
)

// NewHeatmapCmd creates the heatmap command.
func NewHeatmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heatmap <scan-id>",
		Short: "Download heatmap images for a scan",
		Long: `Heatmap downloads the predicted attention and click heatmaps the service
rendered for a completed scan. Both images are fetched concurrently and
written as files named after the scan.

Examples:
  # Download both heatmaps into the current directory
  sitesense heatmap 3f2a9c

  # Only the attention heatmap, into a specific directory
  sitesense heatmap --kind attention -d ./out 3f2a9c`,
		Args: cobra.ExactArgs(1),
		RunE: runHeatmapCmd,
	}

	cmd.Flags().StringP("dir", "d", ".",
		"Directory to write heatmap images into")
	cmd.Flags().StringP("kind", "k", "both",
		"Heatmap kind to download: attention, click, or both")

	return cmd
}

// runHeatmapCmd executes the heatmap command.
func runHeatmapCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}
	kindFlag, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}

	kinds, err := heatmapKinds(kindFlag)
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

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	scanID := args[0]

	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range kinds {
		g.Go(func() error {
			data, contentType, err := client.Heatmap(ctx, scanID, kind)
			if err != nil {
				return fmt.Errorf("download %s: %w", kind, err)
			}

			path := filepath.Join(dir, heatmapFileName(scanID, kind, contentType))
			if err := os.WriteFile(path, data, 0600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
			return nil
		})
	}

	return g.Wait()
}

// heatmapKinds resolves the --kind flag to service heatmap identifiers.
func heatmapKinds(flag string) ([]string, error) {
	switch strings.ToLower(flag) {
	case "attention":
		return []string{api.HeatmapAttention}, nil
	case "click":
		return []string{api.HeatmapClick}, nil
	case "both":
		return []string{api.HeatmapAttention, api.HeatmapClick}, nil
	default:
		return nil, fmt.Errorf("unknown heatmap kind %q (want attention, click, or both)", flag)
	}
}

// heatmapFileName builds the output file name for a heatmap image.
func heatmapFileName(scanID, kind, contentType string) string {
	ext := ".png"
	switch {
	case strings.Contains(contentType, "jpeg"):
		ext = ".jpg"
	case strings.Contains(contentType, "webp"):
		ext = ".webp"
	}

	short := strings.TrimSuffix(kind, "_heatmap")
	return fmt.Sprintf("%s-%s%s", scanID, short, ext)
}
