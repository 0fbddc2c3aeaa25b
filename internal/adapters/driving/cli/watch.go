package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/notelink-cli/internal/core/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and keep the index current",
	Long: `Runs an initial index pass, then watches the vault for renames and
deletions, updating the index as they happen. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Running initial index pass...")
	if err := indexer.Run(ctx, driving.RunOptions{}); err != nil {
		return fmt.Errorf("initial index failed: %w", err)
	}

	pipeline, ok := indexer.(*services.Pipeline)
	if !ok {
		return errors.New("watch requires the full pipeline")
	}

	cmd.Println("Watching vault for changes (Ctrl-C to stop)...")
	if err := pipeline.WatchVault(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}
