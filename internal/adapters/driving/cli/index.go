package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
)

var (
	flagForce bool
	flagTags  bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the vault and update related-note links",
	Long: `Runs the full pipeline: detects changed notes, embeds them, scores
candidate pairs and rewrites each affected note's managed link section.
Unchanged notes are skipped unless --force is given. Press Ctrl-C to
cancel; progress made so far is kept.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "re-embed every note regardless of changes")
	indexCmd.Flags().BoolVar(&flagTags, "tags", false, "also generate topic tags for changed notes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Ctrl-C requests cooperative cancellation rather than killing the
	// process mid-write.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cmd.Println("\nCancelling...")
		if taskController != nil {
			_ = taskController.Cancel() //nolint:errcheck // Best-effort on shutdown
		}
	}()

	cmd.Println("Indexing vault...")
	if err := runWithProgress(ctx, cmd, driving.RunOptions{Force: flagForce, GenerateTags: flagTags}); err != nil {
		if errors.Is(err, domain.ErrTaskCancelled) {
			cmd.Println("Index run cancelled; partial progress saved.")
			return nil
		}
		if errors.Is(err, domain.ErrTaskInProgress) {
			return fmt.Errorf("another task is already running: %w", err)
		}
		return fmt.Errorf("index failed: %w", err)
	}

	stats, err := indexer.Stats(ctx)
	if err == nil {
		cmd.Printf("Done: %d notes, %d scored pairs, %d links.\n",
			stats.DocumentCount, stats.PairCount, stats.LinkCount)
	} else {
		cmd.Println("Done.")
	}
	return nil
}

// runWithProgress runs the pipeline while displaying progress updates.
func runWithProgress(ctx context.Context, cmd *cobra.Command, opts driving.RunOptions) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- indexer.Run(ctx, opts)
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStep := ""
	for {
		select {
		case err := <-errCh:
			cmd.Println()
			return err
		case <-ticker.C:
			if taskController == nil {
				continue
			}
			task := taskController.Current()
			if task != nil && (task.Step != lastStep || task.Progress > 0) {
				cmd.Printf("\r%3d%% %-40s", task.Progress, task.Step)
				lastStep = task.Step
			}
		}
	}
}
