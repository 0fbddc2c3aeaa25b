package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and the running task",
	RunE:  runStatus,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove index records for notes deleted from the vault",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := indexer.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	cmd.Println("Index")
	cmd.Printf("  Notes:        %d\n", stats.DocumentCount)
	cmd.Printf("  Scored pairs: %d\n", stats.PairCount)
	cmd.Printf("  Links:        %d\n", stats.LinkCount)
	if stats.OrphanCount > 0 {
		cmd.Printf("  Orphans:      %d (run 'notelink cleanup' to remove)\n", stats.OrphanCount)
	}

	if taskController != nil {
		if task := taskController.Current(); task != nil {
			cmd.Println("\nTask")
			cmd.Printf("  %s: %s (%d%%, %s)\n", task.Name, task.Status, task.Progress,
				time.Since(task.StartedAt).Round(time.Second))
			if task.Step != "" {
				cmd.Printf("  Step: %s\n", task.Step)
			}
		}
	}

	if failureLog != nil {
		records, err := failureLog.List(ctx, true)
		if err == nil && len(records) > 0 {
			cmd.Printf("\n%d unresolved failures (see 'notelink failures list').\n", len(records))
		}
	}
	return nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	removed, err := indexer.CleanupOrphans(ctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	if removed == 0 {
		cmd.Println("No orphaned records found.")
	} else {
		cmd.Printf("Removed %d orphaned records.\n", removed)
	}
	return nil
}
