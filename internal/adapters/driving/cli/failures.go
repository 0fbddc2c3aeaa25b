package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagAllFailures bool

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Inspect and manage the failure log",
	Long: `Failed embedding and scoring batches are recorded durably so later
index runs retry exactly the items that failed, even when the notes
themselves have not changed since.`,
	RunE: runFailuresList,
}

var failuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded failures, newest first",
	RunE:  runFailuresList,
}

var failuresResolveCmd = &cobra.Command{
	Use:   "resolve <failure-id>",
	Short: "Mark a failure resolved so it is no longer retried",
	Args:  cobra.ExactArgs(1),
	RunE:  runFailuresResolve,
}

var failuresPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete resolved failures older than the retention window",
	RunE:  runFailuresPrune,
}

func init() {
	failuresListCmd.Flags().BoolVar(&flagAllFailures, "all", false, "include resolved failures")
	failuresCmd.AddCommand(failuresListCmd)
	failuresCmd.AddCommand(failuresResolveCmd)
	failuresCmd.AddCommand(failuresPruneCmd)
	rootCmd.AddCommand(failuresCmd)
}

func failuresContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runFailuresList(cmd *cobra.Command, _ []string) error {
	if failureLog == nil {
		return errors.New("failure store not configured")
	}

	records, err := failureLog.List(failuresContext(cmd), !flagAllFailures)
	if err != nil {
		return fmt.Errorf("listing failures: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No failures recorded.")
		return nil
	}

	for _, record := range records {
		state := "unresolved"
		if record.Resolved {
			state = "resolved"
		}
		cmd.Printf("%s  %s  %s  %s (%d items)\n",
			record.ID,
			record.OccurredAt.Format(time.RFC3339),
			record.Kind,
			state,
			len(record.Items))
		cmd.Printf("    %s\n", record.Message)
	}
	cmd.Printf("\n%d failures. Unresolved items are retried on the next 'notelink index'.\n", len(records))
	return nil
}

func runFailuresResolve(cmd *cobra.Command, args []string) error {
	if failureLog == nil {
		return errors.New("failure store not configured")
	}

	if err := failureLog.Resolve(failuresContext(cmd), args[0]); err != nil {
		return fmt.Errorf("resolving failure: %w", err)
	}
	cmd.Printf("Failure %s marked resolved.\n", args[0])
	return nil
}

func runFailuresPrune(cmd *cobra.Command, _ []string) error {
	if failureLog == nil {
		return errors.New("failure store not configured")
	}

	cutoff := time.Now().Add(-retentionWindow())
	pruned, err := failureLog.Prune(failuresContext(cmd), cutoff)
	if err != nil {
		return fmt.Errorf("pruning failures: %w", err)
	}
	cmd.Printf("Pruned %d resolved failures.\n", pruned)
	return nil
}

func retentionWindow() time.Duration {
	if configStore != nil {
		if days := configStore.GetInt("engine.failure_retention_days"); days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return 30 * 24 * time.Hour
}
