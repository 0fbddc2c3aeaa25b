package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

var flagLimit int

var relatedCmd = &cobra.Command{
	Use:   "related <note-path>",
	Short: "Show the notes most related to a note",
	Long: `Queries the index for the neighbours of a note, ordered by relevance.
The path is relative to the vault root.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	relatedCmd.Flags().IntVarP(&flagLimit, "limit", "n", 10, "maximum neighbours to show")
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	neighbours, err := indexer.Related(ctx, args[0], flagLimit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("note %s is not in the index; run 'notelink index' first", args[0])
		}
		return fmt.Errorf("related query failed: %w", err)
	}

	if len(neighbours) == 0 {
		cmd.Println("No related notes found.")
		return nil
	}

	cmd.Printf("Related to %s:\n", args[0])
	for _, neighbour := range neighbours {
		cmd.Printf("  %-40s  score %.1f  similarity %.2f\n",
			neighbour.Title, neighbour.AIScore, neighbour.Similarity)
	}
	return nil
}
