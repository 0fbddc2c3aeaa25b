// Package cli provides the command-line interface for notelink.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/notelink-cli/internal/adapters/driven/config/file"
	openaiembed "github.com/custodia-labs/notelink-cli/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/notelink-cli/internal/adapters/driven/llm/openai"
	storagefile "github.com/custodia-labs/notelink-cli/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/notelink-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/notelink-cli/internal/adapters/driven/vault/filesystem"
	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driven"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
	"github.com/custodia-labs/notelink-cli/internal/core/services"
	"github.com/custodia-labs/notelink-cli/internal/logger"
)

var version = "dev"

// Persistent flags.
var (
	flagVerbose bool
	flagVault   string
	flagDataDir string
)

// Services wired by bootstrap. Tests inject fakes directly and bootstrap
// then leaves them alone.
var (
	indexer        driving.Indexer
	taskController driving.TaskController
	failureLog     driven.FailureStore
	configStore    driven.ConfigStore
	indexService   *services.IndexService

	teardowns []func() error
)

var rootCmd = &cobra.Command{
	Use:   "notelink",
	Short: "Discover and link related notes in a markdown vault",
	Long: `Notelink scans a markdown vault, embeds note content, scores candidate
pairs with an LLM and maintains a "Related notes" section at the bottom of
each note. Only the machine-managed region below the boundary marker is
ever rewritten; your own text is never touched.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if !commandNeedsServices(cmd) {
			return ensureConfig()
		}
		return bootstrap(cmd.Context())
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "vault directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.notelink/data)")
}

// Execute runs the root command.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// commandNeedsServices reports whether a command requires the full engine.
// Lightweight commands only need the config store.
func commandNeedsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", "get", "set", "show":
		return false
	}
	if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
		return false
	}
	return true
}

// ensureConfig opens the config store when no test injected one.
func ensureConfig() error {
	if configStore != nil {
		return nil
	}
	store, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = store
	return nil
}

// bootstrap builds the adapter stack and core services. Provider services
// are optional: without an API key the pipeline degrades to reconciling
// from previously stored scores.
func bootstrap(ctx context.Context) error {
	if indexer != nil {
		return nil // already wired (tests)
	}
	if err := ensureConfig(); err != nil {
		return err
	}

	settings := loadSettings(configStore)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	vaultPath := flagVault
	if vaultPath == "" {
		vaultPath = configStore.GetString("vault.path")
	}
	if vaultPath == "" {
		return fmt.Errorf("vault path not configured; run 'notelink config set vault.path <dir>' or pass --vault")
	}

	vault, err := filesystem.NewVaultStore(vaultPath)
	if err != nil {
		return err
	}

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = configStore.GetString("storage.data_dir")
	}

	indexStore, err := storagefile.NewIndexStore(dataDir)
	if err != nil {
		return err
	}
	embedStore, err := storagefile.NewEmbeddingStore(dataDir)
	if err != nil {
		return err
	}

	db, err := sqlite.NewStore(dataDir)
	if err != nil {
		return err
	}
	teardowns = append(teardowns, db.Close)
	failureLog = db.FailureStore()

	embedder, llm := buildProviders()

	indexService = services.NewIndexService(indexStore, embedStore, vault, settings.FlushDebounce)
	if err := indexService.Load(ctx, services.LoadIndexOptions{CreateIfMissing: true}); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	teardowns = append(teardowns, func() error {
		return indexService.Flush(context.Background())
	})

	orchestrator := services.NewTaskOrchestrator()
	reconciler := services.NewReconciler(indexService, vault, settings)
	detector := services.NewChangeDetector()

	indexer = services.NewPipeline(
		indexService, reconciler, detector, orchestrator,
		vault, embedStore, embedder, llm, failureLog, settings,
	)
	taskController = orchestrator
	return nil
}

// buildProviders constructs the embedding and LLM services from config.
// Either may come back nil when no API key is available.
func buildProviders() (driven.EmbeddingService, driven.LLMService) {
	apiKey := configStore.GetString("openai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("No OpenAI API key configured; embedding and scoring disabled")
		return nil, nil
	}

	var embedder driven.EmbeddingService
	var llm driven.LLMService

	if svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  apiKey,
		BaseURL: configStore.GetString("openai.base_url"),
		Model:   configStore.GetString("embedding.model"),
	}); err != nil {
		logger.Warn("Embedding service unavailable: %v", err)
	} else {
		embedder = svc
		teardowns = append(teardowns, svc.Close)
	}

	if svc, err := openaillm.NewLLMService(openaillm.Config{
		APIKey:  apiKey,
		BaseURL: configStore.GetString("openai.base_url"),
		Model:   configStore.GetString("llm.model"),
	}); err != nil {
		logger.Warn("LLM service unavailable: %v", err)
	} else {
		llm = svc
		teardowns = append(teardowns, svc.Close)
	}

	return embedder, llm
}

// loadSettings reads engine tuning from config, falling back to defaults
// for unset keys.
func loadSettings(store driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()
	if v := store.GetFloat("engine.similarity_threshold"); v > 0 {
		settings.SimilarityThreshold = v
	}
	if v := store.GetFloat("engine.min_ai_score"); v > 0 {
		settings.MinAIScore = v
	}
	if v := store.GetInt("engine.max_links"); v > 0 {
		settings.MaxLinks = v
	}
	if v := store.GetInt("engine.scoring_batch_size"); v > 0 {
		settings.ScoringBatchSize = v
	}
	if v := store.GetInt("engine.excerpt_length"); v > 0 {
		settings.ExcerptLength = v
	}
	if v := store.GetInt("engine.max_tags"); v > 0 {
		settings.MaxTags = v
	}
	settings.GenerateTags = store.GetBool("engine.generate_tags")
	return settings
}

// teardown flushes pending state and closes resources in reverse order.
func teardown() error {
	var first error
	for i := len(teardowns) - 1; i >= 0; i-- {
		if err := teardowns[i](); err != nil && first == nil {
			first = err
		}
	}
	teardowns = nil
	return first
}
