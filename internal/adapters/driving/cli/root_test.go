package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/notelink-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/notelink-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notelink-cli/internal/core/domain"
	"github.com/custodia-labs/notelink-cli/internal/core/ports/driving"
)

// mockIndexer implements driving.Indexer for testing.
type mockIndexer struct {
	runErr     error
	runOpts    driving.RunOptions
	runCalls   int
	related    []driving.RelatedNote
	relatedErr error
	removed    int
	stats      domain.IndexStats
}

func (m *mockIndexer) Run(_ context.Context, opts driving.RunOptions) error {
	m.runCalls++
	m.runOpts = opts
	return m.runErr
}

func (m *mockIndexer) Related(_ context.Context, _ string, _ int) ([]driving.RelatedNote, error) {
	return m.related, m.relatedErr
}

func (m *mockIndexer) CleanupOrphans(_ context.Context) (int, error) {
	return m.removed, nil
}

func (m *mockIndexer) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, nil
}

// mockTaskController implements driving.TaskController for testing.
type mockTaskController struct {
	current   *domain.TaskInfo
	cancelled bool
}

func (m *mockTaskController) Current() *domain.TaskInfo { return m.current }

func (m *mockTaskController) Cancel() error {
	m.cancelled = true
	return nil
}

// setupCommandTest swaps in mock services and captures command output.
func setupCommandTest(t *testing.T) (*mockIndexer, *mockTaskController, *bytes.Buffer) {
	t.Helper()

	oldIndexer := indexer
	oldController := taskController
	oldFailures := failureLog
	oldConfig := configStore

	mock := &mockIndexer{}
	controller := &mockTaskController{}
	indexer = mock
	taskController = controller
	failureLog = memory.NewFailureStore()

	store, err := configfile.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	configStore = store

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	t.Cleanup(func() {
		indexer = oldIndexer
		taskController = oldController
		failureLog = oldFailures
		configStore = oldConfig
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return mock, controller, buf
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
