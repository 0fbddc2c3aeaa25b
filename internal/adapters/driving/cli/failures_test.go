package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func recordTestFailure(t *testing.T) string {
	t.Helper()
	id, err := failureLog.Record(context.Background(), domain.FailureRecord{
		Kind:       domain.FailureKindEmbedding,
		Items:      []domain.BatchItem{{DocumentID: "doc-1", Label: "My Note"}},
		Message:    "rate limited",
		ErrorKind:  domain.ErrorKindTransient,
		StatusCode: 429,
	})
	require.NoError(t, err)
	return id
}

func TestFailuresCmd_ListEmpty(t *testing.T) {
	_, _, buf := setupCommandTest(t)

	err := execute(t, "failures")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No failures recorded.")
}

func TestFailuresCmd_List(t *testing.T) {
	_, _, buf := setupCommandTest(t)
	id := recordTestFailure(t)

	err := execute(t, "failures", "list")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), "embedding")
	assert.Contains(t, buf.String(), "unresolved")
	assert.Contains(t, buf.String(), "rate limited")
}

func TestFailuresCmd_ListHidesResolvedByDefault(t *testing.T) {
	_, _, buf := setupCommandTest(t)
	id := recordTestFailure(t)
	require.NoError(t, failureLog.Resolve(context.Background(), id))

	err := execute(t, "failures", "list")
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No failures recorded.")

	buf.Reset()
	defer func() { flagAllFailures = false }()
	err = execute(t, "failures", "list", "--all")
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "resolved")
}

func TestFailuresCmd_Resolve(t *testing.T) {
	_, _, buf := setupCommandTest(t)
	id := recordTestFailure(t)

	err := execute(t, "failures", "resolve", id)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "marked resolved")

	records, err := failureLog.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFailuresCmd_ResolveUnknown(t *testing.T) {
	_, _, _ = setupCommandTest(t)

	err := execute(t, "failures", "resolve", "no-such-id")

	assert.ErrorContains(t, err, "resolving failure")
}

func TestFailuresCmd_Prune(t *testing.T) {
	_, _, buf := setupCommandTest(t)

	err := execute(t, "failures", "prune")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Pruned 0 resolved failures.")
}
