package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/notelink-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/notelink-cli/internal/core/domain"
)

func newIndexFixture(t *testing.T) (*IndexService, *memory.IndexStore, *memory.EmbeddingStore, *memory.VaultStore) {
	t.Helper()
	store := memory.NewIndexStore()
	vectors := memory.NewEmbeddingStore()
	vault := memory.NewVaultStore()
	service := NewIndexService(store, vectors, vault, 0)
	require.NoError(t, service.Load(context.Background(), LoadIndexOptions{CreateIfMissing: true}))
	return service, store, vectors, vault
}

func TestIndexService_Load_MissingWithoutCreate(t *testing.T) {
	service := NewIndexService(memory.NewIndexStore(), memory.NewEmbeddingStore(), memory.NewVaultStore(), 0)

	err := service.Load(context.Background(), LoadIndexOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_Load_DeduplicatesInversePairs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIndexStore()

	// Persist an index holding an inverse duplicate: the same pair under
	// both orderings, with different scoring times.
	corrupt := domain.NewMasterIndex()
	older := domain.PairScore{ID1: "b", ID2: "a", SimilarityScore: 0.9, AIScore: 3.0,
		LastScoredAt: time.Now().Add(-time.Hour)}
	newer := domain.NewPairScore("a", "b", 0.9, 8.0, time.Now())
	corrupt.Pairs["b|a"] = older
	corrupt.Pairs[newer.Key()] = newer
	require.NoError(t, store.Save(ctx, corrupt))

	service := NewIndexService(store, memory.NewEmbeddingStore(), memory.NewVaultStore(), 0)
	require.NoError(t, service.Load(ctx, LoadIndexOptions{}))

	scores := service.ScoresFor("a")
	require.Len(t, scores, 1, "inverse duplicate collapsed")
	assert.Equal(t, 8.0, scores[0].AIScore, "most recently scored entry wins")
	assert.True(t, service.HasPair("b", "a"))
}

func TestIndexService_Flush_OnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	service, store, _, _ := newIndexFixture(t)

	require.NoError(t, service.Flush(ctx))
	assert.Zero(t, store.SaveCount, "clean index is not rewritten")

	service.UpdateDocument(&domain.DocumentRecord{ID: "a", Location: "a.md"})
	require.NoError(t, service.Flush(ctx))
	assert.Equal(t, 1, store.SaveCount)

	// Flush again without changes
	require.NoError(t, service.Flush(ctx))
	assert.Equal(t, 1, store.SaveCount)
}

func TestIndexService_UpdateDocument_StoresCopy(t *testing.T) {
	service, _, _, _ := newIndexFixture(t)

	record := &domain.DocumentRecord{ID: "a", Location: "a.md"}
	service.UpdateDocument(record)
	record.Location = "mutated.md"

	stored := service.Record("a")
	require.NotNil(t, stored)
	assert.Equal(t, "a.md", stored.Location)
}

func TestIndexService_DeleteDocument_FullClosure(t *testing.T) {
	ctx := context.Background()
	service, _, vectors, _ := newIndexFixture(t)

	service.UpdateDocument(&domain.DocumentRecord{ID: "a", Location: "a.md"})
	service.UpdateDocument(&domain.DocumentRecord{ID: "b", Location: "b.md"})
	service.MergeScores([]domain.PairScore{domain.NewPairScore("a", "b", 0.9, 8.0, time.Now())})
	service.SetLedgerTargets("a", []string{"b"})
	service.SetLedgerTargets("b", []string{"a"})
	require.NoError(t, vectors.SaveVector(ctx, "a", []float32{1, 0}))

	require.NoError(t, service.DeleteDocument(ctx, "a"))

	assert.Nil(t, service.Record("a"))
	assert.False(t, service.HasPair("a", "b"))
	assert.Empty(t, service.ScoresFor("b"))
	assert.Empty(t, service.LedgerTargets("a"))
	assert.Empty(t, service.LedgerTargets("b"), "stripped as target too")
	_, err := vectors.LoadVector(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexService_InvalidateScores_PatchesGraph(t *testing.T) {
	service, _, _, _ := newIndexFixture(t)
	service.MergeScores([]domain.PairScore{
		domain.NewPairScore("a", "b", 0.9, 8.0, time.Now()),
		domain.NewPairScore("a", "c", 0.9, 6.0, time.Now()),
		domain.NewPairScore("b", "c", 0.9, 7.0, time.Now()),
	})

	removed := service.InvalidateScores("a")

	assert.Equal(t, 2, removed)
	assert.Empty(t, service.ScoresFor("a"))
	require.Len(t, service.ScoresFor("b"), 1)
	assert.Equal(t, 7.0, service.ScoresFor("b")[0].AIScore)
}

func TestIndexService_MergeScores_ReplacesExisting(t *testing.T) {
	service, _, _, _ := newIndexFixture(t)
	service.MergeScores([]domain.PairScore{domain.NewPairScore("a", "b", 0.9, 3.0, time.Now())})
	service.MergeScores([]domain.PairScore{domain.NewPairScore("b", "a", 0.92, 9.0, time.Now())})

	scores := service.ScoresFor("a")
	require.Len(t, scores, 1)
	assert.Equal(t, 9.0, scores[0].AIScore)
}

func TestIndexService_DetectOrphans_NonDestructive(t *testing.T) {
	ctx := context.Background()
	service, _, _, vault := newIndexFixture(t)
	vault.AddNote("present.md", "content")

	service.UpdateDocument(&domain.DocumentRecord{ID: "a", Location: "present.md"})
	service.UpdateDocument(&domain.DocumentRecord{ID: "b", Location: "gone.md"})

	orphans, err := service.DetectOrphans(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, orphans)
	assert.NotNil(t, service.Record("b"), "detection removes nothing")

	ids, err := service.OrphanIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}
