package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbank/md2db/internal/storage"
	"github.com/markbank/md2db/pkg/types"
)

func setupDedup(t *testing.T) (*Deduplicator, storage.Store) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store), store
}

func TestContentKeyPerKind(t *testing.T) {
	// Option digest covers label and content
	a4 := ContentKey(types.KindOption, "A", "4")
	b4 := ContentKey(types.KindOption, "B", "4")
	assert.NotEqual(t, a4, b4)
	assert.Equal(t, a4, ContentKey(types.KindOption, "A", "4"))

	// Image and formula digests ignore the label
	img := ContentKey(types.KindImage, "alt text", "http://x/a.png")
	assert.Equal(t, img, ContentKey(types.KindImage, "other alt", "http://x/a.png"))

	formula := ContentKey(types.KindFormula, "", "E = mc^2")
	assert.Equal(t, formula, ContentKey(types.KindFormula, "", "E = mc^2"))
	assert.NotEqual(t, formula, ContentKey(types.KindFormula, "", "E = mc^3"))
}

func TestGetOrCreateReturnsStableID(t *testing.T) {
	d, store := setupDedup(t)
	ctx := context.Background()

	first, err := d.GetOrCreate(ctx, types.KindOption, "A", "4")
	require.NoError(t, err)
	assert.Greater(t, first, int64(0))

	// Same payload many times resolves to the same identifier
	for i := 0; i < 10; i++ {
		id, err := d.GetOrCreate(ctx, types.KindOption, "A", "4")
		require.NoError(t, err)
		assert.Equal(t, first, id)
	}

	count, err := store.CountEntities(ctx, types.KindOption)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreateDistinctPayloads(t *testing.T) {
	d, store := setupDedup(t)
	ctx := context.Background()

	idA, err := d.GetOrCreate(ctx, types.KindOption, "A", "4")
	require.NoError(t, err)
	idB, err := d.GetOrCreate(ctx, types.KindOption, "B", "4")
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	count, err := store.CountEntities(ctx, types.KindOption)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGetOrCreateFindsExistingRecord(t *testing.T) {
	d, store := setupDedup(t)
	ctx := context.Background()

	// Record inserted outside this deduplicator, as if by an earlier run
	existing := &storage.Entity{
		Kind:    types.KindFormula,
		Content: "E = mc^2",
		Hash:    ContentKey(types.KindFormula, "", "E = mc^2"),
	}
	require.NoError(t, store.InsertEntity(ctx, existing))

	id, err := d.GetOrCreate(ctx, types.KindFormula, "", "E = mc^2")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, id)
}

// racingStore slips a rival record in between the caller's lookup miss and
// its insert, so the insert hits the unique index and the caller must
// resolve through the conflict re-lookup
type racingStore struct {
	storage.Store
	raced    bool
	winnerID int64
}

func (s *racingStore) InsertEntity(ctx context.Context, entity *storage.Entity) error {
	if !s.raced {
		s.raced = true
		rival := &storage.Entity{
			Kind:    entity.Kind,
			Label:   entity.Label,
			Content: entity.Content,
			Hash:    entity.Hash,
		}
		if err := s.Store.InsertEntity(ctx, rival); err != nil {
			return err
		}
		s.winnerID = rival.ID
	}
	return s.Store.InsertEntity(ctx, entity)
}

func TestGetOrCreateConflictResolvesToWinner(t *testing.T) {
	inner, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })

	store := &racingStore{Store: inner}
	d := New(store)
	ctx := context.Background()

	// Lookup misses, the rival wins the insert race, and the conflict
	// re-lookup must hand back the rival's identifier
	id, err := d.GetOrCreate(ctx, types.KindImage, "", "http://x/a.png")
	require.NoError(t, err)
	require.True(t, store.raced)
	assert.Equal(t, store.winnerID, id)

	count, err := inner.CountEntities(ctx, types.KindImage)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The winner is cached; a repeat resolves without another insert
	again, err := d.GetOrCreate(ctx, types.KindImage, "", "http://x/a.png")
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestCacheShortCircuits(t *testing.T) {
	d, _ := setupDedup(t)
	ctx := context.Background()

	_, err := d.GetOrCreate(ctx, types.KindOption, "A", "4")
	require.NoError(t, err)
	_, err = d.GetOrCreate(ctx, types.KindOption, "A", "4")
	require.NoError(t, err)
	assert.Equal(t, 1, d.CacheSize())
}
