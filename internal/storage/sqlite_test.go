package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbank/md2db/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	// Use in-memory database for testing
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func testQuestion(sourceKey string) *Question {
	return &Question{
		ID:          uuid.NewString(),
		SourceKey:   sourceKey,
		Content:     "What is 2+2?",
		ContentHash: "hash-" + sourceKey,
		Type:        types.QuestionMultipleChoice,
		OptionIDs:   []int64{1, 2},
		Answer:      "B",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	assert.NotNil(t, store)
	assert.NotNil(t, store.db)
}

func TestClose(t *testing.T) {
	store := setupTestDB(t)
	err := store.Close()
	assert.NoError(t, err)
}

func TestInsertEntity(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	entity := &Entity{
		Kind:    types.KindOption,
		Label:   "A",
		Content: "4",
		Hash:    "abc123",
	}

	err := store.InsertEntity(ctx, entity)
	require.NoError(t, err)
	assert.Greater(t, entity.ID, int64(0))

	// Same hash again - unique index rejects it
	duplicate := &Entity{
		Kind:    types.KindOption,
		Label:   "A",
		Content: "4",
		Hash:    "abc123",
	}
	err = store.InsertEntity(ctx, duplicate)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestInsertEntityEmptyContent(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	err := store.InsertEntity(ctx, &Entity{
		Kind:  types.KindOption,
		Label: "A",
		Hash:  "empty-hash",
	})
	assert.ErrorIs(t, err, types.ErrEmptyContent)

	count, err := store.CountEntities(ctx, types.KindOption)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGetEntityByHash(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	entity := &Entity{
		Kind:    types.KindFormula,
		Content: "E = mc^2",
		Hash:    "formula-hash",
	}
	require.NoError(t, store.InsertEntity(ctx, entity))

	found, err := store.GetEntityByHash(ctx, types.KindFormula, "formula-hash")
	require.NoError(t, err)
	assert.Equal(t, entity.ID, found.ID)
	assert.Equal(t, "E = mc^2", found.Content)

	_, err = store.GetEntityByHash(ctx, types.KindFormula, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntityKindsAreIndependent(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	// Same hash is allowed across kinds: each collection has its own index
	for _, kind := range []types.EntityKind{types.KindOption, types.KindImage, types.KindFormula} {
		err := store.InsertEntity(ctx, &Entity{Kind: kind, Label: "x", Content: "payload", Hash: "shared"})
		require.NoError(t, err, "kind %s", kind)
	}

	for _, kind := range []types.EntityKind{types.KindOption, types.KindImage, types.KindFormula} {
		count, err := store.CountEntities(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	}
}

func TestInsertQuestionBatch(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	questions := []*Question{
		testQuestion("bank.md:0:0"),
		testQuestion("bank.md:0:1"),
		testQuestion("bank.md:0:2"),
	}

	result, err := store.InsertQuestionBatch(ctx, questions)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 0, result.Duplicates)
	assert.Empty(t, result.Failures)

	count, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestInsertQuestionBatchDuplicateSourceKey(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	_, err := store.InsertQuestionBatch(ctx, []*Question{testQuestion("bank.md:0:0")})
	require.NoError(t, err)

	// Re-submitting the same source key is absorbed, not duplicated
	result, err := store.InsertQuestionBatch(ctx, []*Question{
		testQuestion("bank.md:0:0"),
		testQuestion("bank.md:0:1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Duplicates)

	count, err := store.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInsertQuestionBatchEmpty(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	result, err := store.InsertQuestionBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
}

func TestGetQuestionBySourceKey(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	q := testQuestion("bank.md:100:3")
	q.ImageIDs = []int64{7}
	q.Explanation = "basic arithmetic"
	_, err := store.InsertQuestionBatch(ctx, []*Question{q})
	require.NoError(t, err)

	found, err := store.GetQuestionBySourceKey(ctx, "bank.md:100:3")
	require.NoError(t, err)
	assert.Equal(t, q.ID, found.ID)
	assert.Equal(t, q.Content, found.Content)
	assert.Equal(t, types.QuestionMultipleChoice, found.Type)
	assert.Equal(t, []int64{1, 2}, found.OptionIDs)
	assert.Equal(t, []int64{7}, found.ImageIDs)
	assert.Nil(t, found.FormulaIDs)
	assert.Equal(t, "B", found.Answer)
	assert.Equal(t, "basic arithmetic", found.Explanation)

	_, err = store.GetQuestionBySourceKey(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchQuestions(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	q1 := testQuestion("bank.md:0:0")
	q1.Content = "What is the capital of France?"
	q2 := testQuestion("bank.md:0:1")
	q2.Content = "What is the capital of Spain?"
	q3 := testQuestion("bank.md:0:2")
	q3.Content = "True or false: water boils at 100C"
	q3.Type = types.QuestionTrueFalse

	_, err := store.InsertQuestionBatch(ctx, []*Question{q1, q2, q3})
	require.NoError(t, err)

	results, err := store.SearchQuestions(ctx, "capital", "", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Type filter narrows the result set
	results, err = store.SearchQuestions(ctx, "water", types.QuestionTrueFalse, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, q3.ID, results[0].ID)

	results, err = store.SearchQuestions(ctx, "capital", types.QuestionTrueFalse, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkProgressUpsert(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	progress := &ChunkProgress{
		FilePath: "bank.md",
		Start:    0,
		End:      1024,
		Status:   ChunkPending,
	}
	require.NoError(t, store.UpsertChunkProgress(ctx, progress))
	firstID := progress.ID
	assert.Greater(t, firstID, int64(0))

	// Upsert on the same range updates in place
	progress.Status = ChunkDone
	progress.Attempts = 1
	require.NoError(t, store.UpsertChunkProgress(ctx, progress))
	assert.Equal(t, firstID, progress.ID)

	entries, err := store.ListChunkProgress(ctx, "bank.md")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ChunkDone, entries[0].Status)
	assert.Equal(t, 1, entries[0].Attempts)
}

func TestChunkProgressListAndDelete(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	for _, r := range [][2]int64{{0, 100}, {100, 200}, {200, 300}} {
		err := store.UpsertChunkProgress(ctx, &ChunkProgress{
			FilePath: "bank.md",
			Start:    r[0],
			End:      r[1],
			Status:   ChunkPending,
		})
		require.NoError(t, err)
	}
	err := store.UpsertChunkProgress(ctx, &ChunkProgress{
		FilePath: "other.md",
		Start:    0,
		End:      50,
		Status:   ChunkDone,
	})
	require.NoError(t, err)

	entries, err := store.ListChunkProgress(ctx, "bank.md")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Ordered by start byte
	assert.Equal(t, int64(0), entries[0].Start)
	assert.Equal(t, int64(200), entries[2].Start)

	require.NoError(t, store.DeleteChunkProgress(ctx, "bank.md"))
	entries, err = store.ListChunkProgress(ctx, "bank.md")
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.ListChunkProgress(ctx, "other.md")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.InsertEntity(ctx, &Entity{Kind: types.KindOption, Label: "A", Content: "4", Hash: "h1"}))
	require.NoError(t, store.InsertEntity(ctx, &Entity{Kind: types.KindImage, Content: "http://x/img.png", Hash: "h2"}))
	_, err := store.InsertQuestionBatch(ctx, []*Question{testQuestion("bank.md:0:0")})
	require.NoError(t, err)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.QuestionsCount)
	assert.Equal(t, int64(1), status.OptionsCount)
	assert.Equal(t, int64(1), status.ImagesCount)
	assert.Equal(t, int64(0), status.FormulasCount)
	assert.Greater(t, status.StoreSizeMB, 0.0)
}

func TestMigrationsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	// Re-applying against an up-to-date schema is a no-op
	err := ApplyMigrations(context.Background(), store.db)
	assert.NoError(t, err)
}
