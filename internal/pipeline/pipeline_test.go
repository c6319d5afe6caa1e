package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markbank/md2db/internal/chunker"
	"github.com/markbank/md2db/internal/mdparse"
	"github.com/markbank/md2db/internal/storage"
	"github.com/markbank/md2db/pkg/types"
)

func setupStore(t *testing.T) storage.Store {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const smallBank = `1. What is 2+2?
A. 3
B. 4
Answer: B

2. What is the capital of France?
A. Paris
B. London
Answer: A

3. True or false: the sky is green.
Answer: False
`

func TestProcessSmallBank(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	p := New(store, nil)
	result, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.QuestionsWritten)
	assert.Equal(t, 0, result.QuestionsDuplicate)
	assert.Equal(t, 1, result.ChunksProcessed)
	assert.Equal(t, 0, result.ChunksFailed)
	assert.Empty(t, result.WriteFailures)
	assert.True(t, result.Success())

	count, err := store.CountQuestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestProcessEmptyFile(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, "")

	p := New(store, nil)
	result, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.QuestionsWritten)
	assert.Equal(t, 0, result.ChunksProcessed)
}

func TestProcessMissingFile(t *testing.T) {
	store := setupStore(t)

	p := New(store, nil)
	_, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "nope.md"), nil)
	assert.Error(t, err)
}

func TestSharedOptionsDeduplicated(t *testing.T) {
	store := setupStore(t)
	// Both questions share the option set; options must be stored once
	path := writeBank(t, `1. Is water wet?
A. yes
B. no
Answer: A

2. Is fire cold?
A. yes
B. no
Answer: B
`)

	p := New(store, nil)
	result, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.QuestionsWritten)

	ctx := context.Background()
	optionCount, err := store.CountEntities(ctx, types.KindOption)
	require.NoError(t, err)
	assert.Equal(t, int64(2), optionCount) // "A. yes" and "B. no"

	q1, err := store.GetQuestionBySourceKey(ctx, path+":0:0")
	require.NoError(t, err)
	q2, err := store.GetQuestionBySourceKey(ctx, path+":0:1")
	require.NoError(t, err)
	assert.Equal(t, q1.OptionIDs, q2.OptionIDs)
}

func TestFailedChunkIsIsolated(t *testing.T) {
	store := setupStore(t)
	var sb strings.Builder
	for i := 1; i <= 6; i++ {
		marker := ""
		if i == 3 {
			marker = " CORRUPT"
		}
		fmt.Fprintf(&sb, "%d. Question number %d%s with some padding text to size it?\nA. yes\nB. no\nAnswer: A\n\n", i, i, marker)
	}
	path := writeBank(t, sb.String())

	parse := func(content string) ([]types.RawQuestion, error) {
		if strings.Contains(content, "CORRUPT") {
			return nil, errors.New("simulated parse failure")
		}
		return mdparse.Parse(content)
	}

	// Chunk size below one question's length puts each question in its
	// own chunk, so exactly one chunk carries the corrupt block
	cfg := &Config{ChunkSizeBytes: 60, ScanWindowBytes: 300, RetryLimit: 2, Workers: 2}
	p := New(store, parse)
	result, err := p.Process(context.Background(), path, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksFailed)
	require.Len(t, result.FailedChunks, 1)
	failure := result.FailedChunks[0]
	assert.Equal(t, 2, failure.Attempts)
	assert.Contains(t, failure.Err, "simulated parse failure")

	// Every chunk without the marker was written
	assert.Equal(t, 5, result.QuestionsWritten)
	assert.Greater(t, result.ChunksProcessed, 0)
	assert.False(t, result.Success())

	// The failed range is persisted for a later retry
	entries, err := store.ListChunkProgress(context.Background(), path)
	require.NoError(t, err)
	var failed int
	for _, e := range entries {
		if e.Status == storage.ChunkFailed {
			failed++
			assert.Equal(t, 2, e.Attempts)
			assert.NotEmpty(t, e.Error)
		}
	}
	assert.Equal(t, 1, failed)
}

// faultyStore delegates to a real store but can be told to reject every
// bulk question write, simulating a store outage during the write phase
type faultyStore struct {
	storage.Store
	failWrites bool
}

func (s *faultyStore) InsertQuestionBatch(ctx context.Context, questions []*storage.Question) (*storage.BulkResult, error) {
	if s.failWrites {
		return nil, errors.New("store unavailable")
	}
	return s.Store.InsertQuestionBatch(ctx, questions)
}

func TestChunkNotDoneUntilWritesAcknowledged(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	faulty := &faultyStore{Store: store, failWrites: true}
	p := New(faulty, nil)

	// First run: parsing succeeds but every write is rejected. The chunk
	// must not be recorded as done or its questions would be lost forever.
	result, err := p.Process(context.Background(), path, nil)
	require.Error(t, err)
	assert.Equal(t, 0, result.ChunksProcessed)
	assert.Equal(t, 1, result.ChunksFailed)
	assert.Equal(t, 0, result.QuestionsWritten)
	assert.Len(t, result.WriteFailures, 3)

	entries, err := store.ListChunkProgress(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.ChunkFailed, entries[0].Status)

	// Second run against the healthy store recovers every question
	faulty.failWrites = false
	second, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, second.QuestionsWritten)
	assert.Equal(t, 1, second.ChunksProcessed)
	assert.Equal(t, 0, second.ChunksSkipped)

	count, err := store.CountQuestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAllChunksFailedReturnsError(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	parse := func(string) ([]types.RawQuestion, error) {
		return nil, errors.New("always broken")
	}
	p := New(store, parse)
	result, err := p.Process(context.Background(), path, &Config{RetryLimit: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunks failed")
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ChunksFailed)
}

func TestParserPanicBecomesChunkFailure(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	parse := func(string) ([]types.RawQuestion, error) {
		panic("boom")
	}
	p := New(store, parse)
	result, err := p.Process(context.Background(), path, &Config{RetryLimit: 1})
	require.Error(t, err) // single chunk, so the whole run failed
	require.Len(t, result.FailedChunks, 1)
	assert.Contains(t, result.FailedChunks[0].Err, "parser panic")
}

func TestRerunIsIdempotent(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	p := New(store, nil)
	first, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, first.QuestionsWritten)

	second, err := p.Process(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.QuestionsWritten)
	assert.Equal(t, 1, second.ChunksSkipped)
	assert.Equal(t, 0, second.ChunksProcessed)

	count, err := store.CountQuestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestResumeSkipsCompletedChunks(t *testing.T) {
	store := setupStore(t)
	var sb strings.Builder
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&sb, "%d. Question number %d with some padding text to size it?\nA. yes\nB. no\nAnswer: A\n\n", i, i)
	}
	path := writeBank(t, sb.String())

	cfg := &Config{ChunkSizeBytes: 150, ScanWindowBytes: 300}

	// Simulate an interrupted run: the first chunk already completed
	ranges, _, err := chunker.New(cfg.ChunkSizeBytes, cfg.ScanWindowBytes).CreateChunks(path)
	require.NoError(t, err)
	require.Greater(t, len(ranges), 1)
	require.NoError(t, store.UpsertChunkProgress(context.Background(), &storage.ChunkProgress{
		FilePath: path,
		Start:    ranges[0].Start,
		End:      ranges[0].End,
		Status:   storage.ChunkDone,
		Attempts: 1,
	}))

	p := New(store, nil)
	result, err := p.Process(context.Background(), path, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksSkipped)
	assert.Equal(t, len(ranges)-1, result.ChunksProcessed)
}

func TestConcurrentRunRejected(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	p := New(store, nil)
	require.True(t, p.lock.TryAcquire())
	defer p.lock.Release()

	_, err := p.Process(context.Background(), path, nil)
	assert.ErrorIs(t, err, types.ErrRunInProgress)
}

func TestCancelledContext(t *testing.T) {
	store := setupStore(t)
	path := writeBank(t, smallBank)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(store, nil)
	_, err := p.Process(ctx, path, nil)
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, int64(chunker.DefaultChunkSize), cfg.ChunkSizeBytes)
	assert.Equal(t, 3, cfg.RetryLimit)
}
