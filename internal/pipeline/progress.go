package pipeline

import (
	"context"
	"fmt"

	"github.com/markbank/md2db/internal/chunker"
	"github.com/markbank/md2db/internal/storage"
)

// tracker persists per-chunk processing state so an interrupted run can
// resume without redoing completed chunks.
type tracker struct {
	store    storage.Store
	filePath string
}

func newTracker(store storage.Store, filePath string) *tracker {
	return &tracker{store: store, filePath: filePath}
}

func progressKey(r chunker.ByteRange) string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// load returns the recorded state of every chunk of the file, keyed by
// byte range
func (t *tracker) load(ctx context.Context) (map[string]*storage.ChunkProgress, error) {
	entries, err := t.store.ListChunkProgress(ctx, t.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk progress: %w", err)
	}
	state := make(map[string]*storage.ChunkProgress, len(entries))
	for _, entry := range entries {
		state[progressKey(chunker.ByteRange{Start: entry.Start, End: entry.End})] = entry
	}
	return state, nil
}

func (t *tracker) mark(ctx context.Context, r chunker.ByteRange, status string, attempts int, errMsg string) error {
	return t.store.UpsertChunkProgress(ctx, &storage.ChunkProgress{
		FilePath: t.filePath,
		Start:    r.Start,
		End:      r.End,
		Status:   status,
		Attempts: attempts,
		Error:    errMsg,
	})
}

func (t *tracker) markPending(ctx context.Context, r chunker.ByteRange) error {
	return t.mark(ctx, r, storage.ChunkPending, 0, "")
}

func (t *tracker) markInFlight(ctx context.Context, r chunker.ByteRange, attempt int) error {
	return t.mark(ctx, r, storage.ChunkInFlight, attempt, "")
}

func (t *tracker) markDone(ctx context.Context, r chunker.ByteRange, attempts int) error {
	return t.mark(ctx, r, storage.ChunkDone, attempts, "")
}

func (t *tracker) markFailed(ctx context.Context, r chunker.ByteRange, attempts int, errMsg string) error {
	return t.mark(ctx, r, storage.ChunkFailed, attempts, errMsg)
}
