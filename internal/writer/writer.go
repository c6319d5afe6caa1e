package writer

import (
	"context"
	"sync"

	"github.com/markbank/md2db/internal/storage"
	"github.com/markbank/md2db/pkg/types"
)

// DefaultBatchSize is the number of questions accumulated before a batch
// is handed to the store
const DefaultBatchSize = 1000

// Stats summarizes the outcomes of all batches written so far
type Stats struct {
	Inserted   int
	Duplicates int
	Failures   []types.WriteFailure
}

type batchMsg struct {
	docs []*storage.Question
	ack  chan struct{}
}

// BatchWriter accumulates finalized questions and writes them to the store
// in batches. Writing is double buffered: a background goroutine drains one
// batch while the caller fills the next, so Add blocks only when the
// previous batch is still being written and a second is already queued.
// That blocking is the pipeline's backpressure.
//
// A BatchWriter is intended for a single producing goroutine.
type BatchWriter struct {
	ctx       context.Context
	store     storage.Store
	batchSize int

	active  []*storage.Question
	batches chan batchMsg
	done    chan struct{}
	closed  bool

	mu    sync.Mutex
	stats Stats
}

// New creates a BatchWriter and starts its background writer. A
// non-positive batchSize falls back to DefaultBatchSize. Store writes are
// detached from the context's cancellation: once a record has been resolved
// and buffered, cancelling the run must not prevent its final flush from
// landing.
func New(ctx context.Context, store storage.Store, batchSize int) *BatchWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	bw := &BatchWriter{
		ctx:       context.WithoutCancel(ctx),
		store:     store,
		batchSize: batchSize,
		active:    make([]*storage.Question, 0, batchSize),
		batches:   make(chan batchMsg, 1),
		done:      make(chan struct{}),
	}
	go bw.run()
	return bw
}

func (bw *BatchWriter) run() {
	defer close(bw.done)
	for msg := range bw.batches {
		if len(msg.docs) > 0 {
			bw.writeBatch(msg.docs)
		}
		if msg.ack != nil {
			close(msg.ack)
		}
	}
}

func (bw *BatchWriter) writeBatch(docs []*storage.Question) {
	result, err := bw.store.InsertQuestionBatch(bw.ctx, docs)

	bw.mu.Lock()
	defer bw.mu.Unlock()
	if err != nil {
		// Whole-batch failure: every record in it is reported
		for _, q := range docs {
			bw.stats.Failures = append(bw.stats.Failures, types.WriteFailure{
				SourceKey:   q.SourceKey,
				ContentHash: q.ContentHash,
				Err:         err.Error(),
			})
		}
		return
	}
	bw.stats.Inserted += result.Inserted
	bw.stats.Duplicates += result.Duplicates
	bw.stats.Failures = append(bw.stats.Failures, result.Failures...)
}

// Add buffers one question, dispatching the active buffer to the
// background writer when it reaches the batch size.
func (bw *BatchWriter) Add(q *storage.Question) {
	bw.active = append(bw.active, q)
	if len(bw.active) >= bw.batchSize {
		bw.batches <- batchMsg{docs: bw.active}
		bw.active = make([]*storage.Question, 0, bw.batchSize)
	}
}

// Flush writes any buffered questions and waits until every batch handed
// to the background writer has been written.
func (bw *BatchWriter) Flush() {
	ack := make(chan struct{})
	bw.batches <- batchMsg{docs: bw.active, ack: ack}
	bw.active = make([]*storage.Question, 0, bw.batchSize)
	<-ack
}

// Close flushes remaining questions and stops the background writer.
// Safe to call more than once.
func (bw *BatchWriter) Close() {
	if bw.closed {
		return
	}
	bw.closed = true
	bw.Flush()
	close(bw.batches)
	<-bw.done
}

// Stats returns the accumulated write outcomes. Call after Flush or Close
// for totals that include every dispatched batch.
func (bw *BatchWriter) Stats() Stats {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	out := Stats{
		Inserted:   bw.stats.Inserted,
		Duplicates: bw.stats.Duplicates,
	}
	out.Failures = append(out.Failures, bw.stats.Failures...)
	return out
}
