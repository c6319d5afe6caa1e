package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markbank/md2db/internal/chunker"
	"github.com/markbank/md2db/internal/dedup"
	"github.com/markbank/md2db/internal/mdparse"
	"github.com/markbank/md2db/internal/storage"
	"github.com/markbank/md2db/internal/writer"
	"github.com/markbank/md2db/pkg/types"
)

// ParseFunc extracts questions from one chunk of content
type ParseFunc func(content string) ([]types.RawQuestion, error)

// Config contains configuration for an ingestion run
type Config struct {
	Workers         int   // Number of concurrent parse workers (default: runtime.NumCPU())
	ChunkSizeBytes  int64 // Target chunk size (default: 10MB)
	BatchSize       int   // Questions per bulk write (default: 1000)
	RetryLimit      int   // Maximum attempts per chunk (default: 3)
	ScanWindowBytes int64 // Boundary scan window past a rough cut (default: 10000)
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkSizeBytes <= 0 {
		c.ChunkSizeBytes = chunker.DefaultChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = writer.DefaultBatchSize
	}
	if c.RetryLimit <= 0 {
		c.RetryLimit = 3
	}
	if c.ScanWindowBytes <= 0 {
		c.ScanWindowBytes = chunker.DefaultScanWindow
	}
}

// Processor coordinates the ingestion pipeline: chunk -> parse -> dedup ->
// batch write. Parsing runs on a bounded worker pool; deduplication and
// batching run on a single finalization path so entity resolution needs no
// cross-worker coordination.
type Processor struct {
	store storage.Store
	parse ParseFunc
	lock  runLock
}

// New creates a Processor. A nil parse falls back to the Markdown parser.
func New(store storage.Store, parse ParseFunc) *Processor {
	if parse == nil {
		parse = mdparse.Parse
	}
	return &Processor{store: store, parse: parse}
}

// job is one chunk handed to the worker pool
type job struct {
	r chunker.ByteRange
}

// outcome is a worker's report for one chunk
type outcome struct {
	r         chunker.ByteRange
	questions []types.RawQuestion
	attempts  int
	err       error
}

// Process ingests one Markdown question bank. Chunk failures are isolated:
// they are retried up to the configured limit, then reported in the result
// while the rest of the file continues. The returned error is non-nil only
// when the run as a whole cannot make progress (lock held, chunking failed,
// every chunk failed, or the context was cancelled).
func (p *Processor) Process(ctx context.Context, filePath string, cfg *Config) (*types.ProcessResult, error) {
	if !p.lock.TryAcquire() {
		return nil, types.ErrRunInProgress
	}
	defer p.lock.Release()

	config := Config{}
	if cfg != nil {
		config = *cfg
	}
	config.applyDefaults()

	startTime := time.Now()
	result := &types.ProcessResult{}

	ranges, warnings, err := chunker.New(config.ChunkSizeBytes, config.ScanWindowBytes).CreateChunks(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk file: %w", err)
	}
	result.Warnings = warnings
	if len(ranges) == 0 {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	track := newTracker(p.store, filePath)
	previous, err := track.load(ctx)
	if err != nil {
		return nil, err
	}

	// Chunks completed by an earlier interrupted run are skipped; their
	// questions are already in the store
	pending := make([]chunker.ByteRange, 0, len(ranges))
	for _, r := range ranges {
		if prev, ok := previous[progressKey(r)]; ok && prev.Status == storage.ChunkDone {
			result.ChunksSkipped++
			continue
		}
		if err := track.markPending(ctx, r); err != nil {
			return nil, err
		}
		pending = append(pending, r)
	}
	if len(pending) == 0 {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Bounded queue: dispatch blocks when every worker is busy and the
	// queue is full, keeping memory proportional to the worker count
	jobs := make(chan job, config.Workers)
	outcomes := make(chan outcome, config.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < config.Workers; i++ {
		g.Go(func() error {
			return p.worker(gctx, f, track, &config, jobs, outcomes)
		})
	}

	go func() {
		defer close(jobs)
		for _, r := range pending {
			select {
			case jobs <- job{r: r}:
			case <-gctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	// Single finalization path: dedup resolution and batch writes
	d := dedup.New(p.store)
	bw := writer.New(ctx, p.store, config.BatchSize)

	// Progress bookkeeping after the run must land even when ctx has been
	// cancelled, or completed chunks would be redone on resume
	finishCtx := context.WithoutCancel(ctx)

	type finalizedChunk struct {
		r        chunker.ByteRange
		attempts int
	}
	var completed []finalizedChunk

	for out := range outcomes {
		if out.err != nil {
			p.recordChunkFailure(finishCtx, track, result, out)
			continue
		}
		if err := p.finalizeChunk(ctx, filePath, d, bw, out); err != nil {
			out.err = err
			p.recordChunkFailure(finishCtx, track, result, out)
			continue
		}
		completed = append(completed, finalizedChunk{r: out.r, attempts: out.attempts})
	}

	bw.Close()
	stats := bw.Stats()
	result.QuestionsWritten = stats.Inserted
	result.QuestionsDuplicate = stats.Duplicates
	result.WriteFailures = stats.Failures

	// A chunk is done only once every one of its records has been
	// acknowledged by the store. A chunk with rejected records is marked
	// failed so a resumed run re-submits it; records that did land are
	// absorbed by their source keys on that re-run.
	for _, fc := range completed {
		prefix := fmt.Sprintf("%s:%d:", filePath, fc.r.Start)
		rejected := 0
		for _, wf := range stats.Failures {
			if strings.HasPrefix(wf.SourceKey, prefix) {
				rejected++
			}
		}
		if rejected > 0 {
			errMsg := fmt.Sprintf("%d records rejected by the store", rejected)
			result.ChunksFailed++
			result.FailedChunks = append(result.FailedChunks, types.ChunkFailure{
				Start:    fc.r.Start,
				End:      fc.r.End,
				Attempts: fc.attempts,
				Err:      errMsg,
			})
			if err := track.markFailed(finishCtx, fc.r, fc.attempts, errMsg); err != nil {
				log.Printf("failed to mark chunk %s failed: %v", progressKey(fc.r), err)
			}
			continue
		}
		if err := track.markDone(finishCtx, fc.r, fc.attempts); err != nil {
			log.Printf("failed to mark chunk %s done: %v", progressKey(fc.r), err)
		}
		result.ChunksProcessed++
	}
	result.Duration = time.Since(startTime)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if waitErr := g.Wait(); waitErr != nil {
		return result, waitErr
	}
	if result.ChunksFailed == len(pending) {
		return result, fmt.Errorf("all %d chunks failed", len(pending))
	}
	return result, nil
}

// worker reads and parses chunks until the job queue closes. Each chunk is
// retried up to the configured limit before being reported as failed; a
// failed chunk never stops the worker.
func (p *Processor) worker(ctx context.Context, f *os.File, track *tracker, cfg *Config, jobs <-chan job, outcomes chan<- outcome) error {
	for j := range jobs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var questions []types.RawQuestion
		var lastErr error
		attempts := 0
		for attempt := 1; attempt <= cfg.RetryLimit; attempt++ {
			attempts = attempt
			if err := track.markInFlight(ctx, j.r, attempt); err != nil {
				log.Printf("failed to mark chunk %s in flight: %v", progressKey(j.r), err)
			}
			questions, lastErr = p.parseChunk(f, j.r)
			if lastErr == nil {
				break
			}
		}

		out := outcome{r: j.r, questions: questions, attempts: attempts, err: lastErr}
		select {
		case outcomes <- out:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// parseChunk reads the chunk's bytes and runs the parser, converting a
// parser panic into an error so one bad chunk cannot take down the run
func (p *Processor) parseChunk(f *os.File, r chunker.ByteRange) (questions []types.RawQuestion, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			questions = nil
			err = fmt.Errorf("parser panic: %v", rec)
		}
	}()

	buf := make([]byte, r.End-r.Start)
	if _, err := f.ReadAt(buf, r.Start); err != nil {
		return nil, fmt.Errorf("failed to read chunk %d-%d: %w", r.Start, r.End, err)
	}
	return p.parse(string(buf))
}

// finalizeChunk resolves each question's sub-entities to canonical
// identifiers and hands the finalized records to the batch writer. The
// source key ties a question to its position in the file, so re-running
// the same file cannot double-insert.
func (p *Processor) finalizeChunk(ctx context.Context, filePath string, d *dedup.Deduplicator, bw *writer.BatchWriter, out outcome) error {
	for i, rq := range out.questions {
		optionIDs := make([]int64, 0, len(rq.Options))
		for n, option := range rq.Options {
			label := string(rune('A' + n))
			id, err := d.GetOrCreate(ctx, types.KindOption, label, option)
			if err != nil {
				return err
			}
			optionIDs = append(optionIDs, id)
		}

		imageIDs := make([]int64, 0, len(rq.Images))
		for _, url := range rq.Images {
			id, err := d.GetOrCreate(ctx, types.KindImage, "", url)
			if err != nil {
				return err
			}
			imageIDs = append(imageIDs, id)
		}

		formulaIDs := make([]int64, 0, len(rq.Formulas))
		for _, formula := range rq.Formulas {
			id, err := d.GetOrCreate(ctx, types.KindFormula, "", formula)
			if err != nil {
				return err
			}
			formulaIDs = append(formulaIDs, id)
		}

		bw.Add(&storage.Question{
			ID:          uuid.NewString(),
			SourceKey:   fmt.Sprintf("%s:%d:%d", filePath, out.r.Start, i),
			Content:     rq.Content,
			ContentHash: dedup.QuestionHash(rq.Content),
			Type:        rq.Type,
			OptionIDs:   optionIDs,
			Answer:      rq.Answer,
			Explanation: rq.Explanation,
			ImageIDs:    imageIDs,
			FormulaIDs:  formulaIDs,
		})
	}
	return nil
}

func (p *Processor) recordChunkFailure(ctx context.Context, track *tracker, result *types.ProcessResult, out outcome) {
	result.ChunksFailed++
	result.FailedChunks = append(result.FailedChunks, types.ChunkFailure{
		Start:    out.r.Start,
		End:      out.r.End,
		Attempts: out.attempts,
		Err:      out.err.Error(),
	})
	if err := track.markFailed(ctx, out.r, out.attempts, out.err.Error()); err != nil {
		log.Printf("failed to mark chunk %s failed: %v", progressKey(out.r), err)
	}
}
