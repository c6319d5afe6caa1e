package types

import "time"

// ChunkFailure describes a chunk that exhausted its retries. The byte range
// is reported so the caller can reprocess it out-of-band.
type ChunkFailure struct {
	Start    int64
	End      int64
	Attempts int
	Err      string
}

// WriteFailure describes a single record rejected by the store during a bulk
// write. Failures are recorded with enough context to support replay and are
// never raised as errors.
type WriteFailure struct {
	SourceKey   string
	ContentHash string
	Err         string
}

// ProcessResult summarizes one ingestion run. Partial success is an expected
// outcome: chunk and write failures are reported here rather than propagated.
type ProcessResult struct {
	QuestionsWritten   int
	QuestionsDuplicate int
	ChunksProcessed    int
	ChunksSkipped      int
	ChunksFailed       int

	FailedChunks  []ChunkFailure
	WriteFailures []WriteFailure
	Warnings      []string

	Duration time.Duration
}

// Success reports whether the run completed without any chunk or write
// failures.
func (r *ProcessResult) Success() bool {
	return r.ChunksFailed == 0 && len(r.WriteFailures) == 0
}
