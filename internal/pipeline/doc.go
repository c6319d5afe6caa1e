// Package pipeline coordinates the ingestion run: chunk -> parse ->
// dedup -> batch write.
//
// # Architecture
//
// A run fans out over a bounded worker pool for the CPU-heavy parse phase
// and funnels back into a single finalization path for entity resolution
// and batching:
//
//	chunker -> jobs -> workers (parse) -> outcomes -> dedup -> writer
//
// The job queue is bounded by the worker count, so dispatch applies
// backpressure instead of materializing every chunk up front. The batch
// writer's double buffering applies the same backpressure on the store
// side.
//
// # Failure Model
//
// Chunks are bulkheads. A chunk that fails to read or parse is retried up
// to the configured limit, then recorded in the result while every other
// chunk proceeds. Process returns an error only when the run as a whole is
// impossible: another run holds the lock, the file cannot be chunked, the
// context is cancelled, or every chunk failed.
//
// # Resume
//
// Per-chunk state is persisted through the store. A chunk is marked done
// only after every one of its records has been acknowledged by the store;
// chunks with rejected records are marked failed so the next run
// re-submits them. A re-run of the same file skips chunks already marked
// done, and question source keys make re-submission of already-written
// questions a no-op.
package pipeline
