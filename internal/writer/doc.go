// Package writer batches finalized question records into bulk store
// writes.
//
// The writer owns two buffers: the caller fills the active one while a
// background goroutine writes the previous one. Add only blocks when both
// are occupied, which throttles the pipeline to the store's write speed
// instead of growing memory without bound.
//
//	bw := writer.New(ctx, store, 1000)
//	defer bw.Close()
//	bw.Add(question)
//	...
//	bw.Flush()
//	stats := bw.Stats()
//
// Per-record store rejections are accumulated in Stats rather than
// returned from Add; a rejected record never aborts its batch. Writes are
// detached from the creating context's cancellation, so the final flush
// lands even when the run was cancelled.
package writer
