// Package types provides shared type definitions for the md2db ingestion
// pipeline.
//
// This package defines the domain types that cross component boundaries:
// parsed question records, sub-entity kinds, run results, and the error
// taxonomy.
//
// # Core Types
//
// RawQuestion is the parser's output for one question, with raw
// (un-deduplicated) sub-entities:
//
//	q := types.RawQuestion{
//	    Content: "What is 2+2?",
//	    Type:    types.QuestionMultipleChoice,
//	    Options: []string{"3", "4", "5"},
//	}
//
// ProcessResult summarizes an ingestion run. Per-chunk failures and
// per-record write failures are reported in the result rather than raised:
//
//	result, err := proc.Process(ctx, "bank.md", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, cf := range result.FailedChunks {
//	    log.Printf("chunk %d-%d failed after %d attempts: %s",
//	        cf.Start, cf.End, cf.Attempts, cf.Err)
//	}
//
// # Error Taxonomy
//
// IO and parse failures are fatal for the affected chunk only; they are
// retried up to the configured limit and then surfaced as ChunkFailure
// entries. Store rejections during a bulk write become WriteFailure entries.
// Duplicate-digest conflicts inside the deduplicator are expected and are
// never surfaced as errors.
package types
