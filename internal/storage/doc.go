// Package storage provides SQLite-based persistence for the ingestion
// pipeline's document collections.
//
// The storage layer manages:
//   - Deduplicated sub-entity collections (options, images, formulas)
//   - Finalized question records
//   - Chunk progress for resumable runs
//
// # Database Schema
//
// Tables:
//   - options: Answer options, deduplicated by content hash
//   - images: Image references, deduplicated by URL hash
//   - formulas: LaTeX formulas, deduplicated by formula hash
//   - questions: Finalized records with canonical entity identifiers
//   - chunk_progress: Per-chunk processing state
//
// Each entity table carries a unique index on its hash column; that index
// is the arbiter for concurrent get-or-create attempts. The questions table
// carries a unique index on source_key so that re-submitted records from a
// resumed run are silently absorbed instead of duplicated.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStore("bank.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	entity := &storage.Entity{
//	    Kind:    types.KindOption,
//	    Label:   "A",
//	    Content: "4",
//	    Hash:    hash,
//	}
//	err = store.InsertEntity(ctx, entity)
//	if errors.Is(err, storage.ErrAlreadyExists) {
//	    // another writer won the race; re-query by hash
//	}
//
// # Build Modes
//
// Two SQLite drivers are supported via build tags: the default pure Go
// driver (modernc.org/sqlite) and the CGO driver (mattn/go-sqlite3) behind
// the cgosqlite tag.
package storage
