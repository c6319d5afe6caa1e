package storage

import (
	"context"
	"time"

	"github.com/markbank/md2db/pkg/types"
)

// Store defines the interface for the document store backing the ingestion
// pipeline: four collections (questions, options, images, formulas) plus the
// chunk-progress side table used for resumable runs.
type Store interface {
	// Canonical entity operations. InsertEntity returns ErrAlreadyExists
	// when the entity's content hash is already present; callers are
	// expected to re-query by hash and use the winner's identifier.
	GetEntityByHash(ctx context.Context, kind types.EntityKind, hash string) (*Entity, error)
	InsertEntity(ctx context.Context, entity *Entity) error
	CountEntities(ctx context.Context, kind types.EntityKind) (int64, error)

	// Question operations. InsertQuestionBatch is an unordered bulk write:
	// per-record failures are collected in the BulkResult and never abort
	// the rest of the batch. Records whose source key is already present
	// are counted as duplicates, not failures.
	InsertQuestionBatch(ctx context.Context, questions []*Question) (*BulkResult, error)
	GetQuestionBySourceKey(ctx context.Context, sourceKey string) (*Question, error)
	SearchQuestions(ctx context.Context, query string, qtype types.QuestionType, limit int) ([]*Question, error)
	CountQuestions(ctx context.Context) (int64, error)

	// Chunk progress operations, keyed by (file path, byte range)
	UpsertChunkProgress(ctx context.Context, progress *ChunkProgress) error
	ListChunkProgress(ctx context.Context, filePath string) ([]*ChunkProgress, error)
	DeleteChunkProgress(ctx context.Context, filePath string) error

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	Close() error
}

// Entity is a deduplicated sub-entity record (option, image, or formula).
// At most one Entity per (kind, hash) exists in the store at any time; the
// unique index on the hash column is the arbiter.
type Entity struct {
	ID   int64
	Kind types.EntityKind

	// Label carries the option label (A, B, C, ...) for options and the
	// alt text for images; it is unused for formulas.
	Label string

	// Content carries the option text, the image URL, or the formula
	Content string

	// Hash is the hex-encoded content digest used as the dedup key
	Hash string

	CreatedAt time.Time
}

// Question is a finalized question record: every sub-entity reference has
// been replaced by a canonical entity identifier. Written once, never
// mutated.
type Question struct {
	ID          string // UUID assigned at finalization
	SourceKey   string // stable identity: file path + chunk start + position
	Content     string
	ContentHash string
	Type        types.QuestionType
	OptionIDs   []int64
	Answer      string
	Explanation string
	ImageIDs    []int64
	FormulaIDs  []int64
	CreatedAt   time.Time
}

// ChunkProgress tracks the processing state of one chunk for retry and
// resume decisions.
type ChunkProgress struct {
	ID        int64
	FilePath  string
	Start     int64
	End       int64
	Status    string
	Attempts  int
	Error     string
	UpdatedAt time.Time
}

// Chunk progress states
const (
	ChunkPending  = "pending"
	ChunkInFlight = "in_flight"
	ChunkDone     = "done"
	ChunkFailed   = "failed"
)

// BulkResult reports the per-record outcome of a bulk question write.
type BulkResult struct {
	Inserted   int
	Duplicates int
	Failures   []types.WriteFailure
}

// Status contains collection counts and store size information.
type Status struct {
	QuestionsCount int64
	OptionsCount   int64
	ImagesCount    int64
	FormulasCount  int64
	StoreSizeMB    float64
}
