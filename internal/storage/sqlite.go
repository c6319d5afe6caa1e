package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/markbank/md2db/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert hits a uniqueness
	// constraint. For entity inserts this is the expected signal that
	// another actor won the race for a content hash.
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance and applies migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err is a uniqueness-constraint failure.
// Both the mattn and modernc drivers include this phrase in the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Entity operations

func (s *SQLiteStore) GetEntityByHash(ctx context.Context, kind types.EntityKind, hash string) (*Entity, error) {
	var query string
	switch kind {
	case types.KindOption:
		query = `SELECT id, label, content, hash, created_at FROM options WHERE hash = ?`
	case types.KindImage:
		query = `SELECT id, alt, url, hash, created_at FROM images WHERE hash = ?`
	case types.KindFormula:
		query = `SELECT id, '', formula, hash, created_at FROM formulas WHERE hash = ?`
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	entity := Entity{Kind: kind}
	var label sql.NullString
	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&entity.ID, &label, &entity.Content, &entity.Hash, &entity.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entity.Label = label.String
	return &entity, nil
}

func (s *SQLiteStore) InsertEntity(ctx context.Context, entity *Entity) error {
	if strings.TrimSpace(entity.Content) == "" {
		return fmt.Errorf("insert %s: %w", entity.Kind, types.ErrEmptyContent)
	}

	var query string
	args := make([]interface{}, 0, 4)
	now := time.Now()

	switch entity.Kind {
	case types.KindOption:
		query = `INSERT INTO options (label, content, hash, created_at) VALUES (?, ?, ?, ?)`
		args = append(args, entity.Label, entity.Content, entity.Hash, now)
	case types.KindImage:
		query = `INSERT INTO images (url, alt, hash, created_at) VALUES (?, ?, ?, ?)`
		args = append(args, entity.Content, entity.Label, entity.Hash, now)
	case types.KindFormula:
		query = `INSERT INTO formulas (formula, hash, created_at) VALUES (?, ?, ?)`
		args = append(args, entity.Content, entity.Hash, now)
	default:
		return fmt.Errorf("unknown entity kind %q", entity.Kind)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", entity.Kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entity.ID = id
	entity.CreatedAt = now
	return nil
}

func (s *SQLiteStore) CountEntities(ctx context.Context, kind types.EntityKind) (int64, error) {
	table, err := entityTable(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
	return count, err
}

func entityTable(kind types.EntityKind) (string, error) {
	switch kind {
	case types.KindOption:
		return "options", nil
	case types.KindImage:
		return "images", nil
	case types.KindFormula:
		return "formulas", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

// Question operations

const questionColumns = `id, source_key, content, content_hash, question_type,
       option_ids, answer, explanation, image_ids, formula_ids, created_at`

// InsertQuestionBatch writes a batch of questions in one transaction. The
// write is unordered in the document-store sense: a record rejected by the
// store is recorded as a failure and does not abort the rest of the batch.
// Records with an already-seen source key count as duplicates.
func (s *SQLiteStore) InsertQuestionBatch(ctx context.Context, questions []*Question) (*BulkResult, error) {
	result := &BulkResult{}
	if len(questions) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO questions (` + questionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_key) DO NOTHING
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare batch insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for _, q := range questions {
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		res, err := stmt.ExecContext(ctx,
			q.ID, q.SourceKey, q.Content, q.ContentHash, string(q.Type),
			marshalIDs(q.OptionIDs), nullable(q.Answer), nullable(q.Explanation),
			marshalIDs(q.ImageIDs), marshalIDs(q.FormulaIDs), q.CreatedAt,
		)
		if err != nil {
			result.Failures = append(result.Failures, types.WriteFailure{
				SourceKey:   q.SourceKey,
				ContentHash: q.ContentHash,
				Err:         err.Error(),
			})
			continue
		}
		affected, err := res.RowsAffected()
		if err == nil && affected == 0 {
			result.Duplicates++
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return result, nil
}

func (s *SQLiteStore) GetQuestionBySourceKey(ctx context.Context, sourceKey string) (*Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE source_key = ?`
	return s.scanQuestion(s.db.QueryRowContext(ctx, query, sourceKey))
}

func (s *SQLiteStore) SearchQuestions(ctx context.Context, query string, qtype types.QuestionType, limit int) ([]*Question, error) {
	sqlQuery := `
		SELECT ` + questionColumns + `
		FROM questions
		WHERE content LIKE '%' || ? || '%'
		  AND (? = '' OR question_type = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, sqlQuery, query, string(qtype), string(qtype), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*Question, 0)
	for rows.Next() {
		q, err := s.scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountQuestions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions").Scan(&count)
	return count, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var qtype string
	var optionIDs, imageIDs, formulaIDs string
	var answer, explanation sql.NullString

	err := row.Scan(
		&q.ID, &q.SourceKey, &q.Content, &q.ContentHash, &qtype,
		&optionIDs, &answer, &explanation, &imageIDs, &formulaIDs, &q.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	q.Type = types.QuestionType(qtype)
	q.Answer = answer.String
	q.Explanation = explanation.String
	if q.OptionIDs, err = unmarshalIDs(optionIDs); err != nil {
		return nil, fmt.Errorf("invalid option_ids for %s: %w", q.ID, err)
	}
	if q.ImageIDs, err = unmarshalIDs(imageIDs); err != nil {
		return nil, fmt.Errorf("invalid image_ids for %s: %w", q.ID, err)
	}
	if q.FormulaIDs, err = unmarshalIDs(formulaIDs); err != nil {
		return nil, fmt.Errorf("invalid formula_ids for %s: %w", q.ID, err)
	}
	return &q, nil
}

// Chunk progress operations

func (s *SQLiteStore) UpsertChunkProgress(ctx context.Context, progress *ChunkProgress) error {
	query := `
		INSERT INTO chunk_progress (file_path, start_byte, end_byte, status, attempts, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path, start_byte, end_byte) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			error = excluded.error,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		progress.FilePath, progress.Start, progress.End,
		progress.Status, progress.Attempts, nullable(progress.Error), now,
	).Scan(&progress.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk progress: %w", err)
	}
	progress.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) ListChunkProgress(ctx context.Context, filePath string) ([]*ChunkProgress, error) {
	query := `
		SELECT id, file_path, start_byte, end_byte, status, attempts, error, updated_at
		FROM chunk_progress
		WHERE file_path = ?
		ORDER BY start_byte
	`
	rows, err := s.db.QueryContext(ctx, query, filePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*ChunkProgress, 0)
	for rows.Next() {
		var p ChunkProgress
		var errText sql.NullString
		err := rows.Scan(&p.ID, &p.FilePath, &p.Start, &p.End, &p.Status, &p.Attempts, &errText, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		p.Error = errText.String
		entries = append(entries, &p)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) DeleteChunkProgress(ctx context.Context, filePath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunk_progress WHERE file_path = ?`, filePath)
	return err
}

// Status operations

func (s *SQLiteStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM questions", &status.QuestionsCount},
		{"SELECT COUNT(*) FROM options", &status.OptionsCount},
		{"SELECT COUNT(*) FROM images", &status.ImagesCount},
		{"SELECT COUNT(*) FROM formulas", &status.FormulasCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.StoreSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// Helpers

// marshalIDs encodes an identifier slice as a JSON array column value
func marshalIDs(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalIDs(data string) ([]int64, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// nullable maps empty strings to NULL
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
