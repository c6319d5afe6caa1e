package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/markbank/md2db/internal/storage"
	"github.com/markbank/md2db/pkg/types"
)

// Deduplicator resolves raw sub-entities to canonical store identifiers
// using a lookup-insert-relookup protocol. The store's unique hash index is
// the arbiter: when an insert loses a race the winner's record is re-read
// and its identifier used. A Deduplicator is not safe for concurrent use;
// the pipeline runs one per ingestion run on the finalization path.
type Deduplicator struct {
	store storage.Store
	cache map[string]int64
}

// New creates a Deduplicator backed by the given store
func New(store storage.Store) *Deduplicator {
	return &Deduplicator{
		store: store,
		cache: make(map[string]int64),
	}
}

// GetOrCreate returns the canonical identifier for the sub-entity,
// inserting it if no record with its digest exists yet. Identical payloads
// always resolve to the same identifier, however many times and in whatever
// order they are submitted.
func (d *Deduplicator) GetOrCreate(ctx context.Context, kind types.EntityKind, label, content string) (int64, error) {
	hash := ContentKey(kind, label, content)
	if id, ok := d.cache[hash]; ok {
		return id, nil
	}

	entity, err := d.store.GetEntityByHash(ctx, kind, hash)
	if err == nil {
		d.cache[hash] = entity.ID
		return entity.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("failed to look up %s: %w", kind, err)
	}

	fresh := &storage.Entity{
		Kind:    kind,
		Label:   label,
		Content: content,
		Hash:    hash,
	}
	err = d.store.InsertEntity(ctx, fresh)
	if err == nil {
		d.cache[hash] = fresh.ID
		return fresh.ID, nil
	}
	if !errors.Is(err, storage.ErrAlreadyExists) {
		return 0, fmt.Errorf("failed to insert %s: %w", kind, err)
	}

	// Lost the race; the winner's record is canonical
	winner, err := d.store.GetEntityByHash(ctx, kind, hash)
	if err != nil {
		return 0, fmt.Errorf("failed to re-read %s after conflict: %w", kind, err)
	}
	d.cache[hash] = winner.ID
	return winner.ID, nil
}

// CacheSize reports the number of digests resolved so far
func (d *Deduplicator) CacheSize() int {
	return len(d.cache)
}
