// Package dedup maintains at most one canonical record per distinct
// sub-entity (option, image, formula) across an entire ingestion run.
//
// Resolution follows a lookup, insert, on-conflict-relookup protocol
// against the store's unique hash indexes. Because the index is the
// arbiter, the protocol is correct under concurrent writers even though
// a single run uses only one.
//
//	d := dedup.New(store)
//	id, err := d.GetOrCreate(ctx, types.KindOption, "A", "4")
//
// An in-memory digest cache short-circuits repeated payloads, which
// dominate in real question banks.
package dedup
