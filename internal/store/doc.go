// Package store persists embedding records in SQLite and answers top-k
// similarity queries over them. Tables are logical: one row in
// vector_tables per named table, with its fixed vector dimensionality, and
// the records themselves in vector_records.
//
// # Build Flavors
//
// Two build flavors exist, selected by build tag:
//
//   - cgo (-tags sqlite_vec): mattn/go-sqlite3 with the sqlite-vec
//     extension registered at init, so cosine distance runs SQL-side once
//     a table crosses VecIndexThreshold records.
//   - pure Go (default): modernc.org/sqlite, all scoring in-process.
//
// Query semantics are identical either way; the tag only moves where the
// distance computation runs.
//
// # Writes
//
// ReplaceTable swaps a table's full record set in one transaction, so
// readers see either the old index or the new one, never a mix. Schema
// changes go through semver-ordered migrations applied on Open.
package store
