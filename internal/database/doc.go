// Package database provides SQLite-based storage for the family tree.
//
// The TreeDB stores two tables:
//   - people: one row per person, keyed by permalink
//   - family: one row per couple, keyed by the composite family id
//
// Both primary keys are declared ON CONFLICT REPLACE, so every write is an
// idempotent upsert: re-discovering a person or a family replaces the stored
// row field for field and never duplicates it.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the tree is
// a single-user artifact that is handed to other tools as one file, and the
// CGO-free driver allows easy cross-compilation.
package database
