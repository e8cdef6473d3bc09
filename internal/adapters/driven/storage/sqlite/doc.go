// Package sqlite provides the SQLite-backed driven.IndexStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Each document's index is a self-contained database file:
//
//	<root>/<document_id>/index.db
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. A file whose schema version is newer than this
// binary understands is reported as corrupt rather than misread.
//
// # Atomic Writes
//
// Save builds a complete database in a uniquely named temporary file in the
// same directory and renames it over index.db. Readers never observe a
// partially written index, and concurrent saves of one document are
// last-writer-wins.
//
// # Data Location
//
// By default, indexes are stored under ~/.docqa/indexes
package sqlite
