// Package migrations embeds SQL migration files for the SQLite index store.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

// Latest is the highest migration version. Files written by this binary
// carry this version.
const Latest = 1
