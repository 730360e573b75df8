package migrations

import "embed"

// FS contains embedded SQLite migrations for the journey document store.
//
//go:embed *.sql
var FS embed.FS
