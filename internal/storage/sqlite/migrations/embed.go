package migrations

import "embed"

// FS contains embedded SQLite migrations for ladder storage.
//
//go:embed *.sql
var FS embed.FS
