// Package migrations embeds the goose schema migrations of the relational
// credential store, one directory per SQL dialect.
package migrations

import "embed"

// Postgres holds the migrations applied through the pgx driver.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations applied through modernc.org/sqlite.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
