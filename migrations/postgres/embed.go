// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS contains the numbered up/down migrations in golang-migrate format.
//
//go:embed sql/*.sql
var FS embed.FS

// Dir is the directory within FS where migrations live.
const Dir = "sql"
