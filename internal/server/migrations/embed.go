// Package migrations embeds the goose SQL migrations for each SQL backend.
package migrations

import "embed"

// Directory names inside Migrations, one per dialect.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
