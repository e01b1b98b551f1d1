package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// Used by cmd/migrate and by the server when AUTO_MIGRATE is set.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
