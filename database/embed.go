package database

import "embed"

// EmbeddedMigrations holds migrations/*.sql, compiled into the binary.
// Use fs.Sub(EmbeddedMigrations, "migrations") to get the directory root.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
