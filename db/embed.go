// Package db embeds the SQL migrations so production builds can run
// them without the source tree present.
package db

import "embed"

// Migrations holds the embedded migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
