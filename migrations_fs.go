package buildhook

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the document table migrations for postgres and, under
// data/sql/migrations/sqlite, for sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
