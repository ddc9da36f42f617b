// Package assets embeds the SQL schema migrations of the server database.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embedFS embed.FS

// Migrations returns the migration files, named NNNN_description.sql so that
// lexical order is apply order.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedFS, "migrations")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return sub
}
