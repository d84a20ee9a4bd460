// Package migrations embeds SQL migration files for the SQLite stores.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed decks/*.sql index/*.sql
var files embed.FS

// FS contains the deck database migrations.
var FS = mustSub("decks")

// IndexFS contains the persisted index schema.
var IndexFS = mustSub("index")

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
