// Package assets provides access to embedded static files: SQL migrations
// and widget HTML templates.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql templates/*.tmpl
var embedFS embed.FS

// ReadFile returns the content of a specific embedded file by its path.
func ReadFile(name string) ([]byte, error) {
	return embedFS.ReadFile(name)
}

// ReadDir returns the directory entries for a specific embedded path.
func ReadDir(name string) ([]fs.DirEntry, error) {
	return embedFS.ReadDir(name)
}
