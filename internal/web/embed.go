// Package web holds the built-in pages and assets served when no
// STATIC_PATH or TEMPLATES_PATH override is configured.
package web

import (
	"embed"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
)

//go:embed static templates
var assets embed.FS

// Static returns the static asset tree, rooted so "index.html" is at the top.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Templates returns the HTML template tree ("auth/login.html", "dashboard.html").
func Templates() fs.FS {
	sub, err := fs.Sub(assets, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// DirOr returns the directory at path when it exists, otherwise fallback.
func DirOr(path string, fallback fs.FS) fs.FS {
	if path == "" {
		return fallback
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		log.Warn().Str("path", path).Msg("directory not found, using built-in assets")
		return fallback
	}
	return os.DirFS(path)
}
