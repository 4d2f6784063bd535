// Package web holds the embedded static files of the landing page.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static returns the static directory rooted at its contents, so hero
// assets resolve as "svg_components/logo.svg".
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
