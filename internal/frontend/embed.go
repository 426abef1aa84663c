// Package frontend serves the embedded frame preview page.
package frontend

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed static
var staticFiles embed.FS

// ServeStatic serves the preview page and its assets. Unknown paths fall
// back to index.html.
func ServeStatic() http.Handler {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name != "" {
			if _, err := fs.Stat(root, name); err != nil {
				http.ServeFileFS(w, r, root, "index.html")
				return
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
