package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// tryServeFile serves the file at root/<request path> verbatim when it
// exists, reporting whether it handled the request. Lookup is exact: no
// index files, no directory listings. The cleaned path cannot escape root.
func tryServeFile(w http.ResponseWriter, r *http.Request, root string) bool {
	if root == "" {
		return false
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if rel == "" || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}

	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return false
	}

	// ServeFile derives the content type from the file extension.
	http.ServeFile(w, r, full)
	return true
}
