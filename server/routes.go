package server

import (
	"context"
	"net/http"
)

// PageHandler produces the data payload injected into a page, or a *Raw
// response to bypass injection entirely. A nil payload injects only the
// import map.
type PageHandler func(ctx context.Context, req *Request) (any, error)

// Route declares one page: an exact-match request path, the source the
// compiler builds the page from, and an optional handler supplying
// server data. Routes are registered at construction and immutable
// afterwards.
type Route struct {
	Path    string
	Source  string
	Handler PageHandler
}

// Raw is returned by a PageHandler to short-circuit page rendering with a
// verbatim response.
type Raw struct {
	Status      int
	ContentType string
	Body        []byte
}

func (r *Raw) write(w http.ResponseWriter) {
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write(r.Body)
}
