package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Request is the transient per-request value handed to a page handler. It
// is built fresh for each request and discarded once the response is
// produced. The trace scope (request id and depth) travels on the
// context.Context passed alongside it.
type Request struct {
	Method string
	Path   string
	// Query collapses multi-valued parameters to their last value.
	Query     map[string]string
	Headers   http.Header
	Body      any
	RequestID string
}

func newRequest(r *http.Request, requestID string) *Request {
	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[len(values)-1]
		}
	}

	req := &Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     query,
		Headers:   r.Header,
		RequestID: requestID,
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		req.Body = parseBody(r)
	}

	return req
}

func parseBody(r *http.Request) any {
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return nil
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var payload any
		if err := json.Unmarshal(data, &payload); err == nil {
			return payload
		}
	}
	return string(data)
}
