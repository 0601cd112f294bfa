package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/Mements/serve/pkg/artifact"
	"github.com/Mements/serve/pkg/trace"
)

const requestIDHeader = "X-Request-Id"

// ServeHTTP dispatches one inbound request. Branch order, first match
// wins: build-output file, asset file, page route, API route, not found.
// The whole handling runs inside one root trace span correlated by the
// request id, which is taken from the caller's X-Request-Id header or
// generated here.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	ctx := trace.NewContext(r.Context(), requestID, trace.WithLogger(s.logger))

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler panicked", "request_id", requestID, "path", r.URL.Path, "panic", rec)
			s.writeFailure(w, fmt.Errorf("panic: %v", rec))
		}
	}()

	// The response is written inside dispatch; the returned error only
	// marks the root span's outcome.
	_ = trace.Do(ctx, r.Method+" "+r.URL.Path, func(ctx context.Context) error {
		return s.dispatch(ctx, w, r, requestID)
	})
}

func (s *Server) dispatch(ctx context.Context, w http.ResponseWriter, r *http.Request, requestID string) error {
	if tryServeFile(w, r, s.distDir) {
		return nil
	}
	if tryServeFile(w, r, s.assetsDir) {
		return nil
	}

	if route, ok := s.routes[r.URL.Path]; ok {
		return s.servePage(ctx, w, r, route, requestID)
	}

	if handler, ok := s.api[r.URL.Path]; ok {
		r.Header.Set(requestIDHeader, requestID)
		handler.ServeHTTP(w, r.WithContext(ctx))
		return nil
	}

	http.Error(w, "not found", http.StatusNotFound)
	return nil
}

func (s *Server) servePage(ctx context.Context, w http.ResponseWriter, r *http.Request, route Route, requestID string) error {
	artifactPath, err := trace.Measure(ctx, "artifact "+route.Path, func(ctx context.Context) (string, error) {
		return s.artifacts.Artifact(ctx, route.Source)
	})
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return err
		}
		s.writeFailure(w, err)
		return err
	}

	html, err := os.ReadFile(artifactPath)
	if err != nil {
		err = fmt.Errorf("failed to read artifact %s: %w", artifactPath, err)
		s.writeFailure(w, err)
		return err
	}

	var data any
	if route.Handler != nil {
		data, err = trace.Measure(ctx, "handler "+route.Path, func(ctx context.Context) (any, error) {
			return route.Handler(ctx, newRequest(r, requestID))
		})
		if err != nil {
			s.writeFailure(w, err)
			return err
		}
	}

	if raw, ok := data.(*Raw); ok {
		raw.write(w)
		return nil
	}

	out, err := trace.Measure(ctx, "inject "+route.Path, func(ctx context.Context) ([]byte, error) {
		return s.injector.Inject(html, s.imports, data, requestID)
	})
	if err != nil {
		s.writeFailure(w, err)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(out)
	return nil
}

// writeFailure reports a handler-class failure: detailed in development,
// generic in production.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	if s.devMode {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
