// Package trace provides hierarchical, request-correlated measurement of
// units of work. Each measured unit logs a starting line, then a completed
// or failed line with its wall-clock duration, indented proportionally to
// its nesting depth. The request id and depth travel explicitly on the
// context, never through shared state, so concurrent requests and sibling
// branches cannot corrupt each other.
package trace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/Mements/serve/pkg/trace"

// Scope describes where in a request's trace tree the current call sits.
type Scope struct {
	RequestID string
	Depth     int
}

type scopeKey struct{}

type scope struct {
	requestID string
	depth     int
	logger    *slog.Logger
}

// Option customizes a trace scope.
type Option func(*scope)

// WithLogger routes this scope's trace lines to the provided logger
// instead of the process default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *scope) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewContext returns a context carrying a root trace scope (depth zero) for
// the given request id. An empty id is allowed; lines are then emitted
// without a correlation attribute.
func NewContext(ctx context.Context, requestID string, opts ...Option) context.Context {
	s := &scope{requestID: requestID, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext reports the scope carried by ctx. Contexts that never passed
// through NewContext or Measure yield the zero scope.
func FromContext(ctx context.Context) Scope {
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return Scope{RequestID: s.requestID, Depth: s.depth}
	}
	return Scope{}
}

// Measure runs fn as one measured unit of work labelled label. The context
// given to fn carries a scope one level deeper than ctx's, so nested
// Measure calls indent accordingly. The result of fn is returned unchanged
// on success. On failure the returned error wraps fn's error with the
// failing label, keeping the original cause reachable via errors.Is and
// errors.Unwrap.
func Measure[T any](ctx context.Context, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	cur := currentScope(ctx)
	child := &scope{requestID: cur.requestID, depth: cur.depth + 1, logger: cur.logger}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, label)
	if cur.requestID != "" {
		span.SetAttributes(attribute.String("request_id", cur.requestID))
	}
	defer span.End()

	ctx = context.WithValue(ctx, scopeKey{}, child)

	indent := strings.Repeat("··", cur.depth)
	cur.log(slog.LevelInfo, fmt.Sprintf("%s%s starting", indent, label))

	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		cur.log(slog.LevelError, fmt.Sprintf("%s%s failed", indent, label),
			"duration_ms", elapsed.Milliseconds(), "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, fmt.Errorf("%s: %w", label, err)
	}

	cur.log(slog.LevelInfo, fmt.Sprintf("%s%s completed", indent, label),
		"duration_ms", elapsed.Milliseconds())
	return result, nil
}

// Do is Measure for units of work that produce no result.
func Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	_, err := Measure(ctx, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func currentScope(ctx context.Context) *scope {
	if s, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return s
	}
	return &scope{logger: slog.Default()}
}

func (s *scope) log(level slog.Level, msg string, args ...any) {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	if s.requestID != "" {
		args = append(args, "request_id", s.requestID)
	}
	logger.Log(context.Background(), level, msg, args...)
}
