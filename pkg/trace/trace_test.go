package trace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func captureLogger() (*bytes.Buffer, *slog.Logger) {
	buf := &bytes.Buffer{}
	return buf, slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestMeasure_ReturnsResult(t *testing.T) {
	_, logger := captureLogger()
	ctx := NewContext(context.Background(), "req-1", WithLogger(logger))

	got, err := Measure(ctx, "fetch", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestMeasure_NestedIndentation(t *testing.T) {
	buf, logger := captureLogger()
	ctx := NewContext(context.Background(), "req-1", WithLogger(logger))

	err := Do(ctx, "outer", func(ctx context.Context) error {
		return Do(ctx, "middle", func(ctx context.Context) error {
			return Do(ctx, "inner", func(ctx context.Context) error {
				return nil
			})
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"outer starting",
		"··middle starting",
		"····inner starting",
		"····inner completed",
		"··middle completed",
		"outer completed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}

	// Starting lines must appear in call order.
	outerIdx := strings.Index(out, "outer starting")
	middleIdx := strings.Index(out, "middle starting")
	innerIdx := strings.Index(out, "inner starting")
	if !(outerIdx < middleIdx && middleIdx < innerIdx) {
		t.Errorf("starting lines out of order:\n%s", out)
	}
}

func TestMeasure_DepthFromContext(t *testing.T) {
	_, logger := captureLogger()
	ctx := NewContext(context.Background(), "req-1", WithLogger(logger))

	if got := FromContext(ctx).Depth; got != 0 {
		t.Fatalf("expected root depth 0, got %d", got)
	}

	err := Do(ctx, "outer", func(ctx context.Context) error {
		if got := FromContext(ctx).Depth; got != 1 {
			t.Errorf("expected depth 1 inside outer, got %d", got)
		}
		return Do(ctx, "inner", func(ctx context.Context) error {
			if got := FromContext(ctx).Depth; got != 2 {
				t.Errorf("expected depth 2 inside inner, got %d", got)
			}
			if got := FromContext(ctx).RequestID; got != "req-1" {
				t.Errorf("expected request id to propagate, got %q", got)
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMeasure_FailureWrapsCause(t *testing.T) {
	buf, logger := captureLogger()
	ctx := NewContext(context.Background(), "req-1", WithLogger(logger))

	cause := errors.New("boom")
	err := Do(ctx, "outer", func(ctx context.Context) error {
		return Do(ctx, "inner", func(ctx context.Context) error {
			return cause
		})
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("original cause not reachable from %v", err)
	}
	if err.Error() != "outer: inner: boom" {
		t.Errorf("expected accumulated label chain, got %q", err.Error())
	}

	out := buf.String()
	if got := strings.Count(out, "failed"); got != 2 {
		t.Errorf("expected one failed record per measured level (2), got %d:\n%s", got, out)
	}
	if strings.Contains(out, "inner completed") || strings.Contains(out, "outer completed") {
		t.Errorf("failing units must not log completed:\n%s", out)
	}
}

func TestMeasure_NoRequestID(t *testing.T) {
	buf, logger := captureLogger()
	ctx := NewContext(context.Background(), "", WithLogger(logger))

	err := Do(ctx, "anonymous", func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("expected no correlation attribute without an id:\n%s", buf.String())
	}
}

func TestMeasure_BareContext(t *testing.T) {
	// Measure must work on a context that never saw NewContext.
	got, err := Measure(context.Background(), "standalone", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("expected ok, got %q", got)
	}
}

func TestMeasure_ConcurrentRequestsIsolated(t *testing.T) {
	const depth = 5
	var wg sync.WaitGroup
	buffers := make([]*bytes.Buffer, 4)

	for i := range buffers {
		buf, logger := captureLogger()
		buffers[i] = buf
		id := fmt.Sprintf("req-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := NewContext(context.Background(), id, WithLogger(logger))
			var nest func(ctx context.Context, level int) error
			nest = func(ctx context.Context, level int) error {
				if level == depth {
					return nil
				}
				return Do(ctx, fmt.Sprintf("step-%d", level), func(ctx context.Context) error {
					return nest(ctx, level+1)
				})
			}
			if err := nest(ctx, 0); err != nil {
				t.Errorf("request %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	for i, buf := range buffers {
		out := buf.String()
		want := fmt.Sprintf("request_id=req-%d", i)
		if !strings.Contains(out, want) {
			t.Errorf("buffer %d missing own correlation id:\n%s", i, out)
		}
		for j := range buffers {
			if j == i {
				continue
			}
			other := fmt.Sprintf("request_id=req-%d", j)
			if strings.Contains(out, other) {
				t.Errorf("buffer %d contains foreign correlation id %s", i, other)
			}
		}
		// Deepest step keeps its full indent even under concurrency.
		deepest := strings.Repeat("··", depth-1) + fmt.Sprintf("step-%d completed", depth-1)
		if !strings.Contains(out, deepest) {
			t.Errorf("buffer %d missing deepest completion %q:\n%s", i, deepest, out)
		}
	}
}
