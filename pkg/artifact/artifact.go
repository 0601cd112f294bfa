// Package artifact decides, per request, whether a previously compiled
// page artifact is still valid and triggers a rebuild when it is not.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/Mements/serve/pkg/trace"
)

// ErrNotFound reports that a route could not be resolved to a compiled
// artifact: the compile step failed or produced no output matching the
// route's expected extension.
var ErrNotFound = errors.New("artifact not found")

// Key derives the cache key for a file name: its case-normalized base name
// and extension. Keys are computed from output file names, since a compiler
// may rename its outputs.
func Key(name string) string {
	return strings.ToLower(filepath.Base(name))
}

// Cache owns the rebuild decision for page routes. It is safe for
// concurrent use; concurrent rebuild triggers for the same key are
// coalesced into one compile.
type Cache struct {
	index    Index
	compiler Compiler
	dev      bool
	logger   *slog.Logger
	group    singleflight.Group
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithDevMode makes the cache treat every request as cold, recompiling the
// route before serving so edits show up immediately.
func WithDevMode(dev bool) CacheOption {
	return func(c *Cache) { c.dev = dev }
}

// WithLogger sets the cache's logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a rebuild-deciding cache over the given index and
// compiler.
func NewCache(index Index, compiler Compiler, opts ...CacheOption) *Cache {
	c := &Cache{
		index:    index,
		compiler: compiler,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Artifact resolves source to the filesystem path of its compiled output.
//
// In development mode the compiler runs on every call. In production mode
// an existing record whose file is still on disk is served as-is; a
// missing record or an externally deleted file triggers one rebuild. A
// failed compile, or one that emits nothing matching source's extension,
// yields an error satisfying errors.Is(err, ErrNotFound) and leaves the
// index untouched.
func (c *Cache) Artifact(ctx context.Context, source string) (string, error) {
	key := Key(source)

	if !c.dev {
		path, ok, err := c.index.Get(ctx, key)
		if err != nil {
			// A broken index read degrades to a rebuild rather than
			// failing the request.
			c.logger.Warn("artifact index read failed", "key", key, "error", err)
		} else if ok {
			if fileExists(path) {
				return path, nil
			}
			c.logger.Info("cached artifact missing on disk, rebuilding", "key", key, "path", path)
		}
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		return c.rebuild(ctx, source, key)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *Cache) rebuild(ctx context.Context, source, key string) (string, error) {
	outputs, err := trace.Measure(ctx, "compile "+source, func(ctx context.Context) ([]Output, error) {
		return c.compiler.Compile(ctx, []string{source})
	})
	if err != nil {
		return "", fmt.Errorf("route unbuildable: %w", errors.Join(ErrNotFound, err))
	}

	match := matchOutput(outputs, source, key)
	if match == "" {
		return "", fmt.Errorf("route unbuildable: %w: compile of %s produced no %s output",
			ErrNotFound, source, filepath.Ext(source))
	}

	// Publish every output the pass produced, not just the matching one.
	for _, out := range outputs {
		if putErr := c.index.Put(ctx, Key(out.Path), out.Path); putErr != nil {
			c.logger.Warn("artifact index write failed", "key", Key(out.Path), "error", putErr)
		}
	}

	// A compiler may rename or hash its output names, in which case the
	// matched output's own key differs from the route's lookup key. Record
	// the match under the lookup key too, so the next request hits.
	if Key(match) != key {
		if putErr := c.index.Put(ctx, key, match); putErr != nil {
			c.logger.Warn("artifact index write failed", "key", key, "error", putErr)
		}
	}
	return match, nil
}

// matchOutput picks the output serving source: an output produced for that
// entrypoint when the compiler reports one, otherwise the first output
// carrying the route's expected extension.
func matchOutput(outputs []Output, source, key string) string {
	wantExt := strings.ToLower(filepath.Ext(source))
	for _, out := range outputs {
		if out.EntryPoint == source && strings.ToLower(filepath.Ext(out.Path)) == wantExt {
			return out.Path
		}
	}
	for _, out := range outputs {
		if Key(out.Path) == key {
			return out.Path
		}
	}
	for _, out := range outputs {
		if strings.ToLower(filepath.Ext(out.Path)) == wantExt {
			return out.Path
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
