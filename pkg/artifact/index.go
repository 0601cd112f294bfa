package artifact

import (
	"context"
	"sync"
)

// Index maps cache keys to the filesystem location of the latest compiled
// artifact. Records are replaced whole, never merged.
type Index interface {
	// Get returns the recorded path for key and whether a record exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put records path as the live artifact for key, replacing any
	// previous record.
	Put(ctx context.Context, key, path string) error
	// Reset drops every record. Called once at process start.
	Reset(ctx context.Context) error
}

// MemoryIndex is the in-process Index used by a single serving instance.
type MemoryIndex struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{records: make(map[string]string)}
}

func (m *MemoryIndex) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.records[key]
	return path, ok, nil
}

func (m *MemoryIndex) Put(ctx context.Context, key, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = path
	return nil
}

func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]string)
	return nil
}
