package featcache

import (
	"context"
	"sync"

	"github.com/haivivi/langid/pkg/audio/mfcc"
)

// Memory is an in-memory Cache. Values go through the same msgpack
// encoding as Badger, so callers never share row storage with the cache.
// It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[Key][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) (mfcc.Matrix, error) {
	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(v)
}

func (m *Memory) Set(_ context.Context, key Key, mat mfcc.Matrix) error {
	v, err := encode(mat)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	n := len(m.data)
	clear(m.data)
	m.mu.Unlock()
	return n, nil
}

// Len returns the number of cached matrices.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close() error { return nil }

var _ Cache = (*Memory)(nil)
