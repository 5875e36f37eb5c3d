// ABOUTME: Object store abstraction and in-memory implementation
// ABOUTME: Durable binary storage with public URL retrieval

package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// ObjectStore is durable binary storage with public-URL retrieval. Keys must
// be globally unique per upload; the orchestrator's timestamp-prefixed keys
// satisfy that for single-admin usage.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	PublicURL(key string) string
}

// MemoryStore is an in-process ObjectStore for tests and examples.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

// NewMemoryStore returns an empty store whose public URLs are rooted at
// baseURL, e.g. "https://media.example.com".
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.baseURL, key)
}

// Object returns a stored object's bytes.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
