package blob

import (
	"context"
	"sync"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	// FailStore, when set, is returned by Store (lets tests exercise cleanup paths).
	FailStore error
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Store(ctx context.Context, data []byte, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStore != nil {
		return "", m.FailStore
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[name] = cp
	return name, nil
}

func (m *Memory) Delete(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[ref]; !ok {
		return ErrNotFound
	}
	delete(m.objects, ref)
	return nil
}

// Has reports whether ref is currently stored.
func (m *Memory) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ref]
	return ok
}

// Len returns the number of stored objects.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
