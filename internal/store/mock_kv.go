// ABOUTME: In-memory KV implementation for testing
// ABOUTME: Tracks read/write/delete counts so tests can assert store traffic

package store

import (
	"context"
	"sync"
)

// MockKV is an in-memory KV implementation for tests. The operation counters
// let tests assert that pass-through request paths perform zero store reads.
type MockKV struct {
	mu      sync.RWMutex
	data    map[string]string
	reads   int
	writes  int
	deletes int

	// GetErr, when set, is returned by every Get to simulate store failure.
	GetErr error
}

// NewMockKV creates an empty MockKV.
func NewMockKV() *MockKV {
	return &MockKV{data: make(map[string]string)}
}

// Seed stores a value without touching the write counter.
func (m *MockKV) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// Has reports whether key currently exists, without counting as a read.
func (m *MockKV) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// Reads returns the number of Get calls observed.
func (m *MockKV) Reads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads
}

// Get returns the stored value or ErrNotFound.
func (m *MockKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.GetErr != nil {
		return "", m.GetErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Put stores value at key.
func (m *MockKV) Put(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.data[key] = value
	return nil
}

// Delete removes key.
func (m *MockKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}
