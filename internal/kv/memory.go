package kv

import "sync"

// Memory is an in-memory Backend for tests that never touches disk.
type Memory struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get returns the stored value, if any.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok, nil
}

// Set stores the value in memory.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
	return nil
}

// Path returns ":memory:" to indicate there is no backing file.
func (m *Memory) Path(string) string { return ":memory:" }

var _ Backend = (*Memory)(nil)
