package storage

import (
	"context"
	"sync"
)

// Memory keeps open namespaces in process memory. A released namespace is
// gone.
type Memory struct {
	mu     sync.Mutex
	spaces map[string]*memoryStore
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{spaces: make(map[string]*memoryStore)}
}

// Open returns the namespace, creating it on first use.
func (m *Memory) Open(_ context.Context, namespace string) (Store, error) {
	if err := checkNamespace(namespace); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spaces[namespace]
	if !ok {
		s = &memoryStore{values: make(map[string]string)}
		m.spaces[namespace] = s
	}
	return s, nil
}

// Release drops the namespace and its values.
func (m *Memory) Release(namespace string) {
	m.mu.Lock()
	delete(m.spaces, namespace)
	m.mu.Unlock()
}

// Len returns the number of namespaces held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.spaces)
}

type memoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.values, k)
	}
	s.mu.Unlock()
	return nil
}
