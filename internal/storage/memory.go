package storage

import (
	"context"
	"fmt"
	"sync"

	"cvforge/internal/errors"
)

// MemoryStore is an in-process ObjectStore used in tests and local runs
// without cloud credentials.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailPuts makes the next n Put calls fail, for exercising retry paths.
	FailPuts int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data under key and returns a synthetic URL.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts > 0 {
		s.FailPuts--
		return "", errors.NewStorageError(errors.ErrCodeStorageFailed, "simulated storage failure", nil)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return fmt.Sprintf("memory://%s", key), nil
}

// Get returns the stored bytes or a not-found error.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.NewStorageError(errors.ErrCodeStorageNotFound,
			fmt.Sprintf("object %s not found", key), nil)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Delete removes the object; deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Len reports how many objects the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
