// Package memstore provides an in-memory store implementation for testing.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/discochess/tiercache/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory store. It counts reads so tests can assert how
// often a cache fell through to it.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	reads   atomic.Int64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// Set stores data under key.
// The data is copied to prevent caller mutations from affecting the store.
func (s *Store) Set(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = copied
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
}

// Read returns the object stored under key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return data, nil
}

// Reads returns the number of Read calls made so far.
func (s *Store) Reads() int64 {
	return s.reads.Load()
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}
