package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in process memory. The mutex only guards
// the copy itself; Store operations on top of it still race like any other
// backend.
type MemoryStore struct {
	mu   sync.Mutex
	list *ReadingList
}

// NewMemoryStore creates a memory store seeded with an optional document.
func NewMemoryStore(seed *ReadingList) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		s.list = seed.clone()
	}
	return s
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(_ context.Context) (*ReadingList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return &ReadingList{Pending: []string{}, Finished: []string{}}, nil
	}
	return s.list.clone(), nil
}

// Save replaces the stored document with a copy of list.
func (s *MemoryStore) Save(_ context.Context, list *ReadingList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = list.clone()
	return nil
}

var _ Backend = &MemoryStore{}
