package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a required argument is missing.
var ErrInvalidArgument = errors.New("invalid argument")

// StorageError reports a backend that could not be read, parsed or written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store implements the reading list operations on top of a Backend.
//
// Every operation loads the whole document, changes it in memory and saves
// it back. Nothing serializes callers: two overlapping writes resolve as
// last writer wins on the whole document, and the earlier change is lost.
type Store struct {
	backend Backend
}

// NewStore creates a store over the given backend.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// List returns the current document.
func (s *Store) List(ctx context.Context) (*ReadingList, error) {
	return s.load(ctx)
}

// Add appends url to the pending list. Duplicates are kept.
func (s *Store) Add(ctx context.Context, url string) error {
	list, err := s.load(ctx)
	if err != nil {
		return err
	}

	list.Pending = append(list.Pending, url)
	return s.save(ctx, list)
}

// Complete removes the first occurrence of url from the pending list and
// records it as finished. The url is recorded as finished even when it was
// not pending.
func (s *Store) Complete(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidArgument)
	}

	list, err := s.load(ctx)
	if err != nil {
		return err
	}

	for i, pending := range list.Pending {
		if pending == url {
			list.Pending = append(list.Pending[:i], list.Pending[i+1:]...)
			break
		}
	}
	list.Finished = append(list.Finished, url)

	return s.save(ctx, list)
}

func (s *Store) load(ctx context.Context) (*ReadingList, error) {
	list, err := s.backend.Load(ctx)
	if err != nil {
		return nil, &StorageError{Op: "load", Err: err}
	}
	list.normalize()
	return list, nil
}

func (s *Store) save(ctx context.Context, list *ReadingList) error {
	if err := s.backend.Save(ctx, list); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}
