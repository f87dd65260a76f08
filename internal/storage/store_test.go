package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type failingBackend struct {
	loadErr error
	saveErr error
	saves   int
}

func (b *failingBackend) Load(_ context.Context) (*ReadingList, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return &ReadingList{}, nil
}

func (b *failingBackend) Save(_ context.Context, _ *ReadingList) error {
	b.saves++
	return b.saveErr
}

func TestStoreAddPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStore(nil))

	urls := []string{"https://a.example", "https://b.example", "https://a.example", "not even a url"}
	for _, u := range urls {
		if err := store.Add(ctx, u); err != nil {
			t.Fatalf("Add(%q) error = %v", u, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !equalURLs(list.Pending, urls) {
		t.Errorf("List() pending = %v, want %v", list.Pending, urls)
	}
	if len(list.Finished) != 0 {
		t.Errorf("List() finished = %v, want empty", list.Finished)
	}
}

func TestStoreComplete(t *testing.T) {
	tests := []struct {
		name         string
		pending      []string
		finished     []string
		url          string
		wantPending  []string
		wantFinished []string
	}{
		{
			name:         "pending url",
			pending:      []string{"https://a.example", "https://b.example"},
			url:          "https://a.example",
			wantPending:  []string{"https://b.example"},
			wantFinished: []string{"https://a.example"},
		},
		{
			name:         "only first duplicate removed",
			pending:      []string{"https://a.example", "https://b.example", "https://a.example"},
			url:          "https://a.example",
			wantPending:  []string{"https://b.example", "https://a.example"},
			wantFinished: []string{"https://a.example"},
		},
		{
			name:         "url not pending is still finished",
			pending:      []string{"https://a.example"},
			finished:     []string{"https://z.example"},
			url:          "https://b.example",
			wantPending:  []string{"https://a.example"},
			wantFinished: []string{"https://z.example", "https://b.example"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewStore(NewMemoryStore(&ReadingList{Pending: tt.pending, Finished: tt.finished}))

			if err := store.Complete(ctx, tt.url); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}

			list, err := store.List(ctx)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !equalURLs(list.Pending, tt.wantPending) {
				t.Errorf("pending = %v, want %v", list.Pending, tt.wantPending)
			}
			if !equalURLs(list.Finished, tt.wantFinished) {
				t.Errorf("finished = %v, want %v", list.Finished, tt.wantFinished)
			}
		})
	}
}

func TestStoreCompleteEmptyURL(t *testing.T) {
	backend := &failingBackend{}
	store := NewStore(backend)

	err := store.Complete(context.Background(), "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Complete(\"\") error = %v, want ErrInvalidArgument", err)
	}
	if backend.saves != 0 {
		t.Errorf("Complete(\"\") saved the document %d times", backend.saves)
	}
}

func TestStoreErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	ctx := context.Background()

	tests := []struct {
		name    string
		backend *failingBackend
		op      func(*Store) error
		wantOp  string
	}{
		{
			name:    "list load failure",
			backend: &failingBackend{loadErr: boom},
			op:      func(s *Store) error { _, err := s.List(ctx); return err },
			wantOp:  "load",
		},
		{
			name:    "add save failure",
			backend: &failingBackend{saveErr: boom},
			op:      func(s *Store) error { return s.Add(ctx, "https://a.example") },
			wantOp:  "save",
		},
		{
			name:    "complete load failure",
			backend: &failingBackend{loadErr: boom},
			op:      func(s *Store) error { return s.Complete(ctx, "https://a.example") },
			wantOp:  "load",
		},
		{
			name:    "complete save failure",
			backend: &failingBackend{saveErr: boom},
			op:      func(s *Store) error { return s.Complete(ctx, "https://a.example") },
			wantOp:  "save",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op(NewStore(tt.backend))

			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("error = %v, want *StorageError", err)
			}
			if storageErr.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", storageErr.Op, tt.wantOp)
			}
			if !errors.Is(err, boom) {
				t.Errorf("error should wrap the backend error, got %v", err)
			}
		})
	}
}

func TestStoreCorruptFile(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "articles.json")
	if err := os.WriteFile(storePath, []byte(`{"pending": [`), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	store := NewStore(NewJSONStore(storePath))
	_, err := store.List(context.Background())

	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("List() on corrupt file error = %v, want *StorageError", err)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewJSONStore(filepath.Join(t.TempDir(), "articles.json")))

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list.Pending) != 0 || len(list.Finished) != 0 {
		t.Fatalf("initial document = %+v, want empty", list)
	}

	if err := store.Add(ctx, "http://a"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	list, _ = store.List(ctx)
	if !equalURLs(list.Pending, []string{"http://a"}) || len(list.Finished) != 0 {
		t.Errorf("after Add() = %+v", list)
	}

	if err := store.Complete(ctx, "http://a"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	list, _ = store.List(ctx)
	if len(list.Pending) != 0 || !equalURLs(list.Finished, []string{"http://a"}) {
		t.Errorf("after Complete() = %+v", list)
	}
}
