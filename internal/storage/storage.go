// Package storage provides persistence for the reading list.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadingList is the persisted document: URLs still to read and URLs already read.
type ReadingList struct {
	Pending  []string `json:"pending"`
	Finished []string `json:"finished"`
}

// UnmarshalJSON accepts documents written by the first version of the
// service, which kept the pending list under "articles".
func (r *ReadingList) UnmarshalJSON(data []byte) error {
	var raw struct {
		Pending  []string `json:"pending"`
		Articles []string `json:"articles"`
		Finished []string `json:"finished"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Pending = append(raw.Pending, raw.Articles...)
	r.Finished = raw.Finished
	r.normalize()
	return nil
}

// MarshalJSON always writes both lists, never null.
func (r ReadingList) MarshalJSON() ([]byte, error) {
	r.normalize()
	type plain ReadingList
	return json.Marshal(plain(r))
}

func (r *ReadingList) normalize() {
	if r.Pending == nil {
		r.Pending = []string{}
	}
	if r.Finished == nil {
		r.Finished = []string{}
	}
}

func (r *ReadingList) clone() *ReadingList {
	return &ReadingList{
		Pending:  append([]string{}, r.Pending...),
		Finished: append([]string{}, r.Finished...),
	}
}

// Backend loads and saves the whole reading list document.
type Backend interface {
	Load(ctx context.Context) (*ReadingList, error)
	Save(ctx context.Context, list *ReadingList) error
}

// JSONStore manages reading list persistence in a single JSON file.
type JSONStore struct {
	filepath string
}

// NewJSONStore creates a new JSON store at the specified file path.
func NewJSONStore(filepath string) *JSONStore {
	return &JSONStore{filepath: filepath}
}

// Path returns the file backing the store.
func (s *JSONStore) Path() string {
	return s.filepath
}

// Load reads the reading list from the JSON file. A missing file is an empty list.
func (s *JSONStore) Load(_ context.Context) (*ReadingList, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(s.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ReadingList{Pending: []string{}, Finished: []string{}}, nil
		}
		return nil, err
	}

	var list ReadingList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.filepath, err)
	}

	return &list, nil
}

// Save overwrites the JSON file with the given reading list.
func (s *JSONStore) Save(_ context.Context, list *ReadingList) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.filepath); dir != "" {
		// #nosec G301 -- 0755 is appropriate for the data directory
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return os.WriteFile(s.filepath, data, 0600)
}

var _ Backend = &JSONStore{}
