// Package shelf owns the book collection: durable JSON persistence,
// filtered views, and batched daily-target refresh.
package shelf

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evanfreeze/readrate-cli/model"
)

// Store reads and writes the whole book collection as one pretty-printed
// JSON array at a fixed path. The path is shared between every process
// that tracks reading (single-writer discipline; there is no lock).
type Store struct {
	path string
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the collection from disk. A missing file yields an empty
// collection. A file that no longer parses is preserved next to the
// original as ".corrupt-<unix>" for diagnostics, then also treated as
// empty rather than failing the process.
func (s *Store) Load() ([]model.Book, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read shelf file: %w", err)
	}

	var books []model.Book
	if err := json.Unmarshal(data, &books); err != nil {
		s.preserveCorrupt()
		return nil, nil
	}
	return books, nil
}

// Save serializes the whole collection and atomically replaces the shelf
// file, writing to a temp file in the same directory and renaming over
// the original so a crash can never leave a truncated shelf.
func (s *Store) Save(books []model.Book) error {
	if books == nil {
		books = []model.Book{}
	}
	data, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode shelf: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shelf directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp shelf file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write shelf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp shelf file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set shelf permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace shelf file: %w", err)
	}
	return nil
}

// preserveCorrupt moves an unparseable shelf file aside so it can be
// inspected later. Best effort only.
func (s *Store) preserveCorrupt() {
	backup := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	os.Rename(s.path, backup)
}
