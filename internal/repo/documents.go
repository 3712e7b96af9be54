// Package repo implements the persistence layer for the bot's documents.
// This file defines the DocumentStore contract and its file-backed
// implementation.
//
// A document is a named blob of indented JSON. Backends know nothing about
// the shape of what they store; typed access lives in Store.
//
// Error semantics:
//   - Load returns ErrDocumentNotFound when the named document was never
//     written.
//   - Other I/O or database errors are returned wrapped with the document
//     name.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDocumentNotFound is returned when a requested document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore persists named documents.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, body []byte) error
	Close() error
}

// FileDocumentStore keeps one "<name>.json" file per document in Dir.
type FileDocumentStore struct {
	Dir string
}

// NewFileDocumentStore creates dir if needed and returns a store rooted there.
func NewFileDocumentStore(dir string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %q: %w", dir, err)
	}
	return &FileDocumentStore{Dir: dir}, nil
}

// Path returns the file path of the named document.
func (s *FileDocumentStore) Path(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// Load reads the named document.
func (s *FileDocumentStore) Load(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return b, nil
}

// Save replaces the named document. The body is written to a temp file in
// the same directory and renamed over the target.
func (s *FileDocumentStore) Save(_ context.Context, name string, body []byte) error {
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		cleanup()
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileDocumentStore) Close() error { return nil }
