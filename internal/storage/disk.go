// Package storage is the filesystem collaborator for uploaded files.
//
// The file service treats storage as a black box behind the Store interface:
// it hands over a server-chosen name and a byte stream, and later asks for
// the stream back. Tests substitute an in-memory or recording implementation
// so service logic runs without touching the disk.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store persists uploaded file content under server-chosen names.
//
// Save must write the full stream or fail; partial writes on crash are a
// known gap delegated to the underlying filesystem. Open returns a reader
// the caller must close.
type Store interface {
	Save(name string, content io.Reader) error
	Open(name string) (io.ReadCloser, error)
}

// DiskStore keeps files in a single flat directory on the local filesystem.
type DiskStore struct {
	root string
}

// NewDiskStore creates a DiskStore rooted at dir, creating the directory
// (and parents) if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating upload directory %s: %w", dir, err)
	}
	return &DiskStore{root: dir}, nil
}

// Save writes content to a new file named name under the store root.
//
// O_EXCL makes creation fail if the name already exists — names are
// generated fresh per upload, so a collision means a bug (or a replayed
// name) and must not silently overwrite another user's file.
func (d *DiskStore) Save(name string, content io.Reader) error {
	path := filepath.Join(d.root, filepath.Base(name))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: creating %s: %w", path, err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path) // don't leave a truncated file behind
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", path, err)
	}
	return nil
}

// Open returns the stored content for name. The caller closes the reader.
func (d *DiskStore) Open(name string) (io.ReadCloser, error) {
	path := filepath.Join(d.root, filepath.Base(name))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}
	return f, nil
}
