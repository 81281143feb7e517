// Package storage defines the FileStore interface used to read model files.
// It abstracts the backend so that a model repository can live on local
// disk or in an S3-compatible bucket without changing the loader.
package storage

import (
	"context"
	"io"
)

// Entry describes one file returned by FileStore.List.
type Entry struct {
	// Name is the path relative to the listed directory, without any
	// directory component.
	Name string

	// Size in bytes.
	Size int64
}

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// The caller must close the returned ReadCloser when done.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing. The new content replaces
	// any existing file only once the returned WriteCloser is closed, so
	// concurrent readers see either the old or the new model, never a
	// partial one. A write that fails part way is discarded by WriteAll
	// and leaves the old file untouched. Parent directories are created
	// automatically.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file.
	// If the file does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the regular files directly inside dir ("" for the
	// root), sorted by name. Subdirectories and hidden files (leading
	// dot) are not returned.
	List(ctx context.Context, dir string) ([]Entry, error)
}

// ReadAll reads the named file from fs in full.
func ReadAll(ctx context.Context, fs FileStore, path string) ([]byte, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteAll writes data to the named file, replacing any previous content.
func WriteAll(ctx context.Context, fs FileStore, path string, data []byte) error {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		discard(w)
		return err
	}
	return w.Close()
}

// aborter is implemented by writers that can drop staged content without
// publishing it.
type aborter interface {
	abort() error
}

// discard ends an unfinished write so the previous file stays in place.
func discard(w io.WriteCloser) {
	if a, ok := w.(aborter); ok {
		a.abort()
		return
	}
	w.Close()
}
