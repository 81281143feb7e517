package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local is a FileStore over a directory on disk, such as a model
// repository. Paths resolve relative to the root.
type Local struct {
	root string
}

// OpenLocal returns a Local store rooted at an existing directory. Unlike
// NewLocal it never creates anything; a missing root yields an error
// wrapping fs.ErrNotExist.
func OpenLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %s is not a directory", abs)
	}
	return &Local{root: abs}, nil
}

// NewLocal is OpenLocal for a directory that may not exist yet; it is
// created with its parents.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) resolve(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

func (l *Local) Read(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(path))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Write stages data in a hidden temporary file next to the target and
// renames it into place on Close.
func (l *Local) Write(_ context.Context, path string) (io.WriteCloser, error) {
	full := l.resolve(path)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &localWriter{File: tmp, target: full}, nil
}

type localWriter struct {
	*os.File
	target string
	closed bool
}

func (w *localWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.File.Close(); err != nil {
		os.Remove(w.Name())
		return err
	}
	if err := os.Chmod(w.Name(), 0o644); err != nil {
		os.Remove(w.Name())
		return err
	}
	if err := os.Rename(w.Name(), w.target); err != nil {
		os.Remove(w.Name())
		return err
	}
	return nil
}

// abort drops the temporary file without touching the target.
func (w *localWriter) abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.File.Close()
	return os.Remove(w.Name())
}

// Delete removes the named file. A missing file is not an error.
func (l *Local) Delete(_ context.Context, path string) error {
	err := os.Remove(l.resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the named regular file exists.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(l.resolve(path))
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// List returns the visible regular files directly inside dir. Symlinks are
// followed and kept when they point at a regular file; subdirectories,
// dangling links and dot-files, including in-flight writes, are skipped.
func (l *Local) List(_ context.Context, dir string) ([]Entry, error) {
	des, err := os.ReadDir(l.resolve(dir))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		var (
			info fs.FileInfo
			err  error
		)
		switch {
		case de.Type().IsRegular():
			info, err = de.Info()
		case de.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(filepath.Join(l.resolve(dir), de.Name()))
		default:
			continue
		}
		if err != nil {
			// Removed between ReadDir and Info, or a dangling link.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size()})
	}
	// os.ReadDir already sorts by name.
	return entries, nil
}
