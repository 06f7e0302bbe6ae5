// Package filestore resolves /files/ names against a serving directory.
//
// Every access goes through an os.Root, so names containing ".." segments,
// absolute paths or symlinks leading out of the directory never reach
// files outside it.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotFound    = errors.New("filestore: not found")
	ErrInvalidName = errors.New("filestore: invalid name")
)

// Store reads and writes whole files under one directory.
type Store struct {
	root *os.Root
}

// Open returns a Store rooted at dir, which must exist.
func Open(dir string) (*Store, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", dir, err)
	}
	return &Store{root: root}, nil
}

// Dir returns the serving directory.
func (s *Store) Dir() string { return s.root.Name() }

func (s *Store) Close() error { return s.root.Close() }

// Read returns the full contents of the regular file name. Missing files,
// directories and other non-regular files all report ErrNotFound.
func (s *Store) Read(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("filestore: open %s: %w", name, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("filestore: stat %s: %w", name, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, name)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", name, err)
	}
	return data, nil
}

// Write creates name, or truncates it if it already exists, and writes
// data into it.
func (s *Store) Write(name string, data []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	f, err := s.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("filestore: create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("filestore: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("filestore: close %s: %w", name, err)
	}
	return nil
}

func checkName(name string) error {
	if name == "" || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
