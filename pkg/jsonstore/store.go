package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned when a cache file is missing or unreadable.
// Callers treat both the same way: rebuild from upstream.
var ErrNotFound = errors.New("cache file not found")

// Store persists whole JSON documents under a base directory.
// Writes go to a temp file first and are renamed into place, so a
// crash mid-write never leaves a truncated cache behind.
type Store struct {
	dir string
}

// New creates a store rooted at dir
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the base directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the absolute path for a cache file name
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load reads and decodes a cache file into v.
// A missing or corrupt file returns ErrNotFound.
func (s *Store) Load(name string, v interface{}) error {
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		// Corrupt cache is indistinguishable from no cache for callers
		return fmt.Errorf("%s: corrupt cache (%v): %w", name, err, ErrNotFound)
	}

	return nil
}

// Save encodes v and atomically replaces the cache file
func (s *Store) Save(name string, v interface{}) error {
	path := s.Path(name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	return nil
}

// Exists reports whether a cache file is present
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Age returns how long ago the cache file was last written.
// Returns ErrNotFound if the file is missing.
func (s *Store) Age(name string) (time.Duration, error) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	return time.Since(info.ModTime()), nil
}

// Remove deletes a cache file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
