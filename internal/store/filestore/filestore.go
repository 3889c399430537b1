// Package filestore persists signatures as one raw file per label in a
// directory, e.g. registered_faces/Alice.face.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

const (
	// DefaultExtension is appended to every label to form its file name.
	DefaultExtension = ".face"

	filePermissions = 0o644
	dirPermissions  = 0o755
)

// Store is a directory-backed store.Store.
type Store struct {
	dir string
	ext string
	// mu serialises mutations against listing and reading.
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New creates the directory if needed and returns a store rooted at it.
func New(dir, ext string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("faces directory is required")
	}
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create faces directory: %w", err)
	}
	return &Store{dir: filepath.Clean(dir), ext: ext}, nil
}

// Dir returns the directory holding the signature files.
func (s *Store) Dir() string {
	return s.dir
}

// validateLabel rejects labels that cannot be used as a plain file name.
func validateLabel(label string) error {
	if store.IsBlank(label) || label == "." || label == ".." {
		return fmt.Errorf("%w: %q", store.ErrInvalidLabel, label)
	}
	if strings.ContainsAny(label, "/\\\x00") {
		return fmt.Errorf("%w: %q contains a path separator", store.ErrInvalidLabel, label)
	}
	return nil
}

func (s *Store) path(label string) (string, error) {
	if err := validateLabel(label); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, label+s.ext), nil
}

// exists must be called with mu held.
func (s *Store) exists(label string) (bool, error) {
	p, err := s.path(label)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, store.Fail("stat", label, err)
	}
	return true, nil
}

// Exists reports whether a file is stored for label.
func (s *Store) Exists(_ context.Context, label string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(label)
}

// Create writes the signature atomically: readers see either no file or the
// complete file, never a partial write.
func (s *Store) Create(_ context.Context, label string, sig signature.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.exists(label)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, label)
	}

	// The directory may have been removed by hand since startup.
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return store.Fail("mkdir", label, err)
	}

	p, _ := s.path(label)
	if err := renameio.WriteFile(p, sig.Bytes(), filePermissions); err != nil {
		return store.Fail("write", label, err)
	}
	return nil
}

// labels must be called with mu held.
func (s *Store) labels() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, store.Fail("list", "", err)
	}

	labels := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, s.ext) {
			continue
		}
		label := strings.TrimSuffix(name, s.ext)
		// A bare ".face" file has no usable label.
		if validateLabel(label) != nil {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// Labels returns every label in the directory sorted ascending.
// Files without the configured extension are ignored.
func (s *Store) Labels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels()
}

// Entries reads every signature file. A read failure on any file aborts the
// whole listing.
func (s *Store) Entries(_ context.Context) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels, err := s.labels()
	if err != nil {
		return nil, err
	}

	entries := make([]store.Entry, 0, len(labels))
	for _, label := range labels {
		data, err := os.ReadFile(filepath.Join(s.dir, label+s.ext))
		if err != nil {
			return nil, store.Fail("read", label, err)
		}
		entries = append(entries, store.Entry{
			Label:     label,
			Signature: signature.FromBytes(data),
		})
	}
	return entries, nil
}

// Rename moves the file of oldLabel to newLabel without overwriting.
func (s *Store) Rename(_ context.Context, oldLabel, newLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPath, err := s.path(oldLabel)
	if err != nil {
		return err
	}
	newPath, err := s.path(newLabel)
	if err != nil {
		return err
	}

	found, err := s.exists(oldLabel)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", store.ErrNotFound, oldLabel)
	}
	taken, err := s.exists(newLabel)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, newLabel)
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return store.Fail("rename", oldLabel, err)
	}
	return nil
}

// Delete removes the file stored for label.
func (s *Store) Delete(_ context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(label)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", store.ErrNotFound, label)
		}
		return store.Fail("delete", label, err)
	}
	return nil
}

// Close is a no-op; the directory needs no teardown.
func (s *Store) Close() error {
	return nil
}
