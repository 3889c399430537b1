// Package store defines the signature store contract shared by the
// enrollment coordinator and the match engine, plus the error kinds every
// backend reports.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/face-gate/internal/signature"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotFound is returned when no entry exists for a label.
	ErrNotFound = errors.New("label not found")
	// ErrAlreadyExists is returned when an entry already exists for a label.
	ErrAlreadyExists = errors.New("label already exists")
	// ErrInvalidLabel is returned when a backend cannot use a label as a key.
	ErrInvalidLabel = errors.New("invalid label")
	// ErrStorageFailure matches every StorageError via errors.Is.
	ErrStorageFailure = errors.New("storage failure")
)

// Entry is a labelled signature as persisted by a Store.
type Entry struct {
	Label     string
	Signature signature.Signature
}

// Reader provides read-only access to stored signatures
type Reader interface {
	// Exists reports whether an entry is stored under label
	Exists(ctx context.Context, label string) (bool, error)
	// Entries returns every stored entry sorted by label
	Entries(ctx context.Context) ([]Entry, error)
	// Labels returns every stored label sorted ascending
	Labels(ctx context.Context) ([]string, error)
}

// Store provides read and write access to stored signatures
type Store interface {
	Reader

	// Create stores a new entry. Returns ErrAlreadyExists instead of overwriting.
	// The write is all-or-nothing.
	Create(ctx context.Context, label string, sig signature.Signature) error
	// Rename moves an entry to a new label.
	// Returns ErrNotFound or ErrAlreadyExists.
	Rename(ctx context.Context, oldLabel, newLabel string) error
	// Delete removes an entry. Returns ErrNotFound if there is none.
	Delete(ctx context.Context, label string) error
	// Close releases backend resources.
	Close() error
}

// StorageError is an I/O failure of the backing mechanism.
type StorageError struct {
	Op    string
	Label string
	Err   error
}

func (e *StorageError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Label, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStorageFailure) true for any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

// Fail wraps err as a StorageError for the given operation.
func Fail(op, label string, err error) error {
	return &StorageError{Op: op, Label: label, Err: err}
}

// NormalizeLabel converts a label to Unicode NFC so that visually identical
// names typed on different platforms map to the same key.
func NormalizeLabel(label string) string {
	return norm.NFC.String(label)
}

// IsBlank reports whether a label is empty or whitespace only.
func IsBlank(label string) bool {
	return strings.TrimSpace(label) == ""
}

// SortEntries orders entries by label in place.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Label < entries[j].Label
	})
}
