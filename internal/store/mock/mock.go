// Package mock provides an in-memory store.Store for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-gate/internal/signature"
	"github.com/kozaktomas/face-gate/internal/store"
)

// MockStore is an in-memory implementation of store.Store
type MockStore struct {
	mu      sync.RWMutex
	entries map[string]signature.Signature

	// Error injection
	ExistsError  error
	CreateError  error
	EntriesError error
	LabelsError  error
	RenameError  error
	DeleteError  error

	// ExistsCalls counts Exists invocations, useful for asserting scan cost
	ExistsCalls int
	// Closed is set by Close
	Closed bool
}

var _ store.Store = (*MockStore)(nil)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		entries: make(map[string]signature.Signature),
	}
}

// AddEntry seeds the store without going through Create
func (m *MockStore) AddEntry(label string, sig signature.Signature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[label] = append(signature.Signature(nil), sig...)
}

// Get returns the stored signature for label
func (m *MockStore) Get(label string) (signature.Signature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.entries[label]
	return sig, ok
}

// Exists checks if an entry exists
func (m *MockStore) Exists(ctx context.Context, label string) (bool, error) {
	m.mu.Lock()
	m.ExistsCalls++
	m.mu.Unlock()
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[label]
	return ok, nil
}

// Create stores a new entry
func (m *MockStore) Create(ctx context.Context, label string, sig signature.Signature) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[label]; ok {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, label)
	}
	m.entries[label] = append(signature.Signature(nil), sig...)
	return nil
}

// Entries returns all entries sorted by label
func (m *MockStore) Entries(ctx context.Context) ([]store.Entry, error) {
	if m.EntriesError != nil {
		return nil, m.EntriesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]store.Entry, 0, len(m.entries))
	for label, sig := range m.entries {
		entries = append(entries, store.Entry{Label: label, Signature: sig})
	}
	store.SortEntries(entries)
	return entries, nil
}

// Labels returns all labels sorted ascending
func (m *MockStore) Labels(ctx context.Context) ([]string, error) {
	if m.LabelsError != nil {
		return nil, m.LabelsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	labels := make([]string, 0, len(m.entries))
	for label := range m.entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// Rename moves an entry to a new label
func (m *MockStore) Rename(ctx context.Context, oldLabel, newLabel string) error {
	if m.RenameError != nil {
		return m.RenameError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sig, ok := m.entries[oldLabel]
	if !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, oldLabel)
	}
	if _, taken := m.entries[newLabel]; taken {
		return fmt.Errorf("%w: %q", store.ErrAlreadyExists, newLabel)
	}
	delete(m.entries, oldLabel)
	m.entries[newLabel] = sig
	return nil
}

// Delete removes an entry
func (m *MockStore) Delete(ctx context.Context, label string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[label]; !ok {
		return fmt.Errorf("%w: %q", store.ErrNotFound, label)
	}
	delete(m.entries, label)
	return nil
}

// Close marks the store closed
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
