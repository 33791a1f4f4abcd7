package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/starford/docshelf/internal/apperr"
	"github.com/starford/docshelf/internal/models"
)

// Memory is an in-memory Store with the same semantics as DB. It is intended
// for tests and for running without a database file.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.CatalogEntry
	nextID  int64
	closed  bool
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.CatalogEntry), now: time.Now}
}

// GetAll returns every entry, newest first.
func (m *Memory) GetAll(_ context.Context) ([]models.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("catalog: get all: %w", apperr.ErrStorageUnavailable)
	}
	out := make([]models.CatalogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateAdded.Equal(out[j].DateAdded) {
			return out[i].DateAdded.After(out[j].DateAdded)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// GetByFilename returns the entry for name or apperr.ErrNotFound.
func (m *Memory) GetByFilename(_ context.Context, name string) (*models.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("catalog: get %s: %w", name, apperr.ErrStorageUnavailable)
	}
	e, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("catalog: get %s: %w", name, apperr.ErrNotFound)
	}
	return &e, nil
}

// Insert adds a new entry.
func (m *Memory) Insert(_ context.Context, e models.CatalogEntry) (*models.CatalogEntry, error) {
	if e.SizeBytes < 0 {
		return nil, fmt.Errorf("catalog: insert %s: negative size: %w", e.Filename, apperr.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("catalog: insert %s: %w", e.Filename, apperr.ErrStorageUnavailable)
	}
	if _, ok := m.entries[e.Filename]; ok {
		return nil, fmt.Errorf("catalog: insert %s: %w", e.Filename, apperr.ErrDuplicateKey)
	}
	if e.DateAdded.IsZero() {
		e.DateAdded = m.now()
	}
	if e.LastModified.IsZero() || e.LastModified.Before(e.DateAdded) {
		e.LastModified = e.DateAdded
	}
	e.DateAdded = e.DateAdded.UTC()
	e.LastModified = e.LastModified.UTC()
	m.nextID++
	e.ID = m.nextID
	m.entries[e.Filename] = e
	return &e, nil
}

// Update applies u to the entry for filename.
func (m *Memory) Update(_ context.Context, filename string, u models.EntryUpdate) (*models.CatalogEntry, error) {
	if u.SizeBytes != nil && *u.SizeBytes < 0 {
		return nil, fmt.Errorf("catalog: update %s: negative size: %w", filename, apperr.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("catalog: update %s: %w", filename, apperr.ErrStorageUnavailable)
	}
	e, ok := m.entries[filename]
	if !ok {
		return nil, fmt.Errorf("catalog: update %s: %w", filename, apperr.ErrNotFound)
	}
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.SizeBytes != nil {
		e.SizeBytes = *u.SizeBytes
	}
	if u.FilePath != nil {
		e.FilePath = *u.FilePath
	}
	modified := u.LastModified
	if modified.IsZero() {
		modified = m.now()
	}
	if modified.Before(e.DateAdded) {
		modified = e.DateAdded
	}
	e.LastModified = modified.UTC()
	m.entries[filename] = e
	return &e, nil
}

// Delete removes the entry for filename.
func (m *Memory) Delete(_ context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("catalog: delete %s: %w", filename, apperr.ErrStorageUnavailable)
	}
	if _, ok := m.entries[filename]; !ok {
		return fmt.Errorf("catalog: delete %s: %w", filename, apperr.ErrNotFound)
	}
	delete(m.entries, filename)
	return nil
}

// Ping reports whether the store is open.
func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("catalog: ping: %w", apperr.ErrStorageUnavailable)
	}
	return nil
}

// Close marks the store unavailable; later calls fail with ErrStorageUnavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
