package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
// Snapshots are deep-copied on the way in and out.
type IndexStore struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.IndexSnapshot
	saves     map[string]int
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		snapshots: make(map[string]*domain.IndexSnapshot),
		saves:     make(map[string]int),
	}
}

// Exists reports whether a snapshot is stored for the document.
func (s *IndexStore) Exists(_ context.Context, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.snapshots[documentID]
	return ok, nil
}

// Save replaces the document's snapshot.
func (s *IndexStore) Save(_ context.Context, documentID string, snapshot *domain.IndexSnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrPersistence)
	}
	cp := clone(snapshot)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[documentID] = cp
	s.saves[documentID]++
	return nil
}

// Load returns a copy of the document's snapshot.
func (s *IndexStore) Load(_ context.Context, documentID string) (*domain.IndexSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[documentID]
	if !ok {
		return nil, fmt.Errorf("index %s: %w", documentID, domain.ErrNotFound)
	}
	return clone(snap), nil
}

// Manifest returns the stored manifest.
func (s *IndexStore) Manifest(_ context.Context, documentID string) (*domain.IndexManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[documentID]
	if !ok {
		return nil, fmt.Errorf("index %s: %w", documentID, domain.ErrNotFound)
	}
	m := snap.Manifest
	return &m, nil
}

// Remove deletes the document's snapshot.
func (s *IndexStore) Remove(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, documentID)
	return nil
}

// Location returns a pseudo location for the document.
func (s *IndexStore) Location(documentID string) string {
	return "memory://" + documentID
}

// Saves returns how many times a document's snapshot was written.
func (s *IndexStore) Saves(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[documentID]
}

func clone(snap *domain.IndexSnapshot) *domain.IndexSnapshot {
	vectors := make([][]float32, len(snap.Vectors))
	for i, v := range snap.Vectors {
		vectors[i] = slices.Clone(v)
	}
	return &domain.IndexSnapshot{
		Manifest: snap.Manifest,
		Texts:    slices.Clone(snap.Texts),
		Vectors:  vectors,
	}
}
