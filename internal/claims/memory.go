package claims

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a single-process Store for tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[uint64]memoryEntry
}

type memoryEntry struct {
	marker    Marker
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[uint64]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, fid uint64, marker Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[fid] = memoryEntry{marker: marker, expiresAt: time.Now().Add(markerTTL)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, fid uint64) (*Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.markers[fid]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.markers, fid)
		return nil, ErrNotFound
	}

	marker := entry.marker
	return &marker, nil
}

func (s *MemoryStore) Delete(_ context.Context, fid uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, fid)
	return nil
}
