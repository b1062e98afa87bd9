// Package memory provides in-memory implementations of the driven store
// ports. Used by tests and as a reference for store semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// Ensure ListingStore implements the interface.
var _ driven.ListingStore = (*ListingStore)(nil)

// ListingStore is an in-memory implementation of driven.ListingStore.
type ListingStore struct {
	mu       sync.RWMutex
	listings map[string]domain.Listing

	// FailPuts forces PutAll/MarkSeen/MarkRemoved to fail without
	// mutating anything, to exercise the all-or-nothing contract.
	FailPuts error
}

// NewListingStore creates a new in-memory listing store.
func NewListingStore() *ListingStore {
	return &ListingStore{listings: make(map[string]domain.Listing)}
}

// Has reports whether a listing id is already stored.
func (s *ListingStore) Has(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.listings[id]
	return ok, nil
}

// Get retrieves a stored listing.
func (s *ListingStore) Get(_ context.Context, id string) (*domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &listing, nil
}

// PutAll inserts listings not already present; existing entries are
// untouched. The whole batch lands under one lock, or not at all.
func (s *ListingStore) PutAll(_ context.Context, listings []domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts != nil {
		return s.FailPuts
	}
	for i := range listings {
		if _, exists := s.listings[listings[i].ID]; exists {
			continue
		}
		s.listings[listings[i].ID] = listings[i]
	}
	return nil
}

// MarkSeen bumps last_seen_at and clears removal marks.
func (s *ListingStore) MarkSeen(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts != nil {
		return s.FailPuts
	}
	for _, id := range ids {
		if listing, ok := s.listings[id]; ok {
			listing.LastSeenAt = at
			listing.RemovedAt = nil
			s.listings[id] = listing
		}
	}
	return nil
}

// MarkRemoved records that the ids vanished from the source feed.
func (s *ListingStore) MarkRemoved(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts != nil {
		return s.FailPuts
	}
	for _, id := range ids {
		if listing, ok := s.listings[id]; ok && listing.RemovedAt == nil {
			removedAt := at
			listing.RemovedAt = &removedAt
			s.listings[id] = listing
		}
	}
	return nil
}

// All returns a snapshot of every stored listing, newest first.
func (s *ListingStore) All(_ context.Context) ([]domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Listing, 0, len(s.listings))
	for _, listing := range s.listings {
		result = append(result, listing)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].FetchedAt.Equal(result[j].FetchedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].FetchedAt.After(result[j].FetchedAt)
	})
	return result, nil
}

// Count returns the number of stored listings.
func (s *ListingStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings), nil
}
