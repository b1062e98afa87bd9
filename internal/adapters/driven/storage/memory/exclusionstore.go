package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// Ensure ExclusionStore implements the interface.
var _ driven.ExclusionStore = (*ExclusionStore)(nil)

// ExclusionStore is an in-memory implementation of driven.ExclusionStore,
// keyed by listing id.
type ExclusionStore struct {
	mu         sync.RWMutex
	exclusions map[string]domain.Exclusion
}

// NewExclusionStore creates a new in-memory exclusion store.
func NewExclusionStore() *ExclusionStore {
	return &ExclusionStore{exclusions: make(map[string]domain.Exclusion)}
}

// Add creates an exclusion. Re-adding an excluded listing id keeps the
// original entry.
func (s *ExclusionStore) Add(_ context.Context, exclusion *domain.Exclusion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.exclusions[exclusion.ListingID]; exists {
		return nil
	}
	s.exclusions[exclusion.ListingID] = *exclusion
	return nil
}

// Remove deletes the exclusion for a listing id. No-op when absent.
func (s *ExclusionStore) Remove(_ context.Context, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.exclusions, listingID)
	return nil
}

// IsExcluded checks whether a listing id is excluded.
func (s *ExclusionStore) IsExcluded(_ context.Context, listingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.exclusions[listingID]
	return ok, nil
}

// List returns all exclusions, oldest first.
func (s *ExclusionStore) List(_ context.Context) ([]domain.Exclusion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Exclusion, 0, len(s.exclusions))
	for _, exclusion := range s.exclusions {
		result = append(result, exclusion)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ListingID < result[j].ListingID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
