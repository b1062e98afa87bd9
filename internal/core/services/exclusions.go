package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/core/ports/driving"
)

// Ensure ExclusionService implements the interface.
var _ driving.ExclusionManager = (*ExclusionService)(nil)

// ExclusionService manages listing exclusions over the exclusion store.
type ExclusionService struct {
	store driven.ExclusionStore
}

// NewExclusionService creates an exclusion service.
func NewExclusionService(store driven.ExclusionStore) *ExclusionService {
	return &ExclusionService{store: store}
}

// Add suppresses a listing id. Re-adding an already-excluded id is a
// no-op; the original exclusion and its reason are kept.
func (s *ExclusionService) Add(ctx context.Context, listingID, reason string) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrInvalidInput)
	}

	excluded, err := s.store.IsExcluded(ctx, listingID)
	if err != nil {
		return fmt.Errorf("check exclusion: %w", err)
	}
	if excluded {
		return nil
	}

	exclusion := &domain.Exclusion{
		ID:        uuid.NewString(),
		ListingID: listingID,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Add(ctx, exclusion); err != nil {
		return fmt.Errorf("add exclusion: %w", err)
	}
	return nil
}

// Remove lifts the suppression for a listing id. Removing an id that is
// not excluded is a no-op.
func (s *ExclusionService) Remove(ctx context.Context, listingID string) error {
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return fmt.Errorf("%w: listing id is required", domain.ErrInvalidInput)
	}
	if err := s.store.Remove(ctx, listingID); err != nil {
		return fmt.Errorf("remove exclusion: %w", err)
	}
	return nil
}

// List returns all exclusions, oldest first.
func (s *ExclusionService) List(ctx context.Context) ([]domain.Exclusion, error) {
	exclusions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	return exclusions, nil
}
