package services

import (
	"context"
	"fmt"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// DiffResult partitions a fetched listing set by id. Every fetched listing
// lands in exactly one of the three slices, in fetch order.
type DiffResult struct {
	// New holds listings in neither store: candidates for persistence
	// and notification.
	New []domain.Listing

	// Known holds listings already in the listing store and not excluded.
	Known []domain.Listing

	// Excluded holds listings whose id is excluded. Exclusion wins over
	// everything, including ids never seen before.
	Excluded []domain.Listing
}

// DiffEngine classifies fetched listings against the listing and exclusion
// stores. It never writes; classification is a pure read.
type DiffEngine struct {
	listings   driven.ListingStore
	exclusions driven.ExclusionStore
}

// NewDiffEngine creates a diff engine over the two stores.
func NewDiffEngine(listings driven.ListingStore, exclusions driven.ExclusionStore) *DiffEngine {
	return &DiffEngine{listings: listings, exclusions: exclusions}
}

// Diff classifies the fetched set in a single pass: two membership lookups
// per listing, exclusion checked first, no cross-item state. Listings with
// duplicate ids within one fetch keep their first classification; later
// occurrences are dropped so one fetch can never notify an id twice.
func (e *DiffEngine) Diff(ctx context.Context, fetched []domain.Listing) (*DiffResult, error) {
	result := &DiffResult{}
	seen := make(map[string]struct{}, len(fetched))

	for i := range fetched {
		listing := fetched[i]
		if _, dup := seen[listing.ID]; dup {
			continue
		}
		seen[listing.ID] = struct{}{}

		excluded, err := e.exclusions.IsExcluded(ctx, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: check exclusion %s: %w", domain.ErrStore, listing.ID, err)
		}
		if excluded {
			result.Excluded = append(result.Excluded, listing)
			continue
		}

		known, err := e.listings.Has(ctx, listing.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: check listing %s: %w", domain.ErrStore, listing.ID, err)
		}
		if known {
			result.Known = append(result.Known, listing)
			continue
		}

		result.New = append(result.New, listing)
	}

	return result, nil
}

// Removed returns stored listings that are absent from the fetched set and
// not yet marked removed, oldest first by first observation. Read-only;
// the orchestrator decides whether to mark and notify.
func (e *DiffEngine) Removed(ctx context.Context, fetched []domain.Listing) ([]domain.Listing, error) {
	current := make(map[string]struct{}, len(fetched))
	for i := range fetched {
		current[fetched[i].ID] = struct{}{}
	}

	stored, err := e.listings.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list stored listings: %w", domain.ErrStore, err)
	}

	var removed []domain.Listing
	for i := len(stored) - 1; i >= 0; i-- { // All() is newest first
		l := stored[i]
		if l.RemovedAt != nil {
			continue
		}
		if _, ok := current[l.ID]; !ok {
			removed = append(removed, l)
		}
	}
	return removed, nil
}
