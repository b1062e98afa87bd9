package driven

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// ExclusionStore persists listing exclusions, independent of the listing
// store. Exclusion management is declarative: re-adding an excluded id and
// removing a non-excluded id are both no-ops, not errors.
type ExclusionStore interface {
	// Add creates an exclusion. Adding an already-excluded listing id is
	// a no-op.
	Add(ctx context.Context, exclusion *domain.Exclusion) error

	// Remove deletes the exclusion for a listing id. Removing an id that
	// is not excluded is a no-op.
	Remove(ctx context.Context, listingID string) error

	// IsExcluded checks whether a listing id is excluded.
	IsExcluded(ctx context.Context, listingID string) (bool, error)

	// List returns all exclusions, oldest first.
	List(ctx context.Context) ([]domain.Exclusion, error)
}
