package driving

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// ExclusionManager is the out-of-band exclusion surface. It is safe to
// invoke concurrently with a running pipeline pass; changes apply from the
// next diff at the latest.
type ExclusionManager interface {
	// Add suppresses a listing id. Idempotent.
	Add(ctx context.Context, listingID, reason string) error

	// Remove lifts the suppression. No-op when the id is not excluded;
	// the listing then re-surfaces as new on the next run if still
	// listed and never persisted.
	Remove(ctx context.Context, listingID string) error

	// List returns all exclusions, oldest first.
	List(ctx context.Context) ([]domain.Exclusion, error)
}
