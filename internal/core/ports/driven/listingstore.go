package driven

import (
	"context"
	"time"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// ListingStore is the durable record of every listing ever seen, keyed by
// the site-assigned listing id. Entries are insert-only: once stored, a
// listing's attributes are never overwritten (first-seen-wins).
type ListingStore interface {
	// Has reports whether a listing id is already stored.
	Has(ctx context.Context, id string) (bool, error)

	// Get retrieves a stored listing. Returns domain.ErrNotFound if the
	// id has never been persisted.
	Get(ctx context.Context, id string) (*domain.Listing, error)

	// PutAll inserts the listings whose ids are not already present;
	// existing entries are untouched. The whole batch commits atomically:
	// a concurrent reader never observes a partial batch, and an I/O
	// failure leaves the store exactly as it was.
	PutAll(ctx context.Context, listings []domain.Listing) error

	// MarkSeen bumps last_seen_at for the given ids and clears any
	// removal mark. Atomic like PutAll.
	MarkSeen(ctx context.Context, ids []string, at time.Time) error

	// MarkRemoved records that the given ids vanished from the source
	// feed. Entries are never deleted. Atomic like PutAll.
	MarkRemoved(ctx context.Context, ids []string, at time.Time) error

	// All returns a consistent snapshot of every stored listing, newest
	// first, for export and diagnostics.
	All(ctx context.Context) ([]domain.Listing, error)

	// Count returns the number of stored listings.
	Count(ctx context.Context) (int, error)
}
