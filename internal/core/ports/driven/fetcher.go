package driven

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// Fetcher returns the full current set of listings visible on the source
// site for the given criteria. Implementations must be idempotent and free
// of side effects beyond the network call.
//
// A failure to fetch or parse the feed as a whole is returned as an error
// wrapping domain.ErrFetch. A single malformed record is skipped, not
// fatal: one broken page element must never stall the pipeline.
type Fetcher interface {
	// Fetch returns the current listing set, in source order.
	Fetch(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Listing, error)
}
