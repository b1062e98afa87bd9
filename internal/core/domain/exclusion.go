package domain

import "time"

// Exclusion is a user directive permanently suppressing a listing id.
// An excluded id is never reported as new, even if it has never been
// observed, until a matching remove directive is issued.
type Exclusion struct {
	// ID is the unique identifier for the exclusion record.
	ID string

	// ListingID is the suppressed listing identity. It may predate the
	// listing's first observation.
	ListingID string

	// Reason is an optional free-text explanation.
	Reason string

	// CreatedAt is when the exclusion was added.
	CreatedAt time.Time
}
