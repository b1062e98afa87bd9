package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunInProgress indicates a pipeline run is already executing.
	// Only one run may be in flight at a time.
	ErrRunInProgress = errors.New("run in progress")

	// ErrFetch indicates the source site could not be fetched or parsed.
	// Fatal for the current run; the next scheduled run retries.
	ErrFetch = errors.New("fetch failed")

	// ErrStore indicates an I/O failure in a durable store.
	// Fatal for the current run; nothing is committed, so the next run
	// re-fetches and re-diffs from scratch.
	ErrStore = errors.New("store failure")

	// ErrDelivery indicates a single notification could not be delivered.
	// Non-fatal; recorded per listing in the run record.
	ErrDelivery = errors.New("delivery failed")

	// ErrNotifierUnavailable indicates the notifier is not configured.
	ErrNotifierUnavailable = errors.New("notifier unavailable")
)
