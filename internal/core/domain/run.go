package domain

import "time"

// RunState labels the phase a pipeline run is in. Transitions are strictly
// forward; a failure from any phase moves to StateFailed and the run is
// still recorded.
type RunState string

// Pipeline run states.
const (
	StateIdle       RunState = "idle"
	StateFetching   RunState = "fetching"
	StateDiffing    RunState = "diffing"
	StatePersisting RunState = "persisting"
	StateNotifying  RunState = "notifying"
	StateRecording  RunState = "recording"
	StateCompleted  RunState = "completed"
	StateFailed     RunState = "failed"
)

// RunRecord is the immutable outcome of one pipeline run. It is created
// when the run starts, finalized exactly once, and appended to the run log
// regardless of how the run ended.
type RunRecord struct {
	// ID is the unique identifier for the run.
	ID string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// State is the terminal state: StateCompleted or StateFailed.
	State RunState

	// FetchedCount is the size of the fetched listing set.
	FetchedCount int

	// NewCount, KnownCount and ExcludedCount partition FetchedCount.
	NewCount      int
	KnownCount    int
	ExcludedCount int

	// RemovedCount is the number of stored listings that vanished from
	// the fetched set this run.
	RemovedCount int

	// NotifyFailures holds, in delivery order, the ids of new listings
	// whose notification could not be delivered.
	NotifyFailures []string

	// Error describes why the run failed. Empty for completed runs.
	Error string
}

// Duration returns how long the run took.
func (r *RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the run ended in StateFailed.
func (r *RunRecord) Failed() bool {
	return r.State == StateFailed
}
