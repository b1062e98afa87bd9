package driving

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// RunOrchestrator executes one scheduled pipeline pass:
// fetch, diff, persist, notify, record.
type RunOrchestrator interface {
	// Run executes one pass and returns the recorded outcome. The record
	// is returned even when the run failed; the error then wraps the
	// failure cause. A second concurrent call returns
	// domain.ErrRunInProgress without a record.
	Run(ctx context.Context) (*domain.RunRecord, error)

	// Status returns whether a run is currently in flight and its state.
	Status() domain.RunState
}
