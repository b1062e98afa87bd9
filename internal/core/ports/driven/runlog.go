package driven

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// RunLog is the append-only durable log of pipeline runs. Records are
// finalized before appending and never mutated afterwards; the log is the
// operator's answer to "did anything go wrong".
type RunLog interface {
	// Append persists a finalized run record.
	Append(ctx context.Context, record *domain.RunRecord) error

	// Recent returns the most recent records, newest first, up to limit.
	Recent(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
