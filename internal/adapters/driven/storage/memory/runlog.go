package memory

import (
	"context"
	"sync"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// Ensure RunLog implements the interface.
var _ driven.RunLog = (*RunLog)(nil)

// RunLog is an in-memory append-only run log.
type RunLog struct {
	mu      sync.RWMutex
	records []domain.RunRecord
}

// NewRunLog creates a new in-memory run log.
func NewRunLog() *RunLog {
	return &RunLog{}
}

// Append persists a finalized run record.
func (l *RunLog) Append(_ context.Context, record *domain.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, *record)
	return nil
}

// Recent returns the most recent records, newest first, up to limit.
func (l *RunLog) Recent(_ context.Context, limit int) ([]domain.RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	result := make([]domain.RunRecord, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, l.records[i])
	}
	return result, nil
}
