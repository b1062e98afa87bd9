package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/core/ports/driving"
	"github.com/adwatch/adwatch/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.RunOrchestrator = (*Orchestrator)(nil)

// OrchestratorOptions tune one pipeline pass.
type OrchestratorOptions struct {
	// NotifyConcurrency bounds parallel notification deliveries.
	NotifyConcurrency int

	// NotifyAttempts is the maximum delivery attempts per listing.
	NotifyAttempts int

	// NotifyRetryDelay is the pause between delivery attempts.
	NotifyRetryDelay time.Duration

	// NotifyRemovals enables a digest notice when stored listings
	// disappear from the source feed.
	NotifyRemovals bool
}

// DefaultOrchestratorOptions returns conservative delivery defaults.
func DefaultOrchestratorOptions() OrchestratorOptions {
	return OrchestratorOptions{
		NotifyConcurrency: 3,
		NotifyAttempts:    2,
		NotifyRetryDelay:  2 * time.Second,
	}
}

// Orchestrator runs one pipeline pass: fetch, diff, persist, notify,
// record. At most one pass is in flight per process; a second call returns
// domain.ErrRunInProgress. Cross-process exclusion stays with the external
// scheduler.
type Orchestrator struct {
	fetcher  driven.Fetcher
	diff     *DiffEngine
	listings driven.ListingStore
	runLog   driven.RunLog
	notifier driven.Notifier
	criteria domain.SearchCriteria
	opts     OrchestratorOptions

	mu      sync.Mutex
	state   domain.RunState
	running bool
}

// NewOrchestrator creates a run orchestrator. The notifier may be nil; new
// listings are then persisted without delivery and every new id is recorded
// as a notify failure.
func NewOrchestrator(
	fetcher driven.Fetcher,
	diff *DiffEngine,
	listings driven.ListingStore,
	runLog driven.RunLog,
	notifier driven.Notifier,
	criteria domain.SearchCriteria,
	opts OrchestratorOptions,
) *Orchestrator {
	if opts.NotifyConcurrency < 1 {
		opts.NotifyConcurrency = 1
	}
	if opts.NotifyAttempts < 1 {
		opts.NotifyAttempts = 1
	}
	return &Orchestrator{
		fetcher:  fetcher,
		diff:     diff,
		listings: listings,
		runLog:   runLog,
		notifier: notifier,
		criteria: criteria,
		opts:     opts,
		state:    domain.StateIdle,
	}
}

// Status returns the current run state.
func (o *Orchestrator) Status() domain.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s domain.RunState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one pipeline pass. FETCHING and DIFFING have no side
// effects; PERSISTING commits the whole new batch or nothing; NOTIFYING
// runs only after the batch committed, so a crash mid-delivery re-notifies
// at most nothing (the listings are already marked seen). A RunRecord is
// emitted for every run, failed ones included.
func (o *Orchestrator) Run(ctx context.Context) (*domain.RunRecord, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, domain.ErrRunInProgress
	}
	o.running = true
	o.state = domain.StateFetching
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.state = domain.StateIdle
		o.mu.Unlock()
	}()

	record := &domain.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		State:     domain.StateCompleted,
	}

	logger.Info("Run %s: fetching listings", record.ID)
	fetched, err := o.fetcher.Fetch(ctx, o.criteria)
	if err != nil {
		return o.fail(ctx, record, fmt.Errorf("%w: %w", domain.ErrFetch, err))
	}
	record.FetchedCount = len(fetched)

	o.setState(domain.StateDiffing)
	result, err := o.diff.Diff(ctx, fetched)
	if err != nil {
		return o.fail(ctx, record, err)
	}
	record.NewCount = len(result.New)
	record.KnownCount = len(result.Known)
	record.ExcludedCount = len(result.Excluded)

	var removed []domain.Listing
	if o.opts.NotifyRemovals {
		removed, err = o.diff.Removed(ctx, fetched)
		if err != nil {
			return o.fail(ctx, record, err)
		}
		record.RemovedCount = len(removed)
	}

	logger.Info("Run %s: %d fetched, %d new, %d known, %d excluded, %d removed",
		record.ID, record.FetchedCount, record.NewCount, record.KnownCount,
		record.ExcludedCount, record.RemovedCount)

	o.setState(domain.StatePersisting)
	if err := o.persist(ctx, result, removed, record.StartedAt); err != nil {
		return o.fail(ctx, record, fmt.Errorf("%w: %w", domain.ErrStore, err))
	}

	o.setState(domain.StateNotifying)
	record.NotifyFailures = o.notify(ctx, result.New)
	if o.opts.NotifyRemovals && len(removed) > 0 {
		o.notifyRemovals(ctx, removed)
	}

	o.setState(domain.StateRecording)
	record.FinishedAt = time.Now().UTC()
	if err := o.runLog.Append(ctx, record); err != nil {
		// The pipeline already committed; losing the record is an
		// observability gap, not a correctness one.
		logger.Warn("Run %s: append run record: %v", record.ID, err)
	}
	return record, nil
}

// fail finalizes and records a failed run. The returned record carries the
// failure; nothing was committed unless PERSISTING succeeded.
func (o *Orchestrator) fail(ctx context.Context, record *domain.RunRecord, err error) (*domain.RunRecord, error) {
	o.setState(domain.StateRecording)
	record.State = domain.StateFailed
	record.Error = err.Error()
	record.FinishedAt = time.Now().UTC()
	if appendErr := o.runLog.Append(ctx, record); appendErr != nil {
		logger.Warn("Run %s: append run record: %v", record.ID, appendErr)
	}
	return record, err
}

// persist commits the run's store mutations: the new batch (excluded
// listings are never persisted, so un-excluding surfaces them as new
// exactly once), the seen-timestamp bumps, and removal marks.
func (o *Orchestrator) persist(ctx context.Context, result *DiffResult, removed []domain.Listing, now time.Time) error {
	batch := make([]domain.Listing, len(result.New))
	for i, listing := range result.New {
		listing.FetchedAt = now
		listing.LastSeenAt = now
		batch[i] = listing
	}
	if err := o.listings.PutAll(ctx, batch); err != nil {
		return fmt.Errorf("persist new listings: %w", err)
	}

	if ids := listingIDs(result.Known); len(ids) > 0 {
		if err := o.listings.MarkSeen(ctx, ids, now); err != nil {
			return fmt.Errorf("mark listings seen: %w", err)
		}
	}
	if ids := listingIDs(removed); len(ids) > 0 {
		if err := o.listings.MarkRemoved(ctx, ids, now); err != nil {
			return fmt.Errorf("mark listings removed: %w", err)
		}
	}
	return nil
}

// notify delivers one message per new listing with bounded concurrency.
// Every listing receives a terminal outcome before notify returns; failed
// ids are returned in fetch order. Failures never abort the batch.
func (o *Orchestrator) notify(ctx context.Context, newListings []domain.Listing) []string {
	if len(newListings) == 0 {
		return nil
	}
	if o.notifier == nil {
		logger.Warn("Notifier not configured; %d new listings not delivered", len(newListings))
		return listingIDs(newListings)
	}

	failed := make([]bool, len(newListings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.NotifyConcurrency)

	for i := range newListings {
		g.Go(func() error {
			if err := o.deliver(gctx, &newListings[i]); err != nil {
				logger.Warn("Delivery failed for %s: %v", newListings[i].ID, err)
				failed[i] = true
			}
			return nil // per-item failures never cancel siblings
		})
	}
	_ = g.Wait()

	var ids []string
	for i, f := range failed {
		if f {
			ids = append(ids, newListings[i].ID)
		}
	}
	return ids
}

// deliver attempts one listing's notification up to the configured number
// of attempts.
func (o *Orchestrator) deliver(ctx context.Context, listing *domain.Listing) error {
	var lastErr error
	for attempt := 1; attempt <= o.opts.NotifyAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.opts.NotifyRetryDelay):
			}
		}
		if lastErr = o.notifier.Send(ctx, listing); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
	}
	return lastErr
}

// notifyRemovals sends one digest message for all removals in the run.
// Best effort: a failed digest is logged, not recorded per listing.
func (o *Orchestrator) notifyRemovals(ctx context.Context, removed []domain.Listing) {
	if o.notifier == nil {
		return
	}
	var b strings.Builder
	b.WriteString("Removed listings:\n")
	for i := range removed {
		fmt.Fprintf(&b, "\n%s (%s)", removed[i].Title, removed[i].ShortAddress())
	}
	if err := o.notifier.SendText(ctx, b.String()); err != nil {
		logger.Warn("Removal digest failed: %v", err)
	}
}

func listingIDs(listings []domain.Listing) []string {
	if len(listings) == 0 {
		return nil
	}
	ids := make([]string, len(listings))
	for i := range listings {
		ids[i] = listings[i].ID
	}
	return ids
}
