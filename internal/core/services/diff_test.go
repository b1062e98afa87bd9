package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/adapters/driven/storage/memory"
	"github.com/adwatch/adwatch/internal/core/domain"
)

func newDiffFixture() (*DiffEngine, *memory.ListingStore, *memory.ExclusionStore) {
	listings := memory.NewListingStore()
	exclusions := memory.NewExclusionStore()
	return NewDiffEngine(listings, exclusions), listings, exclusions
}

// TestDiffEngine_Partition runs the reference scenario: fetch [L1, L2, L3]
// with L2 excluded and an empty listing store, twice.
func TestDiffEngine_Partition(t *testing.T) {
	engine, listings, exclusions := newDiffFixture()
	ctx := context.Background()

	fetched := []domain.Listing{{ID: "L1"}, {ID: "L2"}, {ID: "L3"}}
	require.NoError(t, exclusions.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "L2"}))

	result, err := engine.Diff(ctx, fetched)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L3"}, ids(result.New))
	assert.Equal(t, []string{"L2"}, ids(result.Excluded))
	assert.Empty(t, result.Known)

	// Persist only the new partition, the way the orchestrator does.
	require.NoError(t, listings.PutAll(ctx, result.New))
	has, _ := listings.Has(ctx, "L2")
	assert.False(t, has, "excluded listings are never persisted")

	// Second run with an identical fetch.
	result, err = engine.Diff(ctx, fetched)
	require.NoError(t, err)
	assert.Empty(t, result.New)
	assert.Equal(t, []string{"L1", "L3"}, ids(result.Known))
	assert.Equal(t, []string{"L2"}, ids(result.Excluded))
}

// TestDiffEngine_ExclusionWinsOverKnown: an id in both stores classifies
// as excluded.
func TestDiffEngine_ExclusionWinsOverKnown(t *testing.T) {
	engine, listings, exclusions := newDiffFixture()
	ctx := context.Background()

	require.NoError(t, listings.PutAll(ctx, []domain.Listing{{ID: "L1"}}))
	require.NoError(t, exclusions.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "L1"}))

	result, err := engine.Diff(ctx, []domain.Listing{{ID: "L1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, ids(result.Excluded))
	assert.Empty(t, result.New)
	assert.Empty(t, result.Known)
}

// TestDiffEngine_ExclusionMonotonic: once excluded, never new again until
// removed; after removal the id surfaces as new exactly once.
func TestDiffEngine_ExclusionMonotonic(t *testing.T) {
	engine, listings, exclusions := newDiffFixture()
	ctx := context.Background()
	fetched := []domain.Listing{{ID: "L1"}}

	require.NoError(t, exclusions.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "L1"}))
	for range 3 {
		result, err := engine.Diff(ctx, fetched)
		require.NoError(t, err)
		assert.Empty(t, result.New)
	}

	require.NoError(t, exclusions.Remove(ctx, "L1"))

	result, err := engine.Diff(ctx, fetched)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, ids(result.New))

	require.NoError(t, listings.PutAll(ctx, result.New))

	result, err = engine.Diff(ctx, fetched)
	require.NoError(t, err)
	assert.Empty(t, result.New)
	assert.Equal(t, []string{"L1"}, ids(result.Known))
}

// TestDiffEngine_Idempotent: diffing the same set twice with no store
// mutation in between yields identical partitions.
func TestDiffEngine_Idempotent(t *testing.T) {
	engine, listings, exclusions := newDiffFixture()
	ctx := context.Background()

	require.NoError(t, listings.PutAll(ctx, []domain.Listing{{ID: "K1"}}))
	require.NoError(t, exclusions.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "X1"}))
	fetched := []domain.Listing{{ID: "K1"}, {ID: "X1"}, {ID: "N1"}}

	first, err := engine.Diff(ctx, fetched)
	require.NoError(t, err)
	second, err := engine.Diff(ctx, fetched)
	require.NoError(t, err)

	assert.Equal(t, ids(first.New), ids(second.New))
	assert.Equal(t, ids(first.Known), ids(second.Known))
	assert.Equal(t, ids(first.Excluded), ids(second.Excluded))
}

// TestDiffEngine_DuplicateIDsInFetch: the second occurrence is dropped so
// a single fetch can never produce two new classifications for one id.
func TestDiffEngine_DuplicateIDsInFetch(t *testing.T) {
	engine, _, _ := newDiffFixture()

	result, err := engine.Diff(context.Background(), []domain.Listing{
		{ID: "L1", Title: "first"},
		{ID: "L1", Title: "second"},
	})
	require.NoError(t, err)
	require.Len(t, result.New, 1)
	assert.Equal(t, "first", result.New[0].Title)
}

// TestDiffEngine_Removed finds stored listings absent from the fetch.
func TestDiffEngine_Removed(t *testing.T) {
	engine, listings, _ := newDiffFixture()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, listings.PutAll(ctx, []domain.Listing{
		{ID: "gone", FetchedAt: now.Add(-2 * time.Hour)},
		{ID: "still", FetchedAt: now.Add(-time.Hour)},
	}))
	require.NoError(t, listings.MarkRemoved(ctx, []string{"gone"}, now))
	require.NoError(t, listings.PutAll(ctx, []domain.Listing{{ID: "fresh-gone", FetchedAt: now}}))

	removed, err := engine.Removed(ctx, []domain.Listing{{ID: "still"}})
	require.NoError(t, err)

	// "gone" is already marked; only "fresh-gone" is newly missing.
	assert.Equal(t, []string{"fresh-gone"}, ids(removed))
}

func ids(listings []domain.Listing) []string {
	if len(listings) == 0 {
		return nil
	}
	result := make([]string, len(listings))
	for i := range listings {
		result[i] = listings[i].ID
	}
	return result
}
