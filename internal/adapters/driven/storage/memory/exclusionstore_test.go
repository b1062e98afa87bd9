package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/core/domain"
)

func TestExclusionStore_AddIsIdempotent(t *testing.T) {
	store := NewExclusionStore()
	ctx := context.Background()

	first := domain.Exclusion{ID: "e1", ListingID: "a1", Reason: "too noisy", CreatedAt: time.Now()}
	require.NoError(t, store.Add(ctx, &first))

	// Re-adding the same listing id keeps the original record.
	second := domain.Exclusion{ID: "e2", ListingID: "a1", Reason: "changed my mind"}
	require.NoError(t, store.Add(ctx, &second))

	exclusions, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "e1", exclusions[0].ID)
	assert.Equal(t, "too noisy", exclusions[0].Reason)
}

func TestExclusionStore_Remove_NoOpWhenAbsent(t *testing.T) {
	store := NewExclusionStore()

	err := store.Remove(context.Background(), "never-added")
	assert.NoError(t, err)
}

func TestExclusionStore_IsExcluded(t *testing.T) {
	store := NewExclusionStore()
	ctx := context.Background()

	excluded, err := store.IsExcluded(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, excluded)

	_ = store.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "a1"})

	excluded, err = store.IsExcluded(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, excluded)

	require.NoError(t, store.Remove(ctx, "a1"))
	excluded, _ = store.IsExcluded(ctx, "a1")
	assert.False(t, excluded)
}

func TestExclusionStore_List_OldestFirst(t *testing.T) {
	store := NewExclusionStore()
	ctx := context.Background()
	base := time.Now()

	_ = store.Add(ctx, &domain.Exclusion{ID: "e2", ListingID: "b", CreatedAt: base})
	_ = store.Add(ctx, &domain.Exclusion{ID: "e1", ListingID: "a", CreatedAt: base.Add(-time.Hour)})

	exclusions, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, exclusions, 2)
	assert.Equal(t, "a", exclusions[0].ListingID)
	assert.Equal(t, "b", exclusions[1].ListingID)
}
