package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/adapters/driven/storage/memory"
	"github.com/adwatch/adwatch/internal/core/domain"
)

func TestExclusionService_Add(t *testing.T) {
	store := memory.NewExclusionStore()
	svc := NewExclusionService(store)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "L1", "agency spam"))

	exclusions, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "L1", exclusions[0].ListingID)
	assert.Equal(t, "agency spam", exclusions[0].Reason)
	assert.NotEmpty(t, exclusions[0].ID)
	assert.False(t, exclusions[0].CreatedAt.IsZero())
}

func TestExclusionService_Add_Idempotent(t *testing.T) {
	store := memory.NewExclusionStore()
	svc := NewExclusionService(store)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "L1", "first reason"))
	require.NoError(t, svc.Add(ctx, "L1", "second reason"))

	exclusions, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "first reason", exclusions[0].Reason)
}

func TestExclusionService_Add_EmptyID(t *testing.T) {
	svc := NewExclusionService(memory.NewExclusionStore())

	err := svc.Add(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExclusionService_Remove(t *testing.T) {
	store := memory.NewExclusionStore()
	svc := NewExclusionService(store)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "L1", ""))
	require.NoError(t, svc.Remove(ctx, "L1"))

	excluded, err := store.IsExcluded(ctx, "L1")
	require.NoError(t, err)
	assert.False(t, excluded)

	// Removing again is a no-op, not an error.
	assert.NoError(t, svc.Remove(ctx, "L1"))
}

func TestExclusionService_Remove_EmptyID(t *testing.T) {
	svc := NewExclusionService(memory.NewExclusionStore())

	err := svc.Remove(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExclusionService_Add_TrimsInput(t *testing.T) {
	store := memory.NewExclusionStore()
	svc := NewExclusionService(store)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "  L1  ", "  reason  "))

	excluded, err := store.IsExcluded(ctx, "L1")
	require.NoError(t, err)
	assert.True(t, excluded)
}
