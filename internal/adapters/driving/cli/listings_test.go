package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// ==================== Listings List Tests ====================

func TestListingsList_Empty(t *testing.T) {
	setupCommandTest(t)

	out, err := execute(t, "listings")

	require.NoError(t, err)
	assert.Contains(t, out, "No listings stored yet.")
}

func TestListingsList(t *testing.T) {
	env := setupCommandTest(t)
	storeTestListing(t, env, "a1", "Property - Dizengoff 10")
	storeTestListing(t, env, "b2", "Property - Allenby 5")

	out, err := execute(t, "listings", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Property - Dizengoff 10")
	assert.Contains(t, out, "Property - Allenby 5")
	assert.Contains(t, out, "2 of 2 listings shown.")
}

func TestListingsList_Limit(t *testing.T) {
	env := setupCommandTest(t)
	storeTestListing(t, env, "a1", "First")
	storeTestListing(t, env, "b2", "Second")
	storeTestListing(t, env, "c3", "Third")

	out, err := execute(t, "listings", "list", "--limit", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "2 of 3 listings shown.")
}

func TestListingsList_RemovedOnly(t *testing.T) {
	env := setupCommandTest(t)
	storeTestListing(t, env, "a1", "Still up")
	storeTestListing(t, env, "b2", "Gone")
	err := env.listings.MarkRemoved(context.Background(), []string{"b2"}, time.Now().UTC())
	require.NoError(t, err)

	out, err := execute(t, "listings", "list", "--removed", "--limit", "20")

	require.NoError(t, err)
	assert.Contains(t, out, "Gone (removed)")
	assert.NotContains(t, out, "Still up")

	// The flag is package state; reset for later tests.
	listingsShowRemoved = false
}

func TestListingsList_StoreNotConfigured(t *testing.T) {
	setupCommandTest(t)
	listingStore = nil

	_, err := execute(t, "listings")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

// ==================== Listings Export Tests ====================

func TestListingsExport(t *testing.T) {
	env := setupCommandTest(t)
	storeTestListing(t, env, "a1", "Property - Dizengoff 10")

	out, err := execute(t, "listings", "export")

	require.NoError(t, err)

	var exported []domain.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "a1", exported[0].ID)
	assert.Equal(t, 5500, exported[0].Price)
}

func TestListingsExport_Empty(t *testing.T) {
	setupCommandTest(t)

	out, err := execute(t, "listings", "export")

	require.NoError(t, err)

	var exported []domain.Listing
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Empty(t, exported)
}

func TestListingsCommand_Metadata(t *testing.T) {
	assert.Equal(t, "listings", listingsCmd.Use)
	assert.Equal(t, "export", listingsExportCmd.Use)
	assert.NotEmpty(t, listingsCmd.Short)
}
