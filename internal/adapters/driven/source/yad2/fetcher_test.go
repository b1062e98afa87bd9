package yad2

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// feedPage wraps a feed payload in the page structure the site serves.
func feedPage(feed string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html><head></head><body>
<script id="__NEXT_DATA__" type="application/json">{
	"props": {"pageProps": {"dehydratedState": {"queries": [
		{"state": {"data": {"ignored": true}}},
		{"state": {"data": %s}}
	]}}}
}</script>
</body></html>`, feed)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
	})
}

func TestClient_Fetch(t *testing.T) {
	feed := `{
		"private": [{
			"orderId": 111,
			"token": "tok-111",
			"price": 5500,
			"address": {
				"city": {"text": "Tel Aviv"},
				"neighborhood": {"text": "Old North"},
				"street": {"text": "Dizengoff"},
				"house": {"number": 10, "floor": "2"}
			},
			"additionalDetails": {
				"property": {"text": "Apartment"},
				"roomsCount": 3.5,
				"squareMeter": 80
			},
			"metaData": {"coverImage": "https://img.example/111.jpg"}
		}],
		"agency": [{
			"orderId": 222,
			"token": "tok-222",
			"price": 7200,
			"address": {
				"city": {"text": "Tel Aviv"},
				"neighborhood": {"text": "Old North"},
				"street": {"text": "Ben Yehuda"},
				"house": {"number": "5", "floor": 1}
			},
			"additionalDetails": {
				"property": {"text": "Apartment"},
				"roomsCount": 4,
				"squareMeter": 95
			},
			"customer": {"agencyName": "Best Homes"}
		}]
	}`

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realestate/rent", r.URL.Path)
		assert.Equal(t, "5000", r.URL.Query().Get("city"))
		assert.Equal(t, "3-4", r.URL.Query().Get("rooms"))
		assert.Equal(t, "0-13000", r.URL.Query().Get("price"))
		assert.Equal(t, "1", r.URL.Query().Get("parking"))
		fmt.Fprint(w, feedPage(feed))
	})

	listings, err := client.Fetch(context.Background(), domain.SearchCriteria{
		City:     "5000",
		MinRooms: 3,
		MaxRooms: 4,
		MaxPrice: 13000,
		Parking:  true,
	})
	require.NoError(t, err)
	require.Len(t, listings, 2)

	private := listings[0]
	assert.Equal(t, "111", private.ID)
	assert.Equal(t, "Apartment - Dizengoff 10", private.Title)
	assert.Equal(t, 5500, private.Price)
	assert.Equal(t, "Tel Aviv", private.City)
	assert.Equal(t, "Old North", private.Neighborhood)
	assert.Equal(t, "Dizengoff", private.Street)
	assert.Equal(t, "10", private.HouseNumber)
	assert.Equal(t, "2", private.Floor)
	assert.Equal(t, 3.5, private.Rooms)
	assert.Equal(t, 80, private.SquareMeters)
	assert.Empty(t, private.Agency)
	assert.Equal(t, "private", private.Attributes["type"])
	assert.Equal(t, "https://img.example/111.jpg", private.Attributes["cover_image"])
	assert.Contains(t, private.URL, "/item/tok-111")

	agency := listings[1]
	assert.Equal(t, "222", agency.ID)
	assert.Equal(t, "Best Homes", agency.Agency)
	assert.Equal(t, "5", agency.HouseNumber)
	assert.Equal(t, "1", agency.Floor)
	assert.Equal(t, "agency", agency.Attributes["type"])
}

func TestClient_Fetch_SkipsRecordsWithoutID(t *testing.T) {
	feed := `{
		"private": [
			{"orderId": 0, "token": "no-id", "price": 100,
			 "address": {"street": {"text": "Somewhere"}}},
			{"orderId": 111, "token": "tok", "price": 5500,
			 "address": {"street": {"text": "Dizengoff"}}}
		]
	}`

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedPage(feed))
	})

	listings, err := client.Fetch(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "111", listings[0].ID)
}

func TestClient_Fetch_SkipsMalformedRecords(t *testing.T) {
	feed := `{
		"private": [
			{"orderId": "not-a-number"},
			{"orderId": 111, "token": "tok", "price": 5500}
		]
	}`

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedPage(feed))
	})

	listings, err := client.Fetch(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "111", listings[0].ID)
}

func TestClient_Fetch_ExcludedStreets(t *testing.T) {
	feed := `{
		"private": [
			{"orderId": 111, "token": "a",
			 "address": {"street": {"text": "Noisy Boulevard"}}},
			{"orderId": 222, "token": "b",
			 "address": {"street": {"text": "Quiet Lane"}}}
		]
	}`

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedPage(feed))
	})

	listings, err := client.Fetch(context.Background(), domain.SearchCriteria{
		ExcludedStreets: []string{"Noisy"},
	})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "222", listings[0].ID)
}

func TestClient_Fetch_NeighborhoodFilterAndDedup(t *testing.T) {
	// The same listing appears in both neighborhood searches; it must be
	// returned once. Listings from other neighborhoods are filtered out.
	feedFor := func(neighborhood string) string {
		return fmt.Sprintf(`{
			"private": [
				{"orderId": 111, "token": "a",
				 "address": {"neighborhood": {"text": "%s"}, "street": {"text": "S"}}},
				{"orderId": 999, "token": "x",
				 "address": {"neighborhood": {"text": "Elsewhere"}, "street": {"text": "S"}}}
			]
		}`, neighborhood)
	}

	var requests int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, feedPage(feedFor(r.URL.Query().Get("text"))))
	})

	listings, err := client.Fetch(context.Background(), domain.SearchCriteria{
		Neighborhoods: []string{"Old North", "New North"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	require.Len(t, listings, 1)
	assert.Equal(t, "111", listings[0].ID)
}

func TestClient_Fetch_RateLimited(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Fetch(context.Background(), domain.SearchCriteria{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	// The backoff must now block immediate retries.
	assert.False(t, client.limiter.Allow())
}

func TestClient_Fetch_ServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Fetch(context.Background(), domain.SearchCriteria{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Fetch_NoEmbeddedData(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>captcha challenge</body></html>")
	})

	_, err := client.Fetch(context.Background(), domain.SearchCriteria{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestClient_Fetch_ContextCancelled(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedPage(`{"private": []}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, domain.SearchCriteria{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestSearchParams(t *testing.T) {
	params := searchParams(domain.SearchCriteria{
		City:     "5000",
		MinRooms: 3,
		MaxRooms: 4.5,
		MaxPrice: 13000,
		Parking:  true,
		Shelter:  true,
	}, "Old North")

	assert.Equal(t, "5000", params.Get("city"))
	assert.Equal(t, "3-4.5", params.Get("rooms"))
	assert.Equal(t, "0-13000", params.Get("price"))
	assert.Equal(t, "1", params.Get("parking"))
	assert.Equal(t, "1", params.Get("shelter"))
	assert.Equal(t, "Old North", params.Get("text"))
}

func TestSearchParams_ZeroCriteria(t *testing.T) {
	params := searchParams(domain.SearchCriteria{}, "")

	assert.Empty(t, params.Get("city"))
	assert.Empty(t, params.Get("rooms"))
	assert.Empty(t, params.Get("price"))
	assert.Empty(t, params.Get("parking"))
	assert.Empty(t, params.Get("shelter"))
	assert.Empty(t, params.Get("text"))
}
