package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adwatch/adwatch/internal/core/domain"
)

func testNotifier(t *testing.T, handler http.HandlerFunc) *Notifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	n, err := NewNotifier(Options{
		Token:             "test-token",
		ChatID:            "12345",
		BaseURL:           server.URL,
		Timeout:           5 * time.Second,
		MessagesPerSecond: 1000,
	})
	require.NoError(t, err)
	return n
}

func sampleListing() *domain.Listing {
	return &domain.Listing{
		ID:           "111",
		Title:        "Apartment - Dizengoff 10",
		Price:        5500,
		URL:          "https://www.yad2.co.il/item/tok-111",
		City:         "Tel Aviv",
		Neighborhood: "Old North",
		Street:       "Dizengoff",
		HouseNumber:  "10",
		Rooms:        3.5,
		SquareMeters: 80,
	}
}

func TestNewNotifier_RequiresCredentials(t *testing.T) {
	_, err := NewNotifier(Options{Token: "", ChatID: "123"})
	assert.ErrorIs(t, err, domain.ErrNotifierUnavailable)

	_, err = NewNotifier(Options{Token: "tok", ChatID: ""})
	assert.ErrorIs(t, err, domain.ErrNotifierUnavailable)

	_, err = NewNotifier(Options{Token: "tok", ChatID: "123"})
	assert.NoError(t, err)
}

func TestNotifier_Send(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"ok": true}`)
	})

	err := n.Send(context.Background(), sampleListing())
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotBody["chat_id"])
	assert.Equal(t, true, gotBody["disable_web_page_preview"])

	text, ok := gotBody["text"].(string)
	require.True(t, ok)
	assert.Contains(t, text, "Apartment - Dizengoff 10")
	assert.Contains(t, text, "₪5,500")
	assert.Contains(t, text, "https://www.yad2.co.il/item/tok-111")
}

func TestNotifier_SendText(t *testing.T) {
	var gotBody map[string]any
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"ok": true}`)
	})

	err := n.SendText(context.Background(), "2 listings removed from the feed")
	require.NoError(t, err)
	assert.Equal(t, "2 listings removed from the feed", gotBody["text"])
}

func TestNotifier_Send_APIError(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok": false, "description": "Bad Request: chat not found"}`)
	})

	err := n.Send(context.Background(), sampleListing())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNotifier_Send_RateLimited(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok": false, "description": "Too Many Requests", "parameters": {"retry_after": 30}}`)
	})

	err := n.Send(context.Background(), sampleListing())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.Contains(t, err.Error(), "30s")
}

func TestNotifier_Send_ContextCancelled(t *testing.T) {
	n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Send(ctx, sampleListing())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDelivery)
}

func TestFormatListing(t *testing.T) {
	got := FormatListing(sampleListing())

	want := "🏠 Apartment - Dizengoff 10\n" +
		"💰 Price: ₪5,500\n" +
		"📍 Dizengoff 10, Old North, Tel Aviv\n" +
		"🛋 3.5 rooms, 80m²\n" +
		"🔗 https://www.yad2.co.il/item/tok-111"
	assert.Equal(t, want, got)
}

func TestFormatListing_Agency(t *testing.T) {
	l := sampleListing()
	l.Agency = "Best Homes"

	got := FormatListing(l)
	assert.Contains(t, got, "\n🏢 Best Homes")
}

func TestFormatListing_MissingFields(t *testing.T) {
	got := FormatListing(&domain.Listing{ID: "x", URL: "https://example.com/x"})

	assert.Contains(t, got, "🏠 New Listing")
	assert.Contains(t, got, "₪N/A")
	assert.Contains(t, got, "N/A rooms, N/Am²")
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		price int
		want  string
	}{
		{0, "N/A"},
		{-5, "N/A"},
		{900, "900"},
		{5500, "5,500"},
		{13000, "13,000"},
		{1250000, "1,250,000"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPrice(tt.price))
		})
	}
}
