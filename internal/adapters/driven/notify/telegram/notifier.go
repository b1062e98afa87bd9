package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
	"github.com/adwatch/adwatch/internal/logger"
)

const defaultBaseURL = "https://api.telegram.org"

// Options configures the notifier.
type Options struct {
	// Token is the bot token issued by BotFather.
	Token string
	// ChatID is the chat that receives notifications.
	ChatID string
	// BaseURL overrides the API URL, used in tests.
	BaseURL string
	// Timeout bounds each API request. Defaults to 15 seconds.
	Timeout time.Duration
	// MessagesPerSecond paces sends. Telegram allows one message per
	// second per chat. Defaults to 1.
	MessagesPerSecond float64
}

// Notifier sends listing notifications to a Telegram chat.
type Notifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

var _ driven.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier. Token and chat id are required.
func NewNotifier(opts Options) (*Notifier, error) {
	token := strings.TrimSpace(opts.Token)
	chatID := strings.TrimSpace(opts.ChatID)
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("%w: bot token and chat id are required", domain.ErrNotifierUnavailable)
	}

	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	perSecond := opts.MessagesPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Notifier{
		token:   token,
		chatID:  chatID,
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

// Send delivers one listing notification.
func (n *Notifier) Send(ctx context.Context, listing *domain.Listing) error {
	return n.SendText(ctx, FormatListing(listing))
}

// SendText delivers a plain text message to the configured chat.
func (n *Notifier) SendText(ctx context.Context, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: waiting for rate limit: %v", domain.ErrDelivery, err)
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  n.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("%w: encoding message: %v", domain.ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/bot"+n.token+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending message: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Parameters  struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decoding response (status %d): %v", domain.ErrDelivery, resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(result.Parameters.RetryAfter) * time.Second
		logger.Warn("telegram rate limited, retry after %s", retryAfter)
		return fmt.Errorf("%w: rate limited, retry after %s", domain.ErrDelivery, retryAfter)
	}
	if !result.OK {
		return fmt.Errorf("%w: api error (status %d): %s", domain.ErrDelivery, resp.StatusCode, result.Description)
	}
	return nil
}

// FormatListing renders one listing notification in the fixed message
// layout the chat subscribers know.
func FormatListing(l *domain.Listing) string {
	var b strings.Builder

	title := l.Title
	if title == "" {
		title = "New Listing"
	}
	fmt.Fprintf(&b, "🏠 %s\n", title)
	fmt.Fprintf(&b, "💰 Price: ₪%s\n", formatPrice(l.Price))
	fmt.Fprintf(&b, "📍 %s\n", l.ShortAddress())

	rooms := "N/A"
	if l.Rooms > 0 {
		rooms = strconv.FormatFloat(l.Rooms, 'f', -1, 64)
	}
	sqm := "N/A"
	if l.SquareMeters > 0 {
		sqm = strconv.Itoa(l.SquareMeters)
	}
	fmt.Fprintf(&b, "🛋 %s rooms, %sm²\n", rooms, sqm)
	fmt.Fprintf(&b, "🔗 %s", l.URL)

	if l.Agency != "" {
		fmt.Fprintf(&b, "\n🏢 %s", l.Agency)
	}
	return b.String()
}

// formatPrice renders a price with thousands separators, or N/A when
// the site did not publish one.
func formatPrice(price int) string {
	if price <= 0 {
		return "N/A"
	}
	s := strconv.Itoa(price)
	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return b.String()
}
