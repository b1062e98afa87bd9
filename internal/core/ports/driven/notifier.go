package driven

import (
	"context"

	"github.com/adwatch/adwatch/internal/core/domain"
)

// Notifier delivers messages to the configured subscriber channel.
// Delivery failures are per-message: Send returns an error wrapping
// domain.ErrDelivery and never aborts the caller's batch.
type Notifier interface {
	// Send renders the listing as human-readable text and delivers it.
	Send(ctx context.Context, listing *domain.Listing) error

	// SendText delivers a preformatted message, used for removal notices
	// and operator test messages.
	SendText(ctx context.Context, text string) error
}
