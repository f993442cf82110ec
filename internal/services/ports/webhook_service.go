package ports

import (
	"context"

	"github.com/billfold/checkout-service/internal/domain"
)

// WebhookOutcome reports how an event was folded into local state
type WebhookOutcome string

const (
	WebhookHandled   WebhookOutcome = "handled"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
)

// InvoicePaidEvent is the normalized shape of a paid-invoice notification
type InvoicePaidEvent struct {
	ProcessorSubscriptionID string
	ProcessorChargeID       string
	Currency                string
	Amount                  int64
}

// WebhookService folds processor notifications into local records.
// Handlers are idempotent: replayed events resolve to duplicate or ignored,
// never to a second side effect.
type WebhookService interface {
	// HandleInvoicePaid records a recurring payment as a sale attached to
	// its subscription
	HandleInvoicePaid(ctx context.Context, event InvoicePaidEvent) (WebhookOutcome, error)
	// HandleSubscriptionChange reconciles local state from a processor
	// subscription snapshot carried by updated and deleted events
	HandleSubscriptionChange(ctx context.Context, ps *domain.ProcessorSubscription) (WebhookOutcome, error)
}
