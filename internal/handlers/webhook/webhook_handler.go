// Package webhook receives processor event notifications.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	stripeadapter "github.com/billfold/checkout-service/internal/adapters/stripe"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
)

const maxPayloadBytes = 65536

// Handler verifies and dispatches Stripe webhook events. Events the service
// does not act on still get a 200 so Stripe stops retrying; anything except
// a bad signature or a handler failure is acknowledged.
type Handler struct {
	service       serviceports.WebhookService
	signingSecret string
	logger        *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(service serviceports.WebhookService, signingSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// Register mounts the webhook route on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.Receive)
}

// invoicePayload is the slice of the invoice event body this service reads.
// The subscription reference moved under parent.subscription_details in
// newer Stripe API versions, so both locations are decoded.
type invoicePayload struct {
	Currency     string `json:"currency"`
	AmountPaid   int64  `json:"amount_paid"`
	Charge       string `json:"charge"`
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *invoicePayload) subscriptionID() string {
	if p.Parent.SubscriptionDetails.Subscription != "" {
		return p.Parent.SubscriptionDetails.Subscription
	}
	return p.Subscription
}

// Receive handles POST /webhooks/stripe
func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Warn("webhook payload read failed", zap.Error(err))
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := stripewebhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		observability.RecordWebhookEvent("unknown", "rejected")
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	outcome, err := h.dispatch(r, event)
	if err != nil {
		observability.RecordWebhookEvent(string(event.Type), "failed")
		h.logger.Error("webhook handling failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		http.Error(w, "event handling failed", http.StatusInternalServerError)
		return
	}

	observability.RecordWebhookEvent(string(event.Type), string(outcome))
	h.logger.Info("webhook event processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("outcome", string(outcome)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"outcome": string(outcome)})
}

func (h *Handler) dispatch(r *http.Request, event stripe.Event) (serviceports.WebhookOutcome, error) {
	ctx := r.Context()

	switch event.Type {
	case "invoice.payment_succeeded", "invoice.paid":
		var inv invoicePayload
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return "", err
		}
		return h.service.HandleInvoicePaid(ctx, serviceports.InvoicePaidEvent{
			ProcessorSubscriptionID: inv.subscriptionID(),
			ProcessorChargeID:       inv.Charge,
			Currency:                inv.Currency,
			Amount:                  inv.AmountPaid,
		})

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return "", err
		}
		return h.service.HandleSubscriptionChange(ctx, stripeadapter.SubscriptionFromStripe(&sub))

	default:
		return serviceports.WebhookIgnored, nil
	}
}
