// Package subscription exposes the subscription lifecycle endpoints.
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/billfold/checkout-service/internal/domain"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
	"github.com/billfold/checkout-service/pkg/shutdown"
)

// Handler accepts subscription requests and answers status polls. Create
// records the subscription and returns 202; the processor work runs on a
// tracked background goroutine. While the processor holds the subscription
// in an authentication challenge the status poll carries the client secret
// the browser needs to complete it.
type Handler struct {
	service serviceports.SubscriptionService
	tracker *shutdown.Tracker
	logger  *zap.Logger
}

// NewHandler creates a new subscription handler
func NewHandler(service serviceports.SubscriptionService, tracker *shutdown.Tracker, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		tracker: tracker,
		logger:  logger,
	}
}

// Register mounts the subscription routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/subscriptions", h.Create)
	mux.HandleFunc("GET /api/v1/subscriptions/{guid}/status", h.Status)
	mux.HandleFunc("POST /api/v1/subscriptions/{guid}/cancel", h.Cancel)
	mux.HandleFunc("POST /api/v1/subscriptions/{guid}/plan", h.ChangePlan)
	mux.HandleFunc("POST /api/v1/subscriptions/{guid}/quantity", h.ChangeQuantity)
	mux.HandleFunc("POST /api/v1/subscriptions/{guid}/card", h.UpdateCard)
}

// CreateSubscriptionRequest is the request body for POST /api/v1/subscriptions
type CreateSubscriptionRequest struct {
	Email        string `json:"email"`
	PlanID       string `json:"plan_id"`
	PaymentToken string `json:"payment_token"`
	Coupon       string `json:"coupon"`
	OwnerID      string `json:"owner_id"`
	TaxPercent   string `json:"tax_percent"`
	Quantity     int64  `json:"quantity"`
	SetupFee     int64  `json:"setup_fee"`
}

// CreateSubscriptionResponse acknowledges an accepted subscription
type CreateSubscriptionResponse struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
}

// SubscriptionStatusResponse is the poll view of a subscription
type SubscriptionStatusResponse struct {
	GUID              string `json:"guid"`
	Status            string `json:"status"`
	ProcessorStatus   string `json:"processor_status,omitempty"`
	Error             string `json:"error,omitempty"`
	ClientSecret      string `json:"client_secret,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
}

// CancelRequest is the request body for the cancel endpoint
type CancelRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

// ChangePlanRequest is the request body for the plan change endpoint.
// Coupon and trial_end are forwarded to the processor when present.
type ChangePlanRequest struct {
	PlanID   string `json:"plan_id"`
	Coupon   string `json:"coupon"`
	Quantity int64  `json:"quantity"`
	TrialEnd int64  `json:"trial_end"`
}

// ChangeQuantityRequest is the request body for the quantity change endpoint
type ChangeQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateCardRequest is the request body for the card update endpoint
type UpdateCardRequest struct {
	PaymentToken string `json:"payment_token"`
}

// Create handles POST /api/v1/subscriptions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	taxPercent := decimal.Zero
	if req.TaxPercent != "" {
		parsed, err := decimal.NewFromString(req.TaxPercent)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "tax_percent must be a decimal number")
			return
		}
		taxPercent = parsed
	}

	sub, err := h.service.CreateSubscription(r.Context(), serviceports.CreateSubscriptionRequest{
		Email:        req.Email,
		PlanID:       req.PlanID,
		PaymentToken: req.PaymentToken,
		Coupon:       req.Coupon,
		OwnerID:      req.OwnerID,
		TaxPercent:   taxPercent,
		Quantity:     req.Quantity,
		SetupFee:     req.SetupFee,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	guid := sub.GUID
	if !h.tracker.Go(func(ctx context.Context) {
		if err := h.service.StartSubscription(ctx, guid); err != nil {
			h.logger.Warn("background subscription start failed",
				zap.String("guid", guid),
				zap.Error(err),
			)
		}
	}) {
		respondError(w, h.logger, http.StatusServiceUnavailable, "service is shutting down")
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, CreateSubscriptionResponse{
		GUID:   sub.GUID,
		Status: string(sub.State),
	})
}

// Status handles GET /api/v1/subscriptions/{guid}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	status, err := h.service.GetStatus(r.Context(), guid)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	sub := status.Subscription
	observability.RecordStatusPoll("subscription", string(sub.State))

	body := SubscriptionStatusResponse{
		GUID:              sub.GUID,
		Status:            string(sub.State),
		Error:             sub.Error,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	// The processor status and client secret only matter to a browser that
	// still has an authentication challenge to complete
	if sub.AwaitingAuthentication() {
		body.ProcessorStatus = sub.ProcessorStatus
		body.ClientSecret = status.ClientSecret
	}

	statusCode := http.StatusOK
	if sub.Error != "" {
		statusCode = http.StatusBadRequest
	}
	respondJSON(w, h.logger, statusCode, body)
}

// Cancel handles POST /api/v1/subscriptions/{guid}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	var req CancelRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	sub, err := h.service.CancelSubscription(r.Context(), guid, req.AtPeriodEnd)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sub)
}

// ChangePlan handles POST /api/v1/subscriptions/{guid}/plan
func (h *Handler) ChangePlan(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	var req ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanID == "" {
		respondError(w, h.logger, http.StatusBadRequest, "plan_id is required")
		return
	}

	sub, err := h.service.ChangePlan(r.Context(), guid, serviceports.ChangePlanRequest{
		PlanID:   req.PlanID,
		Coupon:   req.Coupon,
		Quantity: req.Quantity,
		TrialEnd: req.TrialEnd,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sub)
}

// ChangeQuantity handles POST /api/v1/subscriptions/{guid}/quantity
func (h *Handler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	var req ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.ChangeQuantity(r.Context(), guid, req.Quantity)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sub)
}

// UpdateCard handles POST /api/v1/subscriptions/{guid}/card
func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	var req UpdateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.UpdateCard(r.Context(), guid, req.PaymentToken)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sub)
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	respondJSON(w, logger, statusCode, map[string]any{"error": message})
}

func respondDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var statusCode int
	switch {
	case domain.IsValidationError(err):
		statusCode = http.StatusBadRequest
	case domain.IsNotFoundError(err):
		w.WriteHeader(http.StatusNotFound)
		return
	case domain.IsStateTransitionError(err):
		statusCode = http.StatusConflict
	case domain.IsGatewayError(err):
		statusCode = http.StatusBadGateway
	default:
		logger.Error("Unhandled error", zap.Error(err))
		respondError(w, logger, http.StatusInternalServerError, "internal error")
		return
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		respondJSON(w, logger, statusCode, map[string]any{
			"error": domainErr.Message,
			"code":  string(domainErr.Code),
		})
		return
	}
	respondError(w, logger, statusCode, err.Error())
}
