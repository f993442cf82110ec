// Package checkout exposes the one-time purchase endpoints.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/billfold/checkout-service/internal/domain"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
	"github.com/billfold/checkout-service/pkg/shutdown"
)

// Handler accepts purchases and answers status polls. Create records the
// sale and returns 202 immediately; the processor charge runs on a tracked
// background goroutine and clients poll the status endpoint until the sale
// reaches a terminal state.
type Handler struct {
	service serviceports.CheckoutService
	tracker *shutdown.Tracker
	logger  *zap.Logger
}

// NewHandler creates a new checkout handler
func NewHandler(service serviceports.CheckoutService, tracker *shutdown.Tracker, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		tracker: tracker,
		logger:  logger,
	}
}

// Register mounts the checkout routes on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sales", h.Create)
	mux.HandleFunc("GET /api/v1/sales/{guid}/status", h.Status)
	mux.HandleFunc("POST /api/v1/sales/{guid}/refund", h.Refund)
}

// CreateSaleRequest is the request body for POST /api/v1/sales
type CreateSaleRequest struct {
	Email        string `json:"email"`
	Currency     string `json:"currency"`
	PaymentToken string `json:"payment_token"`
	CustomerID   string `json:"customer_id"`
	Amount       int64  `json:"amount"`
}

// CreateSaleResponse acknowledges an accepted sale
type CreateSaleResponse struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
}

// SaleStatusResponse is the poll view of a sale
type SaleStatusResponse struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Create handles POST /api/v1/sales
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.service.CreateSale(r.Context(), serviceports.CreateSaleRequest{
		Email:        req.Email,
		Currency:     req.Currency,
		PaymentToken: req.PaymentToken,
		CustomerID:   req.CustomerID,
		Amount:       req.Amount,
	})
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	guid := sale.GUID
	if !h.tracker.Go(func(ctx context.Context) {
		if err := h.service.ChargeCard(ctx, guid); err != nil {
			h.logger.Warn("background charge failed",
				zap.String("guid", guid),
				zap.Error(err),
			)
		}
	}) {
		respondError(w, h.logger, http.StatusServiceUnavailable, "service is shutting down")
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, CreateSaleResponse{
		GUID:   sale.GUID,
		Status: string(sale.State),
	})
}

// Status handles GET /api/v1/sales/{guid}/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	sale, err := h.service.GetSale(r.Context(), guid)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	observability.RecordStatusPoll("sale", string(sale.State))

	// A recorded failure answers 400 so a plain poll loop can stop on the
	// status code alone
	statusCode := http.StatusOK
	if sale.Error != "" {
		statusCode = http.StatusBadRequest
	}
	respondJSON(w, h.logger, statusCode, SaleStatusResponse{
		GUID:   sale.GUID,
		Status: string(sale.State),
		Error:  sale.Error,
	})
}

// Refund handles POST /api/v1/sales/{guid}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	guid := r.PathValue("guid")

	sale, err := h.service.ProcessRefund(r.Context(), guid)
	if err != nil {
		respondDomainError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, sale)
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

// respondDomainError maps domain error classes to HTTP statuses. Clients see
// the buyer-facing message, never the wrapped cause.
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
