package ports

import (
	"context"

	"github.com/billfold/checkout-service/internal/domain"
)

// CreateSaleRequest carries the fields a storefront submits for a purchase
type CreateSaleRequest struct {
	Email        string
	Currency     string
	PaymentToken string
	// CustomerID reuses an existing processor customer instead of a token
	CustomerID string
	Amount     int64
}

// CheckoutService drives the one-time purchase lifecycle. CreateSale records
// the intent and returns immediately; ChargeCard runs the processor call and
// is meant to be invoked asynchronously, with clients polling for the outcome.
type CheckoutService interface {
	CreateSale(ctx context.Context, req CreateSaleRequest) (*domain.Sale, error)
	ChargeCard(ctx context.Context, guid string) error
	ProcessRefund(ctx context.Context, guid string) (*domain.Sale, error)
	GetSale(ctx context.Context, guid string) (*domain.Sale, error)
}
