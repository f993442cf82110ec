package ports

import (
	"context"

	"github.com/billfold/checkout-service/internal/domain"
)

// SaleRepository persists sales. Passing a nil DBTX executes against the pool.
type SaleRepository interface {
	Create(ctx context.Context, tx DBTX, sale *domain.Sale) error
	GetByGUID(ctx context.Context, tx DBTX, guid string) (*domain.Sale, error)
	// GetByChargeID looks a sale up by its processor charge id, the natural
	// key used to deduplicate webhook-driven sale creation.
	GetByChargeID(ctx context.Context, tx DBTX, chargeID string) (*domain.Sale, error)
	Update(ctx context.Context, tx DBTX, sale *domain.Sale) error
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	Create(ctx context.Context, tx DBTX, sub *domain.Subscription) error
	GetByGUID(ctx context.Context, tx DBTX, guid string) (*domain.Subscription, error)
	GetByProcessorID(ctx context.Context, tx DBTX, processorSubscriptionID string) (*domain.Subscription, error)
	Update(ctx context.Context, tx DBTX, sub *domain.Subscription) error
	// FindReusableCustomerID returns the processor customer id of the most
	// recent active or canceled subscription belonging to owner, or empty
	// when the owner has none. Enables payment-method reuse across
	// subscriptions of the same owner.
	FindReusableCustomerID(ctx context.Context, tx DBTX, ownerID string) (string, error)
}

// PlanRepository reads billing plans
type PlanRepository interface {
	Create(ctx context.Context, tx DBTX, plan *domain.Plan) error
	GetByID(ctx context.Context, tx DBTX, id string) (*domain.Plan, error)
}
