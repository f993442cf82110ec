package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/billfold/checkout-service/internal/domain"
)

// CreateSubscriptionRequest carries the fields a storefront submits when a
// buyer subscribes to a plan
type CreateSubscriptionRequest struct {
	TaxPercent   decimal.Decimal
	Email        string
	PlanID       string
	PaymentToken string
	Coupon       string
	// OwnerID groups subscriptions of the same account so an existing
	// processor customer and its card can be reused
	OwnerID  string
	Quantity int64
	SetupFee int64
}

// ChangePlanRequest carries a plan change and its optional billing knobs.
// Quantity defaults to 1; Coupon and TrialEnd are forwarded to the processor
// only when set.
type ChangePlanRequest struct {
	PlanID   string
	Coupon   string
	Quantity int64
	TrialEnd int64
}

// SubscriptionStatus is the poll view of a subscription, including the
// client secret the browser needs when card authentication is pending
type SubscriptionStatus struct {
	Subscription *domain.Subscription
	ClientSecret string
}

// SubscriptionService drives the subscription lifecycle. CreateSubscription
// records the intent and returns immediately; StartSubscription runs the
// processor calls and is meant to be invoked asynchronously.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*domain.Subscription, error)
	StartSubscription(ctx context.Context, guid string) error
	// CancelSubscription ends the subscription now, or flags it to lapse at
	// the period boundary when atPeriodEnd is set
	CancelSubscription(ctx context.Context, guid string, atPeriodEnd bool) (*domain.Subscription, error)
	ChangePlan(ctx context.Context, guid string, req ChangePlanRequest) (*domain.Subscription, error)
	ChangeQuantity(ctx context.Context, guid string, quantity int64) (*domain.Subscription, error)
	UpdateCard(ctx context.Context, guid, paymentToken string) (*domain.Subscription, error)
	GetStatus(ctx context.Context, guid string) (*SubscriptionStatus, error)
}
