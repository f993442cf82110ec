package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/billfold/checkout-service/internal/domain"
)

// SubscriptionBuilder provides a fluent API for building test subscriptions.
type SubscriptionBuilder struct {
	sub *domain.Subscription
}

// NewSubscription creates a subscription builder with sensible defaults.
func NewSubscription() *SubscriptionBuilder {
	now := time.Now().UTC()
	return &SubscriptionBuilder{
		sub: &domain.Subscription{
			GUID:         uuid.New().String(),
			Email:        "buyer@example.com",
			PlanID:       "plan_basic",
			PaymentToken: "tok_visa",
			Quantity:     1,
			State:        domain.SubscriptionStateNew,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *SubscriptionBuilder) WithGUID(guid string) *SubscriptionBuilder {
	b.sub.GUID = guid
	return b
}

func (b *SubscriptionBuilder) WithState(state domain.SubscriptionState) *SubscriptionBuilder {
	b.sub.State = state
	return b
}

func (b *SubscriptionBuilder) WithProcessorStatus(status string) *SubscriptionBuilder {
	b.sub.ProcessorStatus = status
	return b
}

func (b *SubscriptionBuilder) WithPlanID(planID string) *SubscriptionBuilder {
	b.sub.PlanID = planID
	return b
}

func (b *SubscriptionBuilder) WithToken(token string) *SubscriptionBuilder {
	b.sub.PaymentToken = token
	return b
}

func (b *SubscriptionBuilder) WithOwnerID(ownerID string) *SubscriptionBuilder {
	b.sub.OwnerID = ownerID
	return b
}

func (b *SubscriptionBuilder) WithCoupon(coupon string) *SubscriptionBuilder {
	b.sub.Coupon = coupon
	return b
}

func (b *SubscriptionBuilder) WithSetupFee(fee int64) *SubscriptionBuilder {
	b.sub.SetupFee = fee
	return b
}

func (b *SubscriptionBuilder) WithQuantity(quantity int64) *SubscriptionBuilder {
	b.sub.Quantity = quantity
	return b
}

func (b *SubscriptionBuilder) WithProcessorIDs(customerID, subscriptionID string) *SubscriptionBuilder {
	b.sub.ProcessorCustomerID = customerID
	b.sub.ProcessorSubscriptionID = subscriptionID
	return b
}

func (b *SubscriptionBuilder) Build() *domain.Subscription {
	return b.sub
}
