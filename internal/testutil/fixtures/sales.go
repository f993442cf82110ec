package fixtures

import (
	"time"

	"github.com/google/uuid"

	"github.com/billfold/checkout-service/internal/domain"
)

// SaleBuilder provides a fluent API for building test sales.
type SaleBuilder struct {
	sale *domain.Sale
}

// NewSale creates a sale builder with sensible defaults.
func NewSale() *SaleBuilder {
	now := time.Now().UTC()
	return &SaleBuilder{
		sale: &domain.Sale{
			GUID:         uuid.New().String(),
			Email:        "buyer@example.com",
			Currency:     "usd",
			PaymentToken: "tok_visa",
			Amount:       1500,
			State:        domain.SaleStateNew,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *SaleBuilder) WithGUID(guid string) *SaleBuilder {
	b.sale.GUID = guid
	return b
}

func (b *SaleBuilder) WithState(state domain.SaleState) *SaleBuilder {
	b.sale.State = state
	return b
}

func (b *SaleBuilder) WithAmount(amount int64) *SaleBuilder {
	b.sale.Amount = amount
	return b
}

func (b *SaleBuilder) WithToken(token string) *SaleBuilder {
	b.sale.PaymentToken = token
	return b
}

func (b *SaleBuilder) WithCustomerID(customerID string) *SaleBuilder {
	b.sale.ProcessorCustomerID = customerID
	return b
}

func (b *SaleBuilder) WithChargeID(chargeID string) *SaleBuilder {
	b.sale.ProcessorChargeID = chargeID
	return b
}

func (b *SaleBuilder) WithSubscriptionGUID(guid string) *SaleBuilder {
	b.sale.SubscriptionGUID = guid
	return b
}

func (b *SaleBuilder) Build() *domain.Sale {
	return b.sale
}
