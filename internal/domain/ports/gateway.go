package ports

import (
	"context"

	"github.com/billfold/checkout-service/internal/domain"
)

// CreateCustomerParams are the inputs for creating a processor customer
type CreateCustomerParams struct {
	Email string
	Token string
}

// CreateChargeParams are the inputs for creating a one-time charge
type CreateChargeParams struct {
	CustomerID  string
	Currency    string
	Description string
	Amount      int64
}

// CreateSubscriptionParams are the inputs for creating a processor
// subscription. TrialEnd is a Unix timestamp; zero means no override.
type CreateSubscriptionParams struct {
	CustomerID string
	PlanID     string
	Coupon     string
	TaxPercent string
	Quantity   int64
	TrialEnd   int64
}

// UpdateSubscriptionParams are the inputs for mutating a processor
// subscription. Nil fields are left unchanged on the processor side.
type UpdateSubscriptionParams struct {
	PlanID            *string
	Quantity          *int64
	Coupon            *string
	TrialEnd          *int64
	CancelAtPeriodEnd *bool
	Prorate           *bool
}

// CreateInvoiceItemParams are the inputs for a one-time invoice line such as a
// setup fee
type CreateInvoiceItemParams struct {
	CustomerID  string
	Currency    string
	Description string
	Amount      int64
}

// ProcessorGateway is the operation set this system needs from the external
// payment processor. Every call is a synchronous remote call that may fail or
// time out; implementations translate processor faults into GATEWAY_* domain
// errors, and callers catch them at the transition-service boundary.
type ProcessorGateway interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*domain.ProcessorCustomer, error)
	GetCustomer(ctx context.Context, customerID string) (*domain.ProcessorCustomer, error)
	// UpdateCustomerSource swaps the customer's default payment source and
	// returns the customer re-read from the processor.
	UpdateCustomerSource(ctx context.Context, customerID, token string) (*domain.ProcessorCustomer, error)

	CreateCharge(ctx context.Context, params CreateChargeParams) (*domain.ProcessorCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*domain.ProcessorCharge, error)
	// GetFee resolves the processor fee from a balance transaction id, for
	// charges that did not carry the fee inline.
	GetFee(ctx context.Context, balanceTxnID string) (int64, error)
	CreateRefund(ctx context.Context, chargeID string) error

	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*domain.ProcessorSubscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*domain.ProcessorSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error)
	// GetAuthenticationSecret resolves the client secret of the payment
	// intent behind the subscription's latest invoice, used by the client to
	// complete a card authentication challenge.
	GetAuthenticationSecret(ctx context.Context, subscriptionID string) (string, error)

	CreateInvoiceItem(ctx context.Context, params CreateInvoiceItemParams) error
}
