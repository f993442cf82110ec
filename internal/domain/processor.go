package domain

import "time"

// ProcessorCustomer is the normalized customer record reported by the payment
// processor.
type ProcessorCustomer struct {
	DefaultSource *PaymentSource
	ID            string
	Email         string
	Deleted       bool
}

// HasDefaultSource reports whether the customer has a stored payment method
func (c *ProcessorCustomer) HasDefaultSource() bool {
	return c.DefaultSource != nil
}

// ProcessorCharge is the normalized charge record reported by the processor.
// Fee is populated when the balance transaction was available on retrieval;
// otherwise BalanceTxnID identifies it for a follow-up fee lookup.
type ProcessorCharge struct {
	Source       *PaymentSource
	ID           string
	CustomerID   string
	Currency     string
	BalanceTxnID string
	Amount       int64
	Fee          int64
	FeeKnown     bool
}

// ProcessorSubscription is the normalized subscription record reported by the
// processor. Timestamps are nil when the processor did not report them.
// ClientSecret is populated only when the record was retrieved with the
// payment-intent expansion for the authentication flow.
type ProcessorSubscription struct {
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CanceledAt         *time.Time
	ID                 string
	CustomerID         string
	Status             string
	Coupon             string
	ClientSecret       string
	Quantity           int64
	CancelAtPeriodEnd  bool
}

// Processor-reported subscription status strings that drive reconciliation
const (
	ProcessorStatusActive            = "active"
	ProcessorStatusTrialing          = "trialing"
	ProcessorStatusCanceled          = "canceled"
	ProcessorStatusIncomplete        = "incomplete"
	ProcessorStatusIncompleteExpired = "incomplete_expired"
	ProcessorStatusPastDue           = "past_due"
	ProcessorStatusUnpaid            = "unpaid"
	ProcessorStatusPaused            = "paused"
)
