package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billfold/checkout-service/pkg/timeutil"
)

// Sale is a one-time purchase. A sale is never deleted: failed and refunded
// sales remain as the audit trail of the charge attempt.
type Sale struct {
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	CardExpiration        *time.Time `json:"card_expiration"`
	GUID                  string     `json:"guid"`
	Email                 string     `json:"email"`
	Currency              string     `json:"currency"`
	PaymentToken          string     `json:"-"`
	ProcessorCustomerID   string     `json:"processor_customer_id"`
	ProcessorChargeID     string     `json:"processor_charge_id"`
	ProcessorBalanceTxnID string     `json:"processor_balance_txn_id"`
	CardBrand             string     `json:"card_brand"`
	CardLast4             string     `json:"card_last4"`
	Error                 string     `json:"error"`
	SubscriptionGUID      string     `json:"subscription_guid"`
	State                 SaleState  `json:"state"`
	Amount                int64      `json:"amount"`
	FeeAmount             int64      `json:"fee_amount"`
}

// NewSale builds a sale in the initial state with a fresh guid
func NewSale(email string, amount int64, currency, paymentToken string) *Sale {
	now := timeutil.Now()
	return &Sale{
		GUID:         uuid.New().String(),
		Email:        email,
		Amount:       amount,
		Currency:     currency,
		PaymentToken: paymentToken,
		State:        SaleStateNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VerifyCharge checks the invariants that must hold before any processor call
// is made. Violations are ValidationErrors: no external side effect has
// happened and the sale state is left untouched.
func (s *Sale) VerifyCharge() error {
	if s.Amount < 0 {
		return ErrInvalidAmount.WithDetail("amount", s.Amount)
	}
	if s.Email == "" {
		return NewDomainError(ErrorCodeValidationMissingField, "email is required")
	}
	if s.PaymentToken == "" && s.ProcessorCustomerID == "" {
		return ErrTokenRequired
	}
	return nil
}

// Process moves the sale into processing ahead of the charge call
func (s *Sale) Process() error {
	return s.transition("process", SaleStateProcessing)
}

// Finish marks the charge as successfully captured
func (s *Sale) Finish() error {
	return s.transition("finish", SaleStateFinished)
}

// Fail records the failure message and moves the sale to errored
func (s *Sale) Fail(msg string) error {
	if err := s.transition("fail", SaleStateErrored); err != nil {
		return err
	}
	s.Error = msg
	return nil
}

// Refund marks a finished sale as refunded
func (s *Sale) Refund() error {
	return s.transition("refund", SaleStateRefunded)
}

// ApplyCardDetails copies the normalized card summary onto the sale
func (s *Sale) ApplyCardDetails(cd *CardDetails) {
	if cd == nil {
		return
	}
	s.CardBrand = cd.Brand
	s.CardLast4 = cd.Last4
	exp := cd.Expiration()
	s.CardExpiration = &exp
}

func (s *Sale) transition(event string, to SaleState) error {
	if !s.State.CanTransitionTo(to) {
		return &StateTransitionError{
			Entity: fmt.Sprintf("sale %s", s.GUID),
			Event:  event,
			From:   string(s.State),
			To:     string(to),
		}
	}
	s.State = to
	s.UpdatedAt = timeutil.Now()
	return nil
}
