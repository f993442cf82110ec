package domain

import (
	"time"

	"github.com/billfold/checkout-service/pkg/timeutil"
)

// PaymentSourceKind tags the processor-side payment source variant
type PaymentSourceKind string

const (
	PaymentSourceKindCard        PaymentSourceKind = "card"         // stored card object
	PaymentSourceKindTokenized   PaymentSourceKind = "source"       // tokenized source wrapping a card
	PaymentSourceKindBankAccount PaymentSourceKind = "bank_account" // ACH-style bank account
)

// PaymentSource is the tagged union of payment-source shapes the processor
// returns. Exactly one of Card/BankAccount is populated for a recognized kind;
// a tokenized source carries its card data in Card as well.
type PaymentSource struct {
	Kind        PaymentSourceKind
	Card        *SourceCard
	BankAccount *SourceBankAccount
}

// SourceCard holds card data as reported by the processor
type SourceCard struct {
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// SourceBankAccount holds bank account data as reported by the processor
type SourceBankAccount struct {
	BankName string
	Last4    string
}

// CardDetails is the canonical four-field card summary persisted on sales and
// subscriptions, normalized from whichever source variant was seen.
type CardDetails struct {
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// Expiration returns the first day of the expiry month in UTC
func (c *CardDetails) Expiration() time.Time {
	return time.Date(c.ExpYear, time.Month(c.ExpMonth), 1, 0, 0, 0, 0, time.UTC)
}

// ExtractCardDetails normalizes a payment source into CardDetails. Unrecognized
// variants (and tokenized sources that do not wrap a card) yield nil. Bank
// accounts have no expiry, so one is synthesized a year out to keep downstream
// expiry handling uniform.
func ExtractCardDetails(src *PaymentSource) *CardDetails {
	if src == nil {
		return nil
	}

	switch src.Kind {
	case PaymentSourceKindCard, PaymentSourceKindTokenized:
		if src.Card == nil {
			return nil
		}
		return &CardDetails{
			Brand:    src.Card.Brand,
			Last4:    src.Card.Last4,
			ExpMonth: src.Card.ExpMonth,
			ExpYear:  src.Card.ExpYear,
		}
	case PaymentSourceKindBankAccount:
		if src.BankAccount == nil {
			return nil
		}
		now := timeutil.Now()
		return &CardDetails{
			Brand:    src.BankAccount.BankName,
			Last4:    src.BankAccount.Last4,
			ExpMonth: int(now.Month()),
			ExpYear:  now.Year() + 1,
		}
	default:
		return nil
	}
}
