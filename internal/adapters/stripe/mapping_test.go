package stripe

import (
	"context"
	"errors"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billfold/checkout-service/internal/domain"
)

func TestSourceFromPaymentSource(t *testing.T) {
	tests := []struct {
		name     string
		input    *stripe.PaymentSource
		expected *domain.PaymentSource
	}{
		{
			name:     "nil source",
			input:    nil,
			expected: nil,
		},
		{
			name: "card source",
			input: &stripe.PaymentSource{
				Type: stripe.PaymentSourceTypeCard,
				Card: &stripe.Card{
					Brand:    stripe.CardBrandVisa,
					Last4:    "4242",
					ExpMonth: 12,
					ExpYear:  2030,
				},
			},
			expected: &domain.PaymentSource{
				Kind: domain.PaymentSourceKindCard,
				Card: &domain.SourceCard{
					Brand:    "Visa",
					Last4:    "4242",
					ExpMonth: 12,
					ExpYear:  2030,
				},
			},
		},
		{
			name: "card source without card payload",
			input: &stripe.PaymentSource{
				Type: stripe.PaymentSourceTypeCard,
			},
			expected: nil,
		},
		{
			name: "bank account source",
			input: &stripe.PaymentSource{
				Type: stripe.PaymentSourceTypeBankAccount,
				BankAccount: &stripe.BankAccount{
					BankName: "STRIPE TEST BANK",
					Last4:    "6789",
				},
			},
			expected: &domain.PaymentSource{
				Kind: domain.PaymentSourceKindBankAccount,
				BankAccount: &domain.SourceBankAccount{
					BankName: "STRIPE TEST BANK",
					Last4:    "6789",
				},
			},
		},
		{
			name: "tokenized source with card data",
			input: &stripe.PaymentSource{
				Type: stripe.PaymentSourceTypeSource,
				Source: &stripe.Source{
					Card: &stripe.SourceCard{
						Brand:    "Mastercard",
						Last4:    "5100",
						ExpMonth: 3,
						ExpYear:  2029,
					},
				},
			},
			expected: &domain.PaymentSource{
				Kind: domain.PaymentSourceKindTokenized,
				Card: &domain.SourceCard{
					Brand:    "Mastercard",
					Last4:    "5100",
					ExpMonth: 3,
					ExpYear:  2029,
				},
			},
		},
		{
			name: "tokenized source without card data",
			input: &stripe.PaymentSource{
				Type: stripe.PaymentSourceTypeSource,
				Source: &stripe.Source{
					Card: &stripe.SourceCard{},
				},
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sourceFromPaymentSource(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestChargeFromStripe(t *testing.T) {
	t.Run("expanded balance transaction carries the fee", func(t *testing.T) {
		ch := &stripe.Charge{
			ID:       "ch_123",
			Amount:   1500,
			Currency: stripe.CurrencyUSD,
			Customer: &stripe.Customer{ID: "cus_123"},
			BalanceTransaction: &stripe.BalanceTransaction{
				ID:  "txn_123",
				Fee: 74,
			},
			PaymentMethodDetails: &stripe.ChargePaymentMethodDetails{
				Card: &stripe.ChargePaymentMethodDetailsCard{
					Brand:    "visa",
					Last4:    "4242",
					ExpMonth: 6,
					ExpYear:  2031,
				},
			},
		}

		pc := ChargeFromStripe(ch)

		assert.Equal(t, "ch_123", pc.ID)
		assert.Equal(t, "cus_123", pc.CustomerID)
		assert.Equal(t, int64(1500), pc.Amount)
		assert.Equal(t, "usd", pc.Currency)
		assert.Equal(t, "txn_123", pc.BalanceTxnID)
		assert.Equal(t, int64(74), pc.Fee)
		assert.True(t, pc.FeeKnown)
		require.NotNil(t, pc.Source)
		assert.Equal(t, domain.PaymentSourceKindCard, pc.Source.Kind)
		assert.Equal(t, "4242", pc.Source.Card.Last4)
	})

	t.Run("pending balance transaction leaves fee unknown", func(t *testing.T) {
		ch := &stripe.Charge{
			ID:       "ch_123",
			Amount:   1500,
			Currency: stripe.CurrencyUSD,
		}

		pc := ChargeFromStripe(ch)

		assert.False(t, pc.FeeKnown)
		assert.Empty(t, pc.BalanceTxnID)
		assert.Nil(t, pc.Source)
	})

	t.Run("ach debit maps to a bank account source", func(t *testing.T) {
		ch := &stripe.Charge{
			ID: "ch_123",
			PaymentMethodDetails: &stripe.ChargePaymentMethodDetails{
				ACHDebit: &stripe.ChargePaymentMethodDetailsACHDebit{
					BankName: "FIRST NATIONAL",
					Last4:    "6789",
				},
			},
		}

		pc := ChargeFromStripe(ch)

		require.NotNil(t, pc.Source)
		assert.Equal(t, domain.PaymentSourceKindBankAccount, pc.Source.Kind)
		assert.Equal(t, "FIRST NATIONAL", pc.Source.BankAccount.BankName)
	})
}

func TestSubscriptionFromStripe(t *testing.T) {
	periodStart := int64(1735689600)
	periodEnd := int64(1738368000)

	t.Run("period bounds come from the first item", func(t *testing.T) {
		sub := &stripe.Subscription{
			ID:       "sub_123",
			Status:   stripe.SubscriptionStatusActive,
			Customer: &stripe.Customer{ID: "cus_123"},
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{
					{
						Quantity:           3,
						CurrentPeriodStart: periodStart,
						CurrentPeriodEnd:   periodEnd,
					},
				},
			},
		}

		ps := SubscriptionFromStripe(sub)

		assert.Equal(t, "sub_123", ps.ID)
		assert.Equal(t, "cus_123", ps.CustomerID)
		assert.Equal(t, "active", ps.Status)
		assert.Equal(t, int64(3), ps.Quantity)
		require.NotNil(t, ps.CurrentPeriodStart)
		assert.Equal(t, time.Unix(periodStart, 0).UTC(), *ps.CurrentPeriodStart)
		require.NotNil(t, ps.CurrentPeriodEnd)
		assert.Equal(t, time.Unix(periodEnd, 0).UTC(), *ps.CurrentPeriodEnd)
	})

	t.Run("missing items default quantity to one", func(t *testing.T) {
		sub := &stripe.Subscription{
			ID:     "sub_123",
			Status: stripe.SubscriptionStatusTrialing,
		}

		ps := SubscriptionFromStripe(sub)

		assert.Equal(t, int64(1), ps.Quantity)
		assert.Nil(t, ps.CurrentPeriodStart)
		assert.Nil(t, ps.CurrentPeriodEnd)
	})

	t.Run("discount coupon is carried through", func(t *testing.T) {
		sub := &stripe.Subscription{
			ID:     "sub_123",
			Status: stripe.SubscriptionStatusActive,
			Discounts: []*stripe.Discount{
				{Coupon: &stripe.Coupon{ID: "SAVE20"}},
			},
		}

		ps := SubscriptionFromStripe(sub)

		assert.Equal(t, "SAVE20", ps.Coupon)
	})

	t.Run("cancellation timestamps map to pointers", func(t *testing.T) {
		canceledAt := int64(1735689600)
		sub := &stripe.Subscription{
			ID:                "sub_123",
			Status:            stripe.SubscriptionStatusCanceled,
			CanceledAt:        canceledAt,
			CancelAtPeriodEnd: true,
		}

		ps := SubscriptionFromStripe(sub)

		assert.True(t, ps.CancelAtPeriodEnd)
		require.NotNil(t, ps.CanceledAt)
		assert.Equal(t, time.Unix(canceledAt, 0).UTC(), *ps.CanceledAt)
	})
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode domain.ErrorCode
	}{
		{
			name: "card error maps to declined",
			err: &stripe.Error{
				Type: stripe.ErrorTypeCard,
				Msg:  "Your card was declined.",
			},
			expectedCode: domain.ErrorCodeGatewayDeclined,
		},
		{
			name: "resource missing maps to gateway error",
			err: &stripe.Error{
				Type: stripe.ErrorTypeInvalidRequest,
				Code: stripe.ErrorCodeResourceMissing,
				Msg:  "No such customer: cus_missing",
			},
			expectedCode: domain.ErrorCodeGatewayError,
		},
		{
			name:         "deadline exceeded maps to timeout",
			err:          context.DeadlineExceeded,
			expectedCode: domain.ErrorCodeGatewayTimeout,
		},
		{
			name:         "unknown transport error maps to gateway error",
			err:          errors.New("connection reset"),
			expectedCode: domain.ErrorCodeGatewayError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := translateError(tt.err)

			var domainErr *domain.DomainError
			require.True(t, errors.As(result, &domainErr))
			assert.Equal(t, tt.expectedCode, domainErr.Code)
			assert.True(t, domain.IsGatewayError(result))
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("card decline message is preserved for the buyer", func(t *testing.T) {
		result := translateError(&stripe.Error{
			Type: stripe.ErrorTypeCard,
			Msg:  "Your card has insufficient funds.",
		})

		var domainErr *domain.DomainError
		require.True(t, errors.As(result, &domainErr))
		assert.Equal(t, "Your card has insufficient funds.", domainErr.Message)
	})
}
