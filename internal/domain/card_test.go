package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractCardDetails_Variants tests normalization across the three
// payment-source shapes the processor returns
func TestExtractCardDetails_Variants(t *testing.T) {
	t.Run("stored card", func(t *testing.T) {
		src := &PaymentSource{
			Kind: PaymentSourceKindCard,
			Card: &SourceCard{Brand: "Visa", Last4: "4242", ExpMonth: 4, ExpYear: 2030},
		}

		cd := ExtractCardDetails(src)
		require.NotNil(t, cd)
		assert.Equal(t, "Visa", cd.Brand)
		assert.Equal(t, "4242", cd.Last4)
		assert.Equal(t, 4, cd.ExpMonth)
		assert.Equal(t, 2030, cd.ExpYear)
	})

	t.Run("tokenized source wrapping a card", func(t *testing.T) {
		src := &PaymentSource{
			Kind: PaymentSourceKindTokenized,
			Card: &SourceCard{Brand: "Discover", Last4: "7777", ExpMonth: 5, ExpYear: 2029},
		}

		cd := ExtractCardDetails(src)
		require.NotNil(t, cd)
		assert.Equal(t, "Discover", cd.Brand)
		assert.Equal(t, "7777", cd.Last4)
	})

	t.Run("bank account synthesizes expiry", func(t *testing.T) {
		src := &PaymentSource{
			Kind:        PaymentSourceKindBankAccount,
			BankAccount: &SourceBankAccount{BankName: "STRIPE TEST BANK", Last4: "6789"},
		}

		cd := ExtractCardDetails(src)
		require.NotNil(t, cd)
		assert.Equal(t, "STRIPE TEST BANK", cd.Brand)
		assert.Equal(t, "6789", cd.Last4)
		assert.Equal(t, time.Now().UTC().Year()+1, cd.ExpYear)
		assert.NotZero(t, cd.ExpMonth)
		// Must never panic or produce an invalid date downstream
		assert.False(t, cd.Expiration().IsZero())
	})
}

// TestExtractCardDetails_Unrecognized tests nil results for unusable variants
func TestExtractCardDetails_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		src  *PaymentSource
	}{
		{"nil source", nil},
		{"unknown kind", &PaymentSource{Kind: PaymentSourceKind("alipay")}},
		{"tokenized source without card data", &PaymentSource{Kind: PaymentSourceKindTokenized}},
		{"card kind without card data", &PaymentSource{Kind: PaymentSourceKindCard}},
		{"bank kind without account data", &PaymentSource{Kind: PaymentSourceKindBankAccount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ExtractCardDetails(tt.src))
		})
	}
}

// TestCardDetails_Expiration tests first-of-month expiry dates
func TestCardDetails_Expiration(t *testing.T) {
	cd := &CardDetails{Brand: "Visa", Last4: "4242", ExpMonth: 9, ExpYear: 2031}

	exp := cd.Expiration()
	assert.Equal(t, 2031, exp.Year())
	assert.Equal(t, time.September, exp.Month())
	assert.Equal(t, 1, exp.Day())
	assert.Equal(t, time.UTC, exp.Location())
}
