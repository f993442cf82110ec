package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSaleState_CanTransitionTo tests the sale transition table
func TestSaleState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     SaleState
		to       SaleState
		expected bool
	}{
		{"new to processing", SaleStateNew, SaleStateProcessing, true},
		{"processing to finished", SaleStateProcessing, SaleStateFinished, true},
		{"processing to errored", SaleStateProcessing, SaleStateErrored, true},
		{"finished to refunded", SaleStateFinished, SaleStateRefunded, true},
		{"new to finished skips processing", SaleStateNew, SaleStateFinished, false},
		{"errored to finished", SaleStateErrored, SaleStateFinished, false},
		{"errored to refunded", SaleStateErrored, SaleStateRefunded, false},
		{"refunded to anything", SaleStateRefunded, SaleStateProcessing, false},
		{"finished back to processing", SaleStateFinished, SaleStateProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// TestSubscriptionState_CanTransitionTo tests the subscription transition table
func TestSubscriptionState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     SubscriptionState
		to       SubscriptionState
		expected bool
	}{
		{"new to processing", SubscriptionStateNew, SubscriptionStateProcessing, true},
		{"processing to active", SubscriptionStateProcessing, SubscriptionStateActive, true},
		{"processing to errored", SubscriptionStateProcessing, SubscriptionStateErrored, true},
		{"processing to canceled before activation", SubscriptionStateProcessing, SubscriptionStateCanceled, true},
		{"active to canceled", SubscriptionStateActive, SubscriptionStateCanceled, true},
		{"active to errored", SubscriptionStateActive, SubscriptionStateErrored, true},
		{"new straight to active", SubscriptionStateNew, SubscriptionStateActive, false},
		{"canceled to active", SubscriptionStateCanceled, SubscriptionStateActive, false},
		{"errored to active", SubscriptionStateErrored, SubscriptionStateActive, false},
		{"errored to canceled", SubscriptionStateErrored, SubscriptionStateCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// TestStateTerminality tests which states are terminal
func TestStateTerminality(t *testing.T) {
	assert.True(t, SaleStateFinished.IsTerminal())
	assert.True(t, SaleStateErrored.IsTerminal())
	assert.True(t, SaleStateRefunded.IsTerminal())
	assert.False(t, SaleStateNew.IsTerminal())
	assert.False(t, SaleStateProcessing.IsTerminal())

	assert.True(t, SubscriptionStateCanceled.IsTerminal())
	assert.True(t, SubscriptionStateErrored.IsTerminal())
	assert.False(t, SubscriptionStateNew.IsTerminal())
	assert.False(t, SubscriptionStateProcessing.IsTerminal())
	assert.False(t, SubscriptionStateActive.IsTerminal())
}
