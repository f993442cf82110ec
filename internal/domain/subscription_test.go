package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidPlan() *Plan {
	return &Plan{ID: "plan-pro", ProcessorPlanID: "price_pro", Amount: 2500, Currency: "usd", Interval: "month", Prorate: true}
}

func processingSubscription(t *testing.T) *Subscription {
	t.Helper()
	sub := NewSubscription("buyer@example.com", "plan-pro", 1, "tok_visa")
	require.NoError(t, sub.Process())
	return sub
}

// TestSubscription_VerifyCharge tests the token invariant for paid plans
func TestSubscription_VerifyCharge(t *testing.T) {
	tests := []struct {
		name     string
		plan     *Plan
		mutate   func(*Subscription)
		wantCode ErrorCode
	}{
		{"paid plan with token", paidPlan(), func(s *Subscription) {}, ""},
		{"paid plan without token", paidPlan(), func(s *Subscription) { s.PaymentToken = "" }, ErrorCodeValidationTokenRequired},
		{"paid plan without token but known customer", paidPlan(), func(s *Subscription) {
			s.PaymentToken = ""
			s.ProcessorCustomerID = "cus_123"
		}, ""},
		{"paid plan without token but owner present", paidPlan(), func(s *Subscription) {
			s.PaymentToken = ""
			s.OwnerID = "owner-1"
		}, ""},
		{"free plan without token", &Plan{ID: "plan-free", Amount: 0}, func(s *Subscription) { s.PaymentToken = "" }, ""},
		{"paid trial plan without token", &Plan{ID: "plan-trial", Amount: 2500, TrialDays: 30}, func(s *Subscription) { s.PaymentToken = "" }, ErrorCodeValidationTokenRequired},
		{"free trial plan without token", &Plan{ID: "plan-free-trial", Amount: 0, TrialDays: 30}, func(s *Subscription) { s.PaymentToken = "" }, ""},
		{"nil plan", nil, func(s *Subscription) {}, ErrorCodeValidationMissingField},
		{"missing email", paidPlan(), func(s *Subscription) { s.Email = "" }, ErrorCodeValidationMissingField},
		{"zero quantity", paidPlan(), func(s *Subscription) { s.Quantity = 0 }, ErrorCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := NewSubscription("buyer@example.com", "plan-pro", 1, "tok_visa")
			tt.mutate(sub)

			err := sub.VerifyCharge(tt.plan)
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, GetErrorCode(err))
				assert.Equal(t, SubscriptionStateNew, sub.State)
			}
		})
	}
}

// TestSubscription_Lifecycle tests the legal transition paths
func TestSubscription_Lifecycle(t *testing.T) {
	t.Run("activate then cancel", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		assert.Equal(t, SubscriptionStateActive, sub.State)

		require.NoError(t, sub.Cancel())
		assert.Equal(t, SubscriptionStateCanceled, sub.State)
		require.NotNil(t, sub.CanceledAt)
	})

	t.Run("cancel while authentication pending", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Cancel())
		assert.Equal(t, SubscriptionStateCanceled, sub.State)
	})

	t.Run("fail records error", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Fail("card declined"))
		assert.Equal(t, SubscriptionStateErrored, sub.State)
		assert.Equal(t, "card declined", sub.Error)
	})

	t.Run("activate only legal from processing", func(t *testing.T) {
		sub := NewSubscription("buyer@example.com", "plan-pro", 1, "tok_visa")
		err := sub.Activate()
		require.Error(t, err)
		assert.True(t, IsStateTransitionError(err))
		assert.Equal(t, SubscriptionStateNew, sub.State)
	})
}

// TestSubscription_SyncStateFromProcessorStatus tests the reconciliation table
func TestSubscription_SyncStateFromProcessorStatus(t *testing.T) {
	activating := []string{ProcessorStatusActive, ProcessorStatusTrialing}
	for _, status := range activating {
		t.Run(status+" activates a processing subscription", func(t *testing.T) {
			sub := processingSubscription(t)
			require.NoError(t, sub.SyncStateFromProcessorStatus(status))
			assert.Equal(t, SubscriptionStateActive, sub.State)
			assert.Equal(t, status, sub.ProcessorStatus)
		})
	}

	failing := []string{ProcessorStatusIncompleteExpired, ProcessorStatusUnpaid}
	for _, status := range failing {
		t.Run(status+" fails a processing subscription", func(t *testing.T) {
			sub := processingSubscription(t)
			require.NoError(t, sub.SyncStateFromProcessorStatus(status))
			assert.Equal(t, SubscriptionStateErrored, sub.State)
			assert.Equal(t, "Subscription payment failed (status: "+status+")", sub.Error)
		})
	}

	holding := []string{ProcessorStatusIncomplete, ProcessorStatusPastDue, ProcessorStatusPaused}
	for _, status := range holding {
		t.Run(status+" keeps a processing subscription processing", func(t *testing.T) {
			sub := processingSubscription(t)
			require.NoError(t, sub.SyncStateFromProcessorStatus(status))
			assert.Equal(t, SubscriptionStateProcessing, sub.State)
			assert.Equal(t, status, sub.ProcessorStatus)
		})
	}

	t.Run("canceled cancels an active subscription", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusCanceled))
		assert.Equal(t, SubscriptionStateCanceled, sub.State)
	})

	t.Run("paused keeps an active subscription active", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusPaused))
		assert.Equal(t, SubscriptionStateActive, sub.State)
	})

	t.Run("active report is a no-op on an active subscription", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusActive))
		assert.Equal(t, SubscriptionStateActive, sub.State)
	})

	t.Run("unpaid fails an active subscription", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusUnpaid))
		assert.Equal(t, SubscriptionStateErrored, sub.State)
	})

	t.Run("unknown status records only", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.SyncStateFromProcessorStatus("some_future_status"))
		assert.Equal(t, SubscriptionStateProcessing, sub.State)
		assert.Equal(t, "some_future_status", sub.ProcessorStatus)
	})
}

// TestSubscription_StickyTerminalStates tests that no status report moves a
// terminal subscription
func TestSubscription_StickyTerminalStates(t *testing.T) {
	statuses := []string{
		ProcessorStatusActive, ProcessorStatusTrialing, ProcessorStatusCanceled,
		ProcessorStatusIncomplete, ProcessorStatusIncompleteExpired,
		ProcessorStatusPastDue, ProcessorStatusUnpaid, ProcessorStatusPaused,
	}

	t.Run("errored stays errored", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Fail("declined"))
		for _, status := range statuses {
			require.NoError(t, sub.SyncStateFromProcessorStatus(status))
			assert.Equal(t, SubscriptionStateErrored, sub.State, "status %s moved an errored subscription", status)
		}
	})

	t.Run("canceled stays canceled", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Activate())
		require.NoError(t, sub.Cancel())
		for _, status := range statuses {
			require.NoError(t, sub.SyncStateFromProcessorStatus(status))
			assert.Equal(t, SubscriptionStateCanceled, sub.State, "status %s moved a canceled subscription", status)
		}
	})

	t.Run("sync is idempotent", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusActive))
		require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusActive))
		assert.Equal(t, SubscriptionStateActive, sub.State)
	})
}

// TestSubscription_SyncWith tests the descriptive field copy
func TestSubscription_SyncWith(t *testing.T) {
	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	canceledAt := periodStart.Add(12 * time.Hour)

	t.Run("copies descriptive fields and reconciles state", func(t *testing.T) {
		sub := processingSubscription(t)

		err := sub.SyncWith(&ProcessorSubscription{
			ID:                 "sub_123",
			Status:             ProcessorStatusActive,
			Quantity:           10,
			CancelAtPeriodEnd:  true,
			Coupon:             "LAUNCH20",
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
			CanceledAt:         &canceledAt,
		})
		require.NoError(t, err)

		assert.Equal(t, SubscriptionStateActive, sub.State)
		assert.Equal(t, ProcessorStatusActive, sub.ProcessorStatus)
		assert.Equal(t, int64(10), sub.Quantity)
		assert.True(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, "LAUNCH20", sub.Coupon)
		assert.Equal(t, &periodStart, sub.CurrentPeriodStart)
		assert.Equal(t, &periodEnd, sub.CurrentPeriodEnd)
		assert.Equal(t, &canceledAt, sub.CanceledAt)
	})

	t.Run("descriptive copy still happens on terminal state", func(t *testing.T) {
		sub := processingSubscription(t)
		require.NoError(t, sub.Fail("declined"))

		err := sub.SyncWith(&ProcessorSubscription{
			Status:             ProcessorStatusActive,
			Quantity:           3,
			CurrentPeriodStart: &periodStart,
			CurrentPeriodEnd:   &periodEnd,
		})
		require.NoError(t, err)

		assert.Equal(t, SubscriptionStateErrored, sub.State)
		assert.Equal(t, int64(3), sub.Quantity)
		assert.Equal(t, &periodStart, sub.CurrentPeriodStart)
	})

	t.Run("nil record rejected", func(t *testing.T) {
		sub := processingSubscription(t)
		assert.Error(t, sub.SyncWith(nil))
	})
}

// TestSubscription_AwaitingAuthentication tests the SCA suspension predicate
func TestSubscription_AwaitingAuthentication(t *testing.T) {
	sub := processingSubscription(t)
	assert.False(t, sub.AwaitingAuthentication())

	require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusIncomplete))
	assert.True(t, sub.AwaitingAuthentication())

	require.NoError(t, sub.SyncStateFromProcessorStatus(ProcessorStatusActive))
	assert.False(t, sub.AwaitingAuthentication())
}
