package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billfold/checkout-service/internal/domain"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/internal/testutil/fixtures"
	"github.com/billfold/checkout-service/internal/testutil/mocks"
	"github.com/billfold/checkout-service/pkg/shutdown"
)

func newTestHandler() (*http.ServeMux, *mocks.MockSubscriptionService, *shutdown.Tracker) {
	svc := new(mocks.MockSubscriptionService)
	tracker := shutdown.NewTracker("test", time.Second, zap.NewNop())
	h := NewHandler(svc, tracker, zap.NewNop())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux, svc, tracker
}

func TestCreate(t *testing.T) {
	t.Run("accepts the subscription and starts it in the background", func(t *testing.T) {
		mux, svc, tracker := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").Build()

		svc.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req serviceports.CreateSubscriptionRequest) bool {
			return req.Email == "buyer@example.com" &&
				req.PlanID == "plan_basic" &&
				req.TaxPercent.Equal(decimal.RequireFromString("8.25"))
		})).Return(sub, nil)
		svc.On("StartSubscription", mock.Anything, "sub-1").Return(nil)

		body := `{"email":"buyer@example.com","plan_id":"plan_basic","payment_token":"tok_visa","tax_percent":"8.25"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp CreateSubscriptionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "sub-1", resp.GUID)
		assert.Equal(t, "new", resp.Status)

		require.NoError(t, tracker.Shutdown(context.Background()))
		svc.AssertCalled(t, "StartSubscription", mock.Anything, "sub-1")
	})

	t.Run("rejects a malformed tax percent", func(t *testing.T) {
		mux, svc, _ := newTestHandler()

		body := `{"email":"buyer@example.com","plan_id":"plan_basic","tax_percent":"eight"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan answers 404", func(t *testing.T) {
		mux, svc, _ := newTestHandler()

		svc.On("CreateSubscription", mock.Anything, mock.Anything).
			Return(nil, domain.ErrPlanNotFound)

		body := `{"email":"buyer@example.com","plan_id":"plan_missing","payment_token":"tok_visa"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		svc.AssertNotCalled(t, "StartSubscription", mock.Anything, mock.Anything)
	})
}

func TestStatus(t *testing.T) {
	t.Run("carries the client secret during an authentication challenge", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateProcessing).
			WithProcessorStatus(domain.ProcessorStatusIncomplete).Build()

		svc.On("GetStatus", mock.Anything, "sub-1").Return(&serviceports.SubscriptionStatus{
			Subscription: sub,
			ClientSecret: "pi_secret_123",
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/sub-1/status", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubscriptionStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "processing", resp.Status)
		assert.Equal(t, "incomplete", resp.ProcessorStatus)
		assert.Equal(t, "pi_secret_123", resp.ClientSecret)
	})

	t.Run("an errored subscription answers 400 without processor fields", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateErrored).
			WithProcessorStatus(domain.ProcessorStatusIncomplete).Build()
		sub.Error = "Your card was declined."

		svc.On("GetStatus", mock.Anything, "sub-1").Return(&serviceports.SubscriptionStatus{
			Subscription: sub,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/sub-1/status", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp SubscriptionStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Your card was declined.", resp.Error)
		assert.Empty(t, resp.ProcessorStatus)
		assert.Empty(t, resp.ClientSecret)
	})

	t.Run("active subscriptions omit the processor status", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateActive).
			WithProcessorStatus(domain.ProcessorStatusActive).Build()

		svc.On("GetStatus", mock.Anything, "sub-1").Return(&serviceports.SubscriptionStatus{
			Subscription: sub,
		}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/sub-1/status", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp SubscriptionStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "active", resp.Status)
		assert.Empty(t, resp.ProcessorStatus)
	})

	t.Run("unknown subscription answers 404 with no body", func(t *testing.T) {
		mux, svc, _ := newTestHandler()

		svc.On("GetStatus", mock.Anything, "missing").Return(nil, domain.ErrSubscriptionNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/missing/status", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestCancel(t *testing.T) {
	t.Run("passes the period end flag through", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateActive).Build()
		sub.CancelAtPeriodEnd = true

		svc.On("CancelSubscription", mock.Anything, "sub-1", true).Return(sub, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/cancel",
			strings.NewReader(`{"at_period_end":true}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty body cancels immediately", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateCanceled).Build()

		svc.On("CancelSubscription", mock.Anything, "sub-1", false).Return(sub, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/cancel", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestChangePlan(t *testing.T) {
	t.Run("requires a plan id", func(t *testing.T) {
		mux, svc, _ := newTestHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/plan",
			strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "ChangePlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns the updated subscription", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateActive).
			WithPlanID("plan_premium").Build()

		svc.On("ChangePlan", mock.Anything, "sub-1", serviceports.ChangePlanRequest{
			PlanID: "plan_premium",
		}).Return(sub, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/plan",
			strings.NewReader(`{"plan_id":"plan_premium"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.Subscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "plan_premium", resp.PlanID)
	})

	t.Run("forwards coupon, quantity and trial end", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateActive).
			WithPlanID("plan_premium").Build()

		svc.On("ChangePlan", mock.Anything, "sub-1", serviceports.ChangePlanRequest{
			PlanID:   "plan_premium",
			Coupon:   "SAVE20",
			Quantity: 3,
			TrialEnd: 1767225600,
		}).Return(sub, nil)

		body := `{"plan_id":"plan_premium","coupon":"SAVE20","quantity":3,"trial_end":1767225600}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/plan",
			strings.NewReader(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestChangeQuantity(t *testing.T) {
	t.Run("invalid quantity answers 400", func(t *testing.T) {
		mux, svc, _ := newTestHandler()

		svc.On("ChangeQuantity", mock.Anything, "sub-1", int64(0)).
			Return(nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "quantity must be at least 1"))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/quantity",
			strings.NewReader(`{"quantity":0}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateCard(t *testing.T) {
	t.Run("returns the subscription with the new card", func(t *testing.T) {
		mux, svc, _ := newTestHandler()
		sub := fixtures.NewSubscription().WithGUID("sub-1").
			WithState(domain.SubscriptionStateActive).Build()
		sub.CardBrand = "Mastercard"
		sub.CardLast4 = "5100"

		svc.On("UpdateCard", mock.Anything, "sub-1", "tok_new").Return(sub, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/card",
			strings.NewReader(`{"payment_token":"tok_new"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp domain.Subscription
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "5100", resp.CardLast4)
	})
}
