package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/billfold/checkout-service/internal/domain"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
)

// MockCheckoutService mocks serviceports.CheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateSale(ctx context.Context, req serviceports.CreateSaleRequest) (*domain.Sale, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *MockCheckoutService) ChargeCard(ctx context.Context, guid string) error {
	args := m.Called(ctx, guid)
	return args.Error(0)
}

func (m *MockCheckoutService) ProcessRefund(ctx context.Context, guid string) (*domain.Sale, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *MockCheckoutService) GetSale(ctx context.Context, guid string) (*domain.Sale, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

// MockSubscriptionService mocks serviceports.SubscriptionService
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) CreateSubscription(ctx context.Context, req serviceports.CreateSubscriptionRequest) (*domain.Subscription, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) StartSubscription(ctx context.Context, guid string) error {
	args := m.Called(ctx, guid)
	return args.Error(0)
}

func (m *MockSubscriptionService) CancelSubscription(ctx context.Context, guid string, atPeriodEnd bool) (*domain.Subscription, error) {
	args := m.Called(ctx, guid, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ChangePlan(ctx context.Context, guid string, req serviceports.ChangePlanRequest) (*domain.Subscription, error) {
	args := m.Called(ctx, guid, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ChangeQuantity(ctx context.Context, guid string, quantity int64) (*domain.Subscription, error) {
	args := m.Called(ctx, guid, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) UpdateCard(ctx context.Context, guid, paymentToken string) (*domain.Subscription, error) {
	args := m.Called(ctx, guid, paymentToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetStatus(ctx context.Context, guid string) (*serviceports.SubscriptionStatus, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serviceports.SubscriptionStatus), args.Error(1)
}

// MockWebhookService mocks serviceports.WebhookService
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleInvoicePaid(ctx context.Context, event serviceports.InvoicePaidEvent) (serviceports.WebhookOutcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(serviceports.WebhookOutcome), args.Error(1)
}

func (m *MockWebhookService) HandleSubscriptionChange(ctx context.Context, ps *domain.ProcessorSubscription) (serviceports.WebhookOutcome, error) {
	args := m.Called(ctx, ps)
	return args.Get(0).(serviceports.WebhookOutcome), args.Error(1)
}
