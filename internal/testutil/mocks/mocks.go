// Package mocks provides shared mock implementations for testing.
package mocks

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/mock"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
)

// MockDBPort mocks the database port. WithTransaction runs the callback
// with a nil transaction so repositories under test receive the same
// nil-means-pool convention production code uses.
type MockDBPort struct {
	mock.Mock
}

func (m *MockDBPort) GetDB() *pgxpool.Pool {
	return nil
}

func (m *MockDBPort) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

// MockSaleRepository mocks ports.SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) Create(ctx context.Context, tx ports.DBTX, sale *domain.Sale) error {
	args := m.Called(ctx, tx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) GetByGUID(ctx context.Context, tx ports.DBTX, guid string) (*domain.Sale, error) {
	args := m.Called(ctx, tx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *MockSaleRepository) GetByChargeID(ctx context.Context, tx ports.DBTX, chargeID string) (*domain.Sale, error) {
	args := m.Called(ctx, tx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Sale), args.Error(1)
}

func (m *MockSaleRepository) Update(ctx context.Context, tx ports.DBTX, sale *domain.Sale) error {
	args := m.Called(ctx, tx, sale)
	return args.Error(0)
}

// MockSubscriptionRepository mocks ports.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) GetByGUID(ctx context.Context, tx ports.DBTX, guid string) (*domain.Subscription, error) {
	args := m.Called(ctx, tx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByProcessorID(ctx context.Context, tx ports.DBTX, processorSubscriptionID string) (*domain.Subscription, error) {
	args := m.Called(ctx, tx, processorSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	args := m.Called(ctx, tx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) FindReusableCustomerID(ctx context.Context, tx ports.DBTX, ownerID string) (string, error) {
	args := m.Called(ctx, tx, ownerID)
	return args.String(0), args.Error(1)
}

// MockPlanRepository mocks ports.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	args := m.Called(ctx, tx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Plan, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

// MockProcessorGateway mocks ports.ProcessorGateway
type MockProcessorGateway struct {
	mock.Mock
}

func (m *MockProcessorGateway) CreateCustomer(ctx context.Context, params ports.CreateCustomerParams) (*domain.ProcessorCustomer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorCustomer), args.Error(1)
}

func (m *MockProcessorGateway) GetCustomer(ctx context.Context, customerID string) (*domain.ProcessorCustomer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorCustomer), args.Error(1)
}

func (m *MockProcessorGateway) UpdateCustomerSource(ctx context.Context, customerID, token string) (*domain.ProcessorCustomer, error) {
	args := m.Called(ctx, customerID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorCustomer), args.Error(1)
}

func (m *MockProcessorGateway) CreateCharge(ctx context.Context, params ports.CreateChargeParams) (*domain.ProcessorCharge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorCharge), args.Error(1)
}

func (m *MockProcessorGateway) GetCharge(ctx context.Context, chargeID string) (*domain.ProcessorCharge, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorCharge), args.Error(1)
}

func (m *MockProcessorGateway) GetFee(ctx context.Context, balanceTxnID string) (int64, error) {
	args := m.Called(ctx, balanceTxnID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProcessorGateway) CreateRefund(ctx context.Context, chargeID string) error {
	args := m.Called(ctx, chargeID)
	return args.Error(0)
}

func (m *MockProcessorGateway) CreateSubscription(ctx context.Context, params ports.CreateSubscriptionParams) (*domain.ProcessorSubscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorSubscription), args.Error(1)
}

func (m *MockProcessorGateway) GetSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorSubscription), args.Error(1)
}

func (m *MockProcessorGateway) UpdateSubscription(ctx context.Context, subscriptionID string, params ports.UpdateSubscriptionParams) (*domain.ProcessorSubscription, error) {
	args := m.Called(ctx, subscriptionID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorSubscription), args.Error(1)
}

func (m *MockProcessorGateway) CancelSubscription(ctx context.Context, subscriptionID string) (*domain.ProcessorSubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProcessorSubscription), args.Error(1)
}

func (m *MockProcessorGateway) GetAuthenticationSecret(ctx context.Context, subscriptionID string) (string, error) {
	args := m.Called(ctx, subscriptionID)
	return args.String(0), args.Error(1)
}

func (m *MockProcessorGateway) CreateInvoiceItem(ctx context.Context, params ports.CreateInvoiceItemParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// NopLogger satisfies ports.Logger and discards everything
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...ports.Field)  {}
func (NopLogger) Error(msg string, fields ...ports.Field) {}
func (NopLogger) Warn(msg string, fields ...ports.Field)  {}
func (NopLogger) Debug(msg string, fields ...ports.Field) {}
