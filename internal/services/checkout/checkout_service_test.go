package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/internal/testutil/fixtures"
	"github.com/billfold/checkout-service/internal/testutil/mocks"
)

func newTestService() (*Service, *mocks.MockSaleRepository, *mocks.MockProcessorGateway) {
	saleRepo := new(mocks.MockSaleRepository)
	gateway := new(mocks.MockProcessorGateway)
	svc := NewService(saleRepo, gateway, mocks.NopLogger{})
	return svc, saleRepo, gateway
}

func TestCreateSale(t *testing.T) {
	t.Run("records a valid sale without touching the processor", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		saleRepo.On("Create", mock.Anything, nil, mock.Anything).Return(nil)

		sale, err := svc.CreateSale(context.Background(), serviceports.CreateSaleRequest{
			Email:        "buyer@example.com",
			Amount:       1500,
			Currency:     "usd",
			PaymentToken: "tok_visa",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, sale.GUID)
		assert.Equal(t, domain.SaleStateNew, sale.State)
		saleRepo.AssertExpectations(t)
		gateway.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
	})

	t.Run("rejects a sale with neither token nor customer", func(t *testing.T) {
		svc, saleRepo, _ := newTestService()

		_, err := svc.CreateSale(context.Background(), serviceports.CreateSaleRequest{
			Email:    "buyer@example.com",
			Amount:   1500,
			Currency: "usd",
		})

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
		saleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a negative amount", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.CreateSale(context.Background(), serviceports.CreateSaleRequest{
			Email:        "buyer@example.com",
			Amount:       -1,
			Currency:     "usd",
			PaymentToken: "tok_visa",
		})

		require.Error(t, err)
		assert.True(t, domain.IsValidationError(err))
	})
}

func TestChargeCard(t *testing.T) {
	t.Run("charges through a fresh customer and finishes the sale", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)
		gateway.On("CreateCustomer", mock.Anything, ports.CreateCustomerParams{
			Email: "buyer@example.com",
			Token: "tok_visa",
		}).Return(&domain.ProcessorCustomer{ID: "cus_1", Email: "buyer@example.com"}, nil)
		gateway.On("CreateCharge", mock.Anything, mock.MatchedBy(func(p ports.CreateChargeParams) bool {
			return p.CustomerID == "cus_1" && p.Amount == 1500 && p.Currency == "usd"
		})).Return(&domain.ProcessorCharge{
			ID:           "ch_1",
			CustomerID:   "cus_1",
			Amount:       1500,
			Currency:     "usd",
			BalanceTxnID: "txn_1",
			Fee:          74,
			FeeKnown:     true,
			Source: &domain.PaymentSource{
				Kind: domain.PaymentSourceKindCard,
				Card: &domain.SourceCard{Brand: "Visa", Last4: "4242", ExpMonth: 12, ExpYear: 2030},
			},
		}, nil)

		err := svc.ChargeCard(context.Background(), "sale-1")

		require.NoError(t, err)
		assert.Equal(t, domain.SaleStateFinished, sale.State)
		assert.Equal(t, "cus_1", sale.ProcessorCustomerID)
		assert.Equal(t, "ch_1", sale.ProcessorChargeID)
		assert.Equal(t, "txn_1", sale.ProcessorBalanceTxnID)
		assert.Equal(t, int64(74), sale.FeeAmount)
		assert.Equal(t, "Visa", sale.CardBrand)
		assert.Equal(t, "4242", sale.CardLast4)
		gateway.AssertExpectations(t)
	})

	t.Run("reuses an existing processor customer", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").WithToken("").WithCustomerID("cus_known").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)
		gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(&domain.ProcessorCharge{
			ID:       "ch_1",
			Amount:   1500,
			Currency: "usd",
			FeeKnown: true,
		}, nil)

		err := svc.ChargeCard(context.Background(), "sale-1")

		require.NoError(t, err)
		gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("resolves the fee separately when the charge omits it", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)
		gateway.On("CreateCustomer", mock.Anything, mock.Anything).
			Return(&domain.ProcessorCustomer{ID: "cus_1"}, nil)
		gateway.On("CreateCharge", mock.Anything, mock.Anything).Return(&domain.ProcessorCharge{
			ID:           "ch_1",
			BalanceTxnID: "txn_1",
			Amount:       1500,
			Currency:     "usd",
		}, nil)
		gateway.On("GetFee", mock.Anything, "txn_1").Return(int64(59), nil)

		err := svc.ChargeCard(context.Background(), "sale-1")

		require.NoError(t, err)
		assert.Equal(t, int64(59), sale.FeeAmount)
	})

	t.Run("records a decline on the sale so polling converges", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)
		gateway.On("CreateCustomer", mock.Anything, mock.Anything).
			Return(&domain.ProcessorCustomer{ID: "cus_1"}, nil)
		gateway.On("CreateCharge", mock.Anything, mock.Anything).
			Return(nil, domain.NewDomainError(domain.ErrorCodeGatewayDeclined, "Your card was declined."))

		err := svc.ChargeCard(context.Background(), "sale-1")

		require.Error(t, err)
		assert.Equal(t, domain.SaleStateErrored, sale.State)
		assert.Equal(t, "Your card was declined.", sale.Error)
	})

	t.Run("fails validation before any processor call", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").WithToken("").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)

		err := svc.ChargeCard(context.Background(), "sale-1")

		require.Error(t, err)
		assert.Equal(t, domain.SaleStateErrored, sale.State)
		gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
		gateway.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything)
	})
}

func TestProcessRefund(t *testing.T) {
	t.Run("refunds a finished sale", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").
			WithState(domain.SaleStateFinished).
			WithChargeID("ch_1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		saleRepo.On("Update", mock.Anything, nil, sale).Return(nil)
		gateway.On("CreateRefund", mock.Anything, "ch_1").Return(nil)

		result, err := svc.ProcessRefund(context.Background(), "sale-1")

		require.NoError(t, err)
		assert.Equal(t, domain.SaleStateRefunded, result.State)
		gateway.AssertExpectations(t)
	})

	t.Run("refuses to refund a sale that never finished", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)

		_, err := svc.ProcessRefund(context.Background(), "sale-1")

		require.Error(t, err)
		assert.True(t, domain.IsStateTransitionError(err))
		gateway.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
	})

	t.Run("keeps the sale finished when the processor refuses", func(t *testing.T) {
		svc, saleRepo, gateway := newTestService()
		sale := fixtures.NewSale().WithGUID("sale-1").
			WithState(domain.SaleStateFinished).
			WithChargeID("ch_1").Build()

		saleRepo.On("GetByGUID", mock.Anything, nil, "sale-1").Return(sale, nil)
		gateway.On("CreateRefund", mock.Anything, "ch_1").
			Return(domain.NewDomainError(domain.ErrorCodeGatewayError, "Charge has already been refunded."))

		_, err := svc.ProcessRefund(context.Background(), "sale-1")

		require.Error(t, err)
		assert.Equal(t, domain.SaleStateFinished, sale.State)
		saleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}
