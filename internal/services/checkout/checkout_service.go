package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
)

// Service implements ports.CheckoutService
type Service struct {
	saleRepo ports.SaleRepository
	gateway  ports.ProcessorGateway
	logger   ports.Logger
}

// NewService creates a new checkout service
func NewService(
	saleRepo ports.SaleRepository,
	gateway ports.ProcessorGateway,
	logger ports.Logger,
) *Service {
	return &Service{
		saleRepo: saleRepo,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateSale validates and records a purchase intent. The processor is not
// contacted here: validation failures surface synchronously while the charge
// itself runs through ChargeCard afterwards.
func (s *Service) CreateSale(ctx context.Context, req serviceports.CreateSaleRequest) (*domain.Sale, error) {
	sale := domain.NewSale(req.Email, req.Amount, req.Currency, req.PaymentToken)
	sale.ProcessorCustomerID = req.CustomerID

	if err := sale.VerifyCharge(); err != nil {
		return nil, err
	}

	if err := s.saleRepo.Create(ctx, nil, sale); err != nil {
		s.logger.Error("create sale failed",
			ports.String("guid", sale.GUID),
			ports.Err(err))
		return nil, err
	}

	s.logger.Info("sale created",
		ports.String("guid", sale.GUID),
		ports.Int64("amount", sale.Amount),
		ports.String("currency", sale.Currency))

	return sale, nil
}

// ChargeCard executes the processor charge for a recorded sale. On any
// failure the sale is moved to errored with a buyer-facing message, so a
// polling client always converges to a final answer.
func (s *Service) ChargeCard(ctx context.Context, guid string) error {
	sale, err := s.saleRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return err
	}

	if err := sale.Process(); err != nil {
		return err
	}
	if err := s.saleRepo.Update(ctx, nil, sale); err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	if err := sale.VerifyCharge(); err != nil {
		return s.failSale(ctx, sale, err)
	}
	if err := s.charge(ctx, sale); err != nil {
		return s.failSale(ctx, sale, err)
	}

	if err := s.saleRepo.Update(ctx, nil, sale); err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	observability.RecordCharge(sale.Currency, string(sale.State), sale.Amount)
	s.logger.Info("sale charged",
		ports.String("guid", sale.GUID),
		ports.String("charge_id", sale.ProcessorChargeID),
		ports.Int64("amount", sale.Amount))

	return nil
}

func (s *Service) charge(ctx context.Context, sale *domain.Sale) error {
	if sale.ProcessorCustomerID == "" {
		customer, err := s.gateway.CreateCustomer(ctx, ports.CreateCustomerParams{
			Email: sale.Email,
			Token: sale.PaymentToken,
		})
		if err != nil {
			return err
		}
		sale.ProcessorCustomerID = customer.ID
	}

	charge, err := s.gateway.CreateCharge(ctx, ports.CreateChargeParams{
		Amount:      sale.Amount,
		Currency:    sale.Currency,
		CustomerID:  sale.ProcessorCustomerID,
		Description: fmt.Sprintf("Purchase %s", sale.GUID),
	})
	if err != nil {
		return err
	}

	sale.ProcessorChargeID = charge.ID
	sale.ProcessorBalanceTxnID = charge.BalanceTxnID
	sale.ApplyCardDetails(domain.ExtractCardDetails(charge.Source))

	if charge.FeeKnown {
		sale.FeeAmount = charge.Fee
	} else if charge.BalanceTxnID != "" {
		fee, err := s.gateway.GetFee(ctx, charge.BalanceTxnID)
		if err != nil {
			// The charge stands without the fee, so keep going
			s.logger.Warn("fee lookup failed",
				ports.String("guid", sale.GUID),
				ports.String("balance_txn", charge.BalanceTxnID),
				ports.Err(err))
		} else {
			sale.FeeAmount = fee
		}
	}

	return sale.Finish()
}

// ProcessRefund refunds a finished sale in full
func (s *Service) ProcessRefund(ctx context.Context, guid string) (*domain.Sale, error) {
	sale, err := s.saleRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}

	if !sale.State.CanTransitionTo(domain.SaleStateRefunded) {
		return nil, &domain.StateTransitionError{
			Entity: fmt.Sprintf("sale %s", sale.GUID),
			Event:  "refund",
			From:   string(sale.State),
			To:     string(domain.SaleStateRefunded),
		}
	}

	if err := s.gateway.CreateRefund(ctx, sale.ProcessorChargeID); err != nil {
		s.logger.Error("refund failed",
			ports.String("guid", sale.GUID),
			ports.String("charge_id", sale.ProcessorChargeID),
			ports.Err(err))
		return nil, err
	}

	if err := sale.Refund(); err != nil {
		return nil, err
	}
	if err := s.saleRepo.Update(ctx, nil, sale); err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}

	observability.RecordCharge(sale.Currency, string(sale.State), sale.Amount)
	s.logger.Info("sale refunded",
		ports.String("guid", sale.GUID),
		ports.String("charge_id", sale.ProcessorChargeID))

	return sale, nil
}

// GetSale retrieves a sale by its public guid
func (s *Service) GetSale(ctx context.Context, guid string) (*domain.Sale, error) {
	return s.saleRepo.GetByGUID(ctx, nil, guid)
}

// failSale records the failure on the sale and reports the original error
func (s *Service) failSale(ctx context.Context, sale *domain.Sale, cause error) error {
	if err := sale.Fail(failureMessage(cause)); err != nil {
		if !domain.IsStateTransitionError(err) {
			return err
		}
		// Already terminal; the original cause still decides the outcome
	} else {
		if err := s.saleRepo.Update(ctx, nil, sale); err != nil {
			s.logger.Error("persist sale failure state",
				ports.String("guid", sale.GUID),
				ports.Err(err))
		}
		observability.RecordCharge(sale.Currency, string(sale.State), sale.Amount)
	}

	s.logger.Warn("charge failed",
		ports.String("guid", sale.GUID),
		ports.Err(cause))

	return cause
}

// failureMessage extracts the message shown to the buyer on the errored sale.
// Processor declines carry a displayable reason; anything else gets a
// generic one so internals never leak into the storefront.
func failureMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "The payment could not be processed"
}

var _ serviceports.CheckoutService = (*Service)(nil)
