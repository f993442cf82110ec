package webhook

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
)

// Service implements ports.WebhookService
type Service struct {
	db       ports.DBPort
	saleRepo ports.SaleRepository
	subRepo  ports.SubscriptionRepository
	gateway  ports.ProcessorGateway
	logger   ports.Logger
}

// NewService creates a new webhook service
func NewService(
	db ports.DBPort,
	saleRepo ports.SaleRepository,
	subRepo ports.SubscriptionRepository,
	gateway ports.ProcessorGateway,
	logger ports.Logger,
) *Service {
	return &Service{
		db:       db,
		saleRepo: saleRepo,
		subRepo:  subRepo,
		gateway:  gateway,
		logger:   logger,
	}
}

// HandleInvoicePaid records a recurring payment as a finished sale attached
// to its subscription. Events for unknown subscriptions and zero-charge
// invoices (trials, full discounts) are ignored. The charge id is the
// idempotency key: a replayed event finds the existing sale and stops.
func (s *Service) HandleInvoicePaid(ctx context.Context, event serviceports.InvoicePaidEvent) (serviceports.WebhookOutcome, error) {
	if event.ProcessorChargeID == "" {
		return serviceports.WebhookIgnored, nil
	}

	sub, err := s.subRepo.GetByProcessorID(ctx, nil, event.ProcessorSubscriptionID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			s.logger.Info("invoice for unknown subscription ignored",
				ports.String("processor_subscription_id", event.ProcessorSubscriptionID))
			return serviceports.WebhookIgnored, nil
		}
		return "", err
	}

	// Card details and the fee come from the charge itself
	charge, err := s.gateway.GetCharge(ctx, event.ProcessorChargeID)
	if err != nil {
		return "", err
	}

	sale := domain.NewSale(sub.Email, event.Amount, event.Currency, "")
	sale.ProcessorCustomerID = sub.ProcessorCustomerID
	sale.ProcessorChargeID = charge.ID
	sale.ProcessorBalanceTxnID = charge.BalanceTxnID
	sale.SubscriptionGUID = sub.GUID
	sale.ApplyCardDetails(domain.ExtractCardDetails(charge.Source))
	if charge.FeeKnown {
		sale.FeeAmount = charge.Fee
	}
	if err := sale.Process(); err != nil {
		return "", err
	}
	if err := sale.Finish(); err != nil {
		return "", err
	}

	outcome := serviceports.WebhookHandled
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, getErr := s.saleRepo.GetByChargeID(ctx, tx, charge.ID)
		if getErr == nil {
			outcome = serviceports.WebhookDuplicate
			return nil
		}
		if !domain.IsNotFoundError(getErr) {
			return getErr
		}
		if createErr := s.saleRepo.Create(ctx, tx, sale); createErr != nil {
			return fmt.Errorf("create sale from invoice: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if outcome == serviceports.WebhookDuplicate {
		s.logger.Info("duplicate invoice event",
			ports.String("charge_id", charge.ID))
		return outcome, nil
	}

	observability.RecordCharge(sale.Currency, string(sale.State), sale.Amount)
	s.logger.Info("invoice payment recorded",
		ports.String("sale_guid", sale.GUID),
		ports.String("subscription_guid", sub.GUID),
		ports.String("charge_id", charge.ID),
		ports.Int64("amount", sale.Amount))

	return outcome, nil
}

// HandleSubscriptionChange reconciles local state from a processor
// subscription snapshot. Unknown subscriptions are ignored: the processor
// account may carry subscriptions this service never created.
func (s *Service) HandleSubscriptionChange(ctx context.Context, ps *domain.ProcessorSubscription) (serviceports.WebhookOutcome, error) {
	if ps == nil || ps.ID == "" {
		return serviceports.WebhookIgnored, nil
	}

	sub, err := s.subRepo.GetByProcessorID(ctx, nil, ps.ID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return serviceports.WebhookIgnored, nil
		}
		return "", err
	}

	before := sub.State
	if err := sub.SyncWith(ps); err != nil {
		return "", err
	}

	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return "", fmt.Errorf("update subscription: %w", err)
	}

	s.logger.Info("subscription reconciled from event",
		ports.String("guid", sub.GUID),
		ports.String("processor_status", ps.Status),
		ports.String("state_before", string(before)),
		ports.String("state_after", string(sub.State)))

	return serviceports.WebhookHandled, nil
}

var _ serviceports.WebhookService = (*Service)(nil)
