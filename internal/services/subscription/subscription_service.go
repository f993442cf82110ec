package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
	serviceports "github.com/billfold/checkout-service/internal/services/ports"
	"github.com/billfold/checkout-service/pkg/observability"
	"github.com/billfold/checkout-service/pkg/timeutil"
)

// Service implements ports.SubscriptionService
type Service struct {
	subRepo  ports.SubscriptionRepository
	planRepo ports.PlanRepository
	gateway  ports.ProcessorGateway
	logger   ports.Logger
}

// NewService creates a new subscription service
func NewService(
	subRepo ports.SubscriptionRepository,
	planRepo ports.PlanRepository,
	gateway ports.ProcessorGateway,
	logger ports.Logger,
) *Service {
	return &Service{
		subRepo:  subRepo,
		planRepo: planRepo,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateSubscription validates and records a subscription intent. The
// processor is not contacted here: validation failures surface synchronously
// while StartSubscription runs the processor calls afterwards.
func (s *Service) CreateSubscription(ctx context.Context, req serviceports.CreateSubscriptionRequest) (*domain.Subscription, error) {
	plan, err := s.planRepo.GetByID(ctx, nil, req.PlanID)
	if err != nil {
		return nil, err
	}

	sub := domain.NewSubscription(req.Email, plan.ID, req.Quantity, req.PaymentToken)
	sub.Coupon = req.Coupon
	sub.OwnerID = req.OwnerID
	sub.SetupFee = req.SetupFee
	sub.TaxPercent = req.TaxPercent

	if err := sub.VerifyCharge(plan); err != nil {
		return nil, err
	}

	if err := s.subRepo.Create(ctx, nil, sub); err != nil {
		s.logger.Error("create subscription failed",
			ports.String("guid", sub.GUID),
			ports.String("plan_id", plan.ID),
			ports.Err(err))
		return nil, err
	}

	s.logger.Info("subscription created",
		ports.String("guid", sub.GUID),
		ports.String("plan_id", plan.ID),
		ports.Int64("quantity", sub.Quantity))

	return sub, nil
}

// StartSubscription executes the processor side of a recorded subscription:
// customer resolution, optional setup fee, and the subscription create call.
// On failure the subscription moves to errored with a buyer-facing message.
// When the processor reports incomplete the local record stays processing,
// which a polling client reads as an authentication challenge.
func (s *Service) StartSubscription(ctx context.Context, guid string) error {
	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return err
	}
	plan, err := s.planRepo.GetByID(ctx, nil, sub.PlanID)
	if err != nil {
		return err
	}

	if err := sub.Process(); err != nil {
		return err
	}
	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	if err := sub.VerifyCharge(plan); err != nil {
		return s.failSubscription(ctx, sub, "start", err)
	}
	if err := s.start(ctx, sub, plan); err != nil {
		return s.failSubscription(ctx, sub, "start", err)
	}

	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	observability.RecordSubscriptionEvent("start", "success")
	s.logger.Info("subscription started",
		ports.String("guid", sub.GUID),
		ports.String("processor_subscription_id", sub.ProcessorSubscriptionID),
		ports.String("state", string(sub.State)),
		ports.String("processor_status", sub.ProcessorStatus))

	return nil
}

func (s *Service) start(ctx context.Context, sub *domain.Subscription, plan *domain.Plan) error {
	customer, err := s.resolveCustomer(ctx, sub)
	if err != nil {
		return err
	}
	sub.ProcessorCustomerID = customer.ID
	sub.ApplyCardDetails(domain.ExtractCardDetails(customer.DefaultSource))

	if sub.SetupFee > 0 {
		err := s.gateway.CreateInvoiceItem(ctx, ports.CreateInvoiceItemParams{
			CustomerID:  customer.ID,
			Amount:      sub.SetupFee,
			Currency:    plan.Currency,
			Description: plan.SetupFeeLabel(),
		})
		if err != nil {
			return err
		}
	}

	params := ports.CreateSubscriptionParams{
		CustomerID: customer.ID,
		PlanID:     plan.ProcessorPlanID,
		Coupon:     sub.Coupon,
		Quantity:   sub.Quantity,
	}
	if !sub.TaxPercent.IsZero() {
		params.TaxPercent = sub.TaxPercent.String()
	}
	if plan.HasTrial() {
		params.TrialEnd = timeutil.Now().AddDate(0, 0, plan.TrialDays).Unix()
	}

	ps, err := s.gateway.CreateSubscription(ctx, params)
	if err != nil {
		return err
	}
	sub.ProcessorSubscriptionID = ps.ID

	return sub.SyncWith(ps)
}

// resolveCustomer finds or creates the processor customer the subscription
// bills against. An owner's existing customer is preferred so a card on file
// keeps working across repeat subscriptions; a submitted token becomes the
// default source only when the reused customer has none.
func (s *Service) resolveCustomer(ctx context.Context, sub *domain.Subscription) (*domain.ProcessorCustomer, error) {
	customerID := sub.ProcessorCustomerID
	if customerID == "" && sub.OwnerID != "" {
		reusable, err := s.subRepo.FindReusableCustomerID(ctx, nil, sub.OwnerID)
		if err != nil {
			return nil, err
		}
		customerID = reusable
	}

	if customerID != "" {
		customer, err := s.gateway.GetCustomer(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if customer.Deleted {
			return nil, domain.ErrCustomerNotFound.WithDetail("customer_id", customerID)
		}
		if sub.PaymentToken != "" && !customer.HasDefaultSource() {
			return s.gateway.UpdateCustomerSource(ctx, customerID, sub.PaymentToken)
		}
		return customer, nil
	}

	return s.gateway.CreateCustomer(ctx, ports.CreateCustomerParams{
		Email: sub.Email,
		Token: sub.PaymentToken,
	})
}

// CancelSubscription ends the subscription. With atPeriodEnd set the
// processor keeps billing until the period boundary and the local record
// stays active with the deferred-cancellation flag; otherwise the processor
// cancels now and the sync moves local state to canceled.
func (s *Service) CancelSubscription(ctx context.Context, guid string, atPeriodEnd bool) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}

	var ps *domain.ProcessorSubscription
	if atPeriodEnd {
		flag := true
		ps, err = s.gateway.UpdateSubscription(ctx, sub.ProcessorSubscriptionID, ports.UpdateSubscriptionParams{
			CancelAtPeriodEnd: &flag,
		})
	} else {
		ps, err = s.gateway.CancelSubscription(ctx, sub.ProcessorSubscriptionID)
	}
	if err != nil {
		observability.RecordSubscriptionEvent("cancel", "failed")
		return nil, err
	}

	if err := s.syncAndSave(ctx, sub, ps); err != nil {
		return nil, err
	}

	observability.RecordSubscriptionEvent("cancel", "success")
	s.logger.Info("subscription canceled",
		ports.String("guid", sub.GUID),
		ports.Bool("at_period_end", atPeriodEnd),
		ports.String("state", string(sub.State)))

	return sub, nil
}

// ChangePlan moves the subscription to another plan. Proration follows the
// new plan's setting but is disabled when a coupon accompanies the change,
// since the processor would prorate the undiscounted amount. A pending
// deferred cancellation is cleared: changing plans is an explicit decision
// to stay. A coupon or trial end supplied with the change is forwarded to
// the processor verbatim.
func (s *Service) ChangePlan(ctx context.Context, guid string, req serviceports.ChangePlanRequest) (*domain.Subscription, error) {
	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}
	plan, err := s.planRepo.GetByID(ctx, nil, req.PlanID)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}
	prorate := plan.Prorate && req.Coupon == ""
	keep := false
	params := ports.UpdateSubscriptionParams{
		PlanID:            &plan.ProcessorPlanID,
		Quantity:          &quantity,
		Prorate:           &prorate,
		CancelAtPeriodEnd: &keep,
	}
	if req.Coupon != "" {
		params.Coupon = &req.Coupon
	}
	if req.TrialEnd > 0 {
		params.TrialEnd = &req.TrialEnd
	}
	ps, err := s.gateway.UpdateSubscription(ctx, sub.ProcessorSubscriptionID, params)
	if err != nil {
		observability.RecordSubscriptionEvent("plan_change", "failed")
		return nil, err
	}

	sub.PlanID = plan.ID
	if err := s.syncAndSave(ctx, sub, ps); err != nil {
		return nil, err
	}

	observability.RecordSubscriptionEvent("plan_change", "success")
	s.logger.Info("subscription plan changed",
		ports.String("guid", sub.GUID),
		ports.String("plan_id", plan.ID),
		ports.Bool("prorate", prorate))

	return sub, nil
}

// ChangeQuantity adjusts the billed quantity
func (s *Service) ChangeQuantity(ctx context.Context, guid string, quantity int64) (*domain.Subscription, error) {
	if quantity < 1 {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "quantity must be at least 1")
	}

	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}
	plan, err := s.planRepo.GetByID(ctx, nil, sub.PlanID)
	if err != nil {
		return nil, err
	}

	prorate := plan.Prorate && sub.Coupon == ""
	ps, err := s.gateway.UpdateSubscription(ctx, sub.ProcessorSubscriptionID, ports.UpdateSubscriptionParams{
		Quantity: &quantity,
		Prorate:  &prorate,
	})
	if err != nil {
		observability.RecordSubscriptionEvent("quantity_change", "failed")
		return nil, err
	}

	if err := s.syncAndSave(ctx, sub, ps); err != nil {
		return nil, err
	}

	observability.RecordSubscriptionEvent("quantity_change", "success")
	s.logger.Info("subscription quantity changed",
		ports.String("guid", sub.GUID),
		ports.Int64("quantity", quantity))

	return sub, nil
}

// UpdateCard swaps the payment source behind the subscription's customer.
// A previous payment failure message is cleared: the new card is a fresh
// attempt and the old error no longer describes the subscription.
func (s *Service) UpdateCard(ctx context.Context, guid, paymentToken string) (*domain.Subscription, error) {
	if paymentToken == "" {
		return nil, domain.ErrTokenRequired
	}

	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}
	if sub.ProcessorCustomerID == "" {
		return nil, domain.ErrCustomerNotFound.WithDetail("guid", sub.GUID)
	}

	customer, err := s.gateway.UpdateCustomerSource(ctx, sub.ProcessorCustomerID, paymentToken)
	if err != nil {
		observability.RecordSubscriptionEvent("card_update", "failed")
		return nil, err
	}

	sub.ApplyCardDetails(domain.ExtractCardDetails(customer.DefaultSource))
	sub.Error = ""
	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	observability.RecordSubscriptionEvent("card_update", "success")
	s.logger.Info("subscription card updated",
		ports.String("guid", sub.GUID),
		ports.String("card_last4", sub.CardLast4))

	return sub, nil
}

// GetStatus returns the poll view of a subscription. While an authentication
// challenge is pending the processor is asked for the client secret the
// browser needs to complete it.
func (s *Service) GetStatus(ctx context.Context, guid string) (*serviceports.SubscriptionStatus, error) {
	sub, err := s.subRepo.GetByGUID(ctx, nil, guid)
	if err != nil {
		return nil, err
	}

	status := &serviceports.SubscriptionStatus{Subscription: sub}
	if sub.AwaitingAuthentication() {
		secret, err := s.gateway.GetAuthenticationSecret(ctx, sub.ProcessorSubscriptionID)
		if err != nil {
			// The poll answer is still useful without the secret
			s.logger.Warn("authentication secret lookup failed",
				ports.String("guid", sub.GUID),
				ports.Err(err))
		} else {
			status.ClientSecret = secret
		}
	}

	return status, nil
}

func (s *Service) syncAndSave(ctx context.Context, sub *domain.Subscription, ps *domain.ProcessorSubscription) error {
	if err := sub.SyncWith(ps); err != nil {
		return err
	}
	if err := s.subRepo.Update(ctx, nil, sub); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// failSubscription records the failure on the subscription and reports the
// original error
func (s *Service) failSubscription(ctx context.Context, sub *domain.Subscription, event string, cause error) error {
	if err := sub.Fail(failureMessage(cause)); err != nil {
		if !domain.IsStateTransitionError(err) {
			return err
		}
	} else {
		if err := s.subRepo.Update(ctx, nil, sub); err != nil {
			s.logger.Error("persist subscription failure state",
				ports.String("guid", sub.GUID),
				ports.Err(err))
		}
	}

	observability.RecordSubscriptionEvent(event, "failed")
	s.logger.Warn("subscription operation failed",
		ports.String("guid", sub.GUID),
		ports.String("event", event),
		ports.Err(cause))

	return cause
}

func failureMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "The subscription could not be started"
}

var _ serviceports.SubscriptionService = (*Service)(nil)
