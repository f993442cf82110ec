package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billfold/checkout-service/pkg/timeutil"
)

// Subscription is a recurring billing relationship to a Plan. Local lifecycle
// state is decoupled from the processor-reported status string: local state
// moves only through the transition table, while ProcessorStatus is recorded
// verbatim on every sync.
type Subscription struct {
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
	TrialStart              *time.Time        `json:"trial_start"`
	TrialEnd                *time.Time        `json:"trial_end"`
	CurrentPeriodStart      *time.Time        `json:"current_period_start"`
	CurrentPeriodEnd        *time.Time        `json:"current_period_end"`
	CanceledAt              *time.Time        `json:"canceled_at"`
	CardExpiration          *time.Time        `json:"card_expiration"`
	TaxPercent              decimal.Decimal   `json:"tax_percent"`
	GUID                    string            `json:"guid"`
	PlanID                  string            `json:"plan_id"`
	Email                   string            `json:"email"`
	Coupon                  string            `json:"coupon"`
	PaymentToken            string            `json:"-"`
	OwnerID                 string            `json:"owner_id"`
	ProcessorSubscriptionID string            `json:"processor_subscription_id"`
	ProcessorCustomerID     string            `json:"processor_customer_id"`
	ProcessorStatus         string            `json:"processor_status"`
	CardBrand               string            `json:"card_brand"`
	CardLast4               string            `json:"card_last4"`
	Error                   string            `json:"error"`
	State                   SubscriptionState `json:"state"`
	Quantity                int64             `json:"quantity"`
	SetupFee                int64             `json:"setup_fee"`
	CancelAtPeriodEnd       bool              `json:"cancel_at_period_end"`
}

// NewSubscription builds a subscription in the initial state with a fresh guid
func NewSubscription(email, planID string, quantity int64, paymentToken string) *Subscription {
	now := timeutil.Now()
	if quantity < 1 {
		quantity = 1
	}
	return &Subscription{
		GUID:         uuid.New().String(),
		Email:        email,
		PlanID:       planID,
		Quantity:     quantity,
		PaymentToken: paymentToken,
		State:        SubscriptionStateNew,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// VerifyCharge checks the invariants that must hold before any processor call.
// A paid plan needs a payment token unless an existing processor customer can
// be reused, either directly or through the subscription's owner.
func (s *Subscription) VerifyCharge(plan *Plan) error {
	if plan == nil {
		return NewDomainError(ErrorCodeValidationMissingField, "plan is required")
	}
	if s.Email == "" {
		return NewDomainError(ErrorCodeValidationMissingField, "email is required")
	}
	if s.Quantity < 1 {
		return NewDomainError(ErrorCodeValidationFailed, "quantity must be at least 1")
	}
	if s.PaymentToken != "" || s.ProcessorCustomerID != "" || s.OwnerID != "" {
		return nil
	}
	if plan.IsPaid() {
		return ErrTokenRequired
	}
	return nil
}

// Process moves the subscription into processing ahead of the create call
func (s *Subscription) Process() error {
	return s.transition("process", SubscriptionStateProcessing)
}

// Activate marks the subscription as live; only legal from processing
func (s *Subscription) Activate() error {
	return s.transition("activate", SubscriptionStateActive)
}

// Fail records the failure message and moves the subscription to errored
func (s *Subscription) Fail(msg string) error {
	if err := s.transition("fail", SubscriptionStateErrored); err != nil {
		return err
	}
	s.Error = msg
	return nil
}

// Cancel ends the subscription immediately. Legal from active and from
// processing, the latter covering cancellation while authentication is still
// pending.
func (s *Subscription) Cancel() error {
	if err := s.transition("cancel", SubscriptionStateCanceled); err != nil {
		return err
	}
	if s.CanceledAt == nil {
		now := timeutil.Now()
		s.CanceledAt = &now
	}
	return nil
}

// ApplyCardDetails copies the normalized card summary onto the subscription
func (s *Subscription) ApplyCardDetails(cd *CardDetails) {
	if cd == nil {
		return
	}
	s.CardBrand = cd.Brand
	s.CardLast4 = cd.Last4
	exp := cd.Expiration()
	s.CardExpiration = &exp
}

// syncAction is the local reaction to a processor-reported status
type syncAction int

const (
	syncRecordOnly syncAction = iota
	syncActivate
	syncCancel
	syncFail
)

// statusSyncTable maps (current local state, processor status) to the local
// action. The lookup is deliberately keyed on both: a paused report keeps an
// active subscription active and a processing one processing, so collapsing
// the table to status alone would regress active subscriptions on transient
// pause signals. Missing states (the terminal ones) fall through to
// record-only, which is the sticky-terminal rule.
var statusSyncTable = map[SubscriptionState]map[string]syncAction{
	SubscriptionStateProcessing: {
		ProcessorStatusActive:            syncActivate,
		ProcessorStatusTrialing:          syncActivate,
		ProcessorStatusCanceled:          syncCancel,
		ProcessorStatusIncompleteExpired: syncFail,
		ProcessorStatusUnpaid:            syncFail,
	},
	SubscriptionStateActive: {
		ProcessorStatusCanceled:          syncCancel,
		ProcessorStatusIncompleteExpired: syncFail,
		ProcessorStatusUnpaid:            syncFail,
	},
}

// SyncStateFromProcessorStatus folds a processor-reported status string into
// local state. The mapping is idempotent: applying the same status twice
// produces the same entity state, and terminal local states are never moved.
func (s *Subscription) SyncStateFromProcessorStatus(status string) error {
	s.ProcessorStatus = status

	if s.State.IsTerminal() {
		return nil
	}

	switch statusSyncTable[s.State][status] {
	case syncActivate:
		return s.Activate()
	case syncCancel:
		return s.Cancel()
	case syncFail:
		return s.Fail(fmt.Sprintf("Subscription payment failed (status: %s)", status))
	default:
		return nil
	}
}

// SyncWith copies the descriptive fields from a processor subscription record
// and then reconciles state from its status. The descriptive copy happens on
// every sync regardless of the state outcome: quantity, deferred cancellation,
// coupon, period and trial bounds, and the cancellation timestamp describe the
// processor's view, not local lifecycle state.
func (s *Subscription) SyncWith(ps *ProcessorSubscription) error {
	if ps == nil {
		return NewDomainError(ErrorCodeValidationMissingField, "processor subscription is required")
	}

	if ps.Quantity > 0 {
		s.Quantity = ps.Quantity
	}
	s.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
	if ps.Coupon != "" {
		s.Coupon = ps.Coupon
	}
	s.CurrentPeriodStart = ps.CurrentPeriodStart
	s.CurrentPeriodEnd = ps.CurrentPeriodEnd
	s.TrialStart = ps.TrialStart
	s.TrialEnd = ps.TrialEnd
	if ps.CanceledAt != nil {
		s.CanceledAt = ps.CanceledAt
	}
	s.UpdatedAt = timeutil.Now()

	return s.SyncStateFromProcessorStatus(ps.Status)
}

// AwaitingAuthentication reports whether the subscription is suspended on a
// card authentication challenge: still processing locally while the processor
// reports incomplete.
func (s *Subscription) AwaitingAuthentication() bool {
	return s.State == SubscriptionStateProcessing && s.ProcessorStatus == ProcessorStatusIncomplete
}

func (s *Subscription) transition(event string, to SubscriptionState) error {
	if !s.State.CanTransitionTo(to) {
		return &StateTransitionError{
			Entity: fmt.Sprintf("subscription %s", s.GUID),
			Event:  event,
			From:   string(s.State),
			To:     string(to),
		}
	}
	s.State = to
	s.UpdatedAt = timeutil.Now()
	return nil
}
