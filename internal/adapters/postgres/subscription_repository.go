package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
)

// SubscriptionRepository implements ports.SubscriptionRepository on PostgreSQL
type SubscriptionRepository struct {
	db ports.DBPort
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db ports.DBPort) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) exec(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const subscriptionColumns = `
	guid, plan_id, email, payment_token, coupon, owner_id, quantity, setup_fee, tax_percent,
	processor_subscription_id, processor_customer_id, processor_status,
	card_brand, card_last4, card_expiration, error, state,
	cancel_at_period_end, trial_start, trial_end,
	current_period_start, current_period_end, canceled_at,
	created_at, updated_at`

// Create inserts a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	taxPercent, err := decimalToNumeric(sub.TaxPercent)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err = r.exec(tx).Exec(ctx, query,
		sub.GUID,
		sub.PlanID,
		sub.Email,
		nullText(sub.PaymentToken),
		nullText(sub.Coupon),
		nullText(sub.OwnerID),
		sub.Quantity,
		sub.SetupFee,
		taxPercent,
		nullText(sub.ProcessorSubscriptionID),
		nullText(sub.ProcessorCustomerID),
		nullText(sub.ProcessorStatus),
		nullText(sub.CardBrand),
		nullText(sub.CardLast4),
		nullTimestamp(sub.CardExpiration),
		nullText(sub.Error),
		string(sub.State),
		sub.CancelAtPeriodEnd,
		nullTimestamp(sub.TrialStart),
		nullTimestamp(sub.TrialEnd),
		nullTimestamp(sub.CurrentPeriodStart),
		nullTimestamp(sub.CurrentPeriodEnd),
		nullTimestamp(sub.CanceledAt),
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByGUID retrieves a subscription by its public guid
func (r *SubscriptionRepository) GetByGUID(ctx context.Context, tx ports.DBTX, guid string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE guid = $1`
	return r.getOne(ctx, tx, query, guid)
}

// GetByProcessorID retrieves a subscription by its processor subscription id,
// the key webhook events carry
func (r *SubscriptionRepository) GetByProcessorID(ctx context.Context, tx ports.DBTX, processorSubscriptionID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE processor_subscription_id = $1`
	return r.getOne(ctx, tx, query, processorSubscriptionID)
}

// Update persists the mutable fields of a subscription
func (r *SubscriptionRepository) Update(ctx context.Context, tx ports.DBTX, sub *domain.Subscription) error {
	taxPercent, err := decimalToNumeric(sub.TaxPercent)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscriptions SET
			plan_id = $2,
			coupon = $3,
			quantity = $4,
			tax_percent = $5,
			processor_subscription_id = $6,
			processor_customer_id = $7,
			processor_status = $8,
			card_brand = $9,
			card_last4 = $10,
			card_expiration = $11,
			error = $12,
			state = $13,
			cancel_at_period_end = $14,
			trial_start = $15,
			trial_end = $16,
			current_period_start = $17,
			current_period_end = $18,
			canceled_at = $19,
			updated_at = $20
		WHERE guid = $1`

	tag, err := r.exec(tx).Exec(ctx, query,
		sub.GUID,
		sub.PlanID,
		nullText(sub.Coupon),
		sub.Quantity,
		taxPercent,
		nullText(sub.ProcessorSubscriptionID),
		nullText(sub.ProcessorCustomerID),
		nullText(sub.ProcessorStatus),
		nullText(sub.CardBrand),
		nullText(sub.CardLast4),
		nullTimestamp(sub.CardExpiration),
		nullText(sub.Error),
		string(sub.State),
		sub.CancelAtPeriodEnd,
		nullTimestamp(sub.TrialStart),
		nullTimestamp(sub.TrialEnd),
		nullTimestamp(sub.CurrentPeriodStart),
		nullTimestamp(sub.CurrentPeriodEnd),
		nullTimestamp(sub.CanceledAt),
		sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound.WithDetail("guid", sub.GUID)
	}
	return nil
}

// FindReusableCustomerID returns the processor customer of the owner's most
// recent subscription that got far enough to have one. Failed subscriptions
// are skipped so a bad token is not reused.
func (r *SubscriptionRepository) FindReusableCustomerID(ctx context.Context, tx ports.DBTX, ownerID string) (string, error) {
	query := `
		SELECT processor_customer_id FROM subscriptions
		WHERE owner_id = $1
		  AND processor_customer_id IS NOT NULL
		  AND state IN ('active', 'canceled')
		ORDER BY created_at DESC
		LIMIT 1`

	var customerID string
	err := r.exec(tx).QueryRow(ctx, query, ownerID).Scan(&customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find reusable customer: %w", err)
	}
	return customerID, nil
}

func (r *SubscriptionRepository) getOne(ctx context.Context, tx ports.DBTX, query string, arg interface{}) (*domain.Subscription, error) {
	row := r.exec(tx).QueryRow(ctx, query, arg)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub                domain.Subscription
		paymentToken       = nullText("")
		coupon             = nullText("")
		ownerID            = nullText("")
		taxPercent         = pgNumericNull()
		processorSubID     = nullText("")
		processorCustID    = nullText("")
		processorStatus    = nullText("")
		cardBrand          = nullText("")
		cardLast4          = nullText("")
		cardExpiration     = nullTimestamp(nil)
		subError           = nullText("")
		state              string
		trialStart         = nullTimestamp(nil)
		trialEnd           = nullTimestamp(nil)
		currentPeriodStart = nullTimestamp(nil)
		currentPeriodEnd   = nullTimestamp(nil)
		canceledAt         = nullTimestamp(nil)
	)

	err := row.Scan(
		&sub.GUID,
		&sub.PlanID,
		&sub.Email,
		&paymentToken,
		&coupon,
		&ownerID,
		&sub.Quantity,
		&sub.SetupFee,
		&taxPercent,
		&processorSubID,
		&processorCustID,
		&processorStatus,
		&cardBrand,
		&cardLast4,
		&cardExpiration,
		&subError,
		&state,
		&sub.CancelAtPeriodEnd,
		&trialStart,
		&trialEnd,
		&currentPeriodStart,
		&currentPeriodEnd,
		&canceledAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sub.PaymentToken = textValue(paymentToken)
	sub.Coupon = textValue(coupon)
	sub.OwnerID = textValue(ownerID)
	sub.ProcessorSubscriptionID = textValue(processorSubID)
	sub.ProcessorCustomerID = textValue(processorCustID)
	sub.ProcessorStatus = textValue(processorStatus)
	sub.CardBrand = textValue(cardBrand)
	sub.CardLast4 = textValue(cardLast4)
	sub.CardExpiration = timestampValue(cardExpiration)
	sub.Error = textValue(subError)
	sub.State = domain.SubscriptionState(state)
	sub.TrialStart = timestampValue(trialStart)
	sub.TrialEnd = timestampValue(trialEnd)
	sub.CurrentPeriodStart = timestampValue(currentPeriodStart)
	sub.CurrentPeriodEnd = timestampValue(currentPeriodEnd)
	sub.CanceledAt = timestampValue(canceledAt)

	if sub.TaxPercent, err = numericToDecimal(taxPercent); err != nil {
		return nil, err
	}

	return &sub, nil
}

var _ ports.SubscriptionRepository = (*SubscriptionRepository)(nil)
