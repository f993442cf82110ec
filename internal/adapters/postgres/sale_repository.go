package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
)

// SaleRepository implements ports.SaleRepository on PostgreSQL
type SaleRepository struct {
	db ports.DBPort
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db ports.DBPort) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) exec(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const saleColumns = `
	guid, email, currency, payment_token, processor_customer_id, processor_charge_id,
	processor_balance_txn_id, card_brand, card_last4, card_expiration,
	error, subscription_guid, state, amount, fee_amount, created_at, updated_at`

// Create inserts a new sale
func (r *SaleRepository) Create(ctx context.Context, tx ports.DBTX, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.exec(tx).Exec(ctx, query,
		sale.GUID,
		sale.Email,
		sale.Currency,
		nullText(sale.PaymentToken),
		nullText(sale.ProcessorCustomerID),
		nullText(sale.ProcessorChargeID),
		nullText(sale.ProcessorBalanceTxnID),
		nullText(sale.CardBrand),
		nullText(sale.CardLast4),
		nullTimestamp(sale.CardExpiration),
		nullText(sale.Error),
		nullText(sale.SubscriptionGUID),
		string(sale.State),
		sale.Amount,
		sale.FeeAmount,
		sale.CreatedAt,
		sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// GetByGUID retrieves a sale by its public guid
func (r *SaleRepository) GetByGUID(ctx context.Context, tx ports.DBTX, guid string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE guid = $1`
	return r.getOne(ctx, tx, query, guid)
}

// GetByChargeID retrieves a sale by its processor charge id
func (r *SaleRepository) GetByChargeID(ctx context.Context, tx ports.DBTX, chargeID string) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE processor_charge_id = $1`
	return r.getOne(ctx, tx, query, chargeID)
}

// Update persists the mutable fields of a sale
func (r *SaleRepository) Update(ctx context.Context, tx ports.DBTX, sale *domain.Sale) error {
	query := `
		UPDATE sales SET
			processor_customer_id = $2,
			processor_charge_id = $3,
			processor_balance_txn_id = $4,
			card_brand = $5,
			card_last4 = $6,
			card_expiration = $7,
			error = $8,
			state = $9,
			fee_amount = $10,
			updated_at = $11
		WHERE guid = $1`

	tag, err := r.exec(tx).Exec(ctx, query,
		sale.GUID,
		nullText(sale.ProcessorCustomerID),
		nullText(sale.ProcessorChargeID),
		nullText(sale.ProcessorBalanceTxnID),
		nullText(sale.CardBrand),
		nullText(sale.CardLast4),
		nullTimestamp(sale.CardExpiration),
		nullText(sale.Error),
		string(sale.State),
		sale.FeeAmount,
		sale.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSaleNotFound.WithDetail("guid", sale.GUID)
	}
	return nil
}

func (r *SaleRepository) getOne(ctx context.Context, tx ports.DBTX, query string, arg interface{}) (*domain.Sale, error) {
	row := r.exec(tx).QueryRow(ctx, query, arg)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		sale            domain.Sale
		paymentToken    = nullText("")
		customerID      = nullText("")
		chargeID        = nullText("")
		balanceTxnID    = nullText("")
		cardBrand       = nullText("")
		cardLast4       = nullText("")
		cardExpiration  = nullTimestamp(nil)
		saleError       = nullText("")
		subscriptionRef = nullText("")
		state           string
	)

	err := row.Scan(
		&sale.GUID,
		&sale.Email,
		&sale.Currency,
		&paymentToken,
		&customerID,
		&chargeID,
		&balanceTxnID,
		&cardBrand,
		&cardLast4,
		&cardExpiration,
		&saleError,
		&subscriptionRef,
		&state,
		&sale.Amount,
		&sale.FeeAmount,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sale.PaymentToken = textValue(paymentToken)
	sale.ProcessorCustomerID = textValue(customerID)
	sale.ProcessorChargeID = textValue(chargeID)
	sale.ProcessorBalanceTxnID = textValue(balanceTxnID)
	sale.CardBrand = textValue(cardBrand)
	sale.CardLast4 = textValue(cardLast4)
	sale.CardExpiration = timestampValue(cardExpiration)
	sale.Error = textValue(saleError)
	sale.SubscriptionGUID = textValue(subscriptionRef)
	sale.State = domain.SaleState(state)

	return &sale, nil
}

var _ ports.SaleRepository = (*SaleRepository)(nil)
