package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/billfold/checkout-service/internal/domain"
	"github.com/billfold/checkout-service/internal/domain/ports"
)

// PlanRepository implements ports.PlanRepository on PostgreSQL
type PlanRepository struct {
	db ports.DBPort
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db ports.DBPort) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) exec(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

const planColumns = `
	id, processor_plan_id, name, currency, billing_interval, setup_fee_description,
	amount, trial_days, prorate, created_at, updated_at`

// Create inserts a new plan
func (r *PlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.exec(tx).Exec(ctx, query,
		plan.ID,
		plan.ProcessorPlanID,
		plan.Name,
		plan.Currency,
		plan.Interval,
		nullText(plan.SetupFeeDescription),
		plan.Amount,
		plan.TrialDays,
		plan.Prorate,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan
func (r *PlanRepository) GetByID(ctx context.Context, tx ports.DBTX, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	var (
		plan     domain.Plan
		setupFee = nullText("")
	)
	err := r.exec(tx).QueryRow(ctx, query, id).Scan(
		&plan.ID,
		&plan.ProcessorPlanID,
		&plan.Name,
		&plan.Currency,
		&plan.Interval,
		&setupFee,
		&plan.Amount,
		&plan.TrialDays,
		&plan.Prorate,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}

	plan.SetupFeeDescription = textValue(setupFee)
	return &plan, nil
}

var _ ports.PlanRepository = (*PlanRepository)(nil)
