// Package fixtures provides fluent builders for test entities.
package fixtures

import (
	"time"

	"github.com/billfold/checkout-service/internal/domain"
)

// PlanBuilder provides a fluent API for building test plans.
type PlanBuilder struct {
	plan *domain.Plan
}

// NewPlan creates a plan builder with sensible defaults.
func NewPlan() *PlanBuilder {
	now := time.Now().UTC()
	return &PlanBuilder{
		plan: &domain.Plan{
			ID:              "plan_basic",
			ProcessorPlanID: "price_basic_monthly",
			Name:            "Basic",
			Currency:        "usd",
			Interval:        "month",
			Amount:          999,
			Prorate:         true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *PlanBuilder) WithID(id string) *PlanBuilder {
	b.plan.ID = id
	return b
}

func (b *PlanBuilder) WithProcessorPlanID(id string) *PlanBuilder {
	b.plan.ProcessorPlanID = id
	return b
}

func (b *PlanBuilder) WithAmount(amount int64) *PlanBuilder {
	b.plan.Amount = amount
	return b
}

func (b *PlanBuilder) WithTrialDays(days int) *PlanBuilder {
	b.plan.TrialDays = days
	return b
}

func (b *PlanBuilder) WithProrate(prorate bool) *PlanBuilder {
	b.plan.Prorate = prorate
	return b
}

func (b *PlanBuilder) WithSetupFeeDescription(desc string) *PlanBuilder {
	b.plan.SetupFeeDescription = desc
	return b
}

func (b *PlanBuilder) Build() *domain.Plan {
	return b.plan
}
