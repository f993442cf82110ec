package domain

import "time"

// Plan is the billing template a subscription references. Plans are created
// ahead of time and read-mostly: status sync never touches them, only an
// explicit plan change does.
type Plan struct {
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	ID                  string    `json:"id"`
	ProcessorPlanID     string    `json:"processor_plan_id"`
	Name                string    `json:"name"`
	Currency            string    `json:"currency"`
	Interval            string    `json:"interval"`
	SetupFeeDescription string    `json:"setup_fee_description"`
	Amount              int64     `json:"amount"`
	TrialDays           int       `json:"trial_days"`
	Prorate             bool      `json:"prorate"`
}

// IsPaid reports whether subscribing to the plan moves money
func (p *Plan) IsPaid() bool {
	return p.Amount > 0
}

// HasTrial reports whether the plan starts with a trial period
func (p *Plan) HasTrial() bool {
	return p.TrialDays > 0
}

// SetupFeeLabel returns the invoice line description for a setup fee
func (p *Plan) SetupFeeLabel() string {
	if p.SetupFeeDescription != "" {
		return p.SetupFeeDescription
	}
	return "Setup Fee"
}
