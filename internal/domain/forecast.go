package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ForecastConfidence string

const (
	ConfidenceUnknown ForecastConfidence = "unknown"
	ConfidenceLow     ForecastConfidence = "low"
	ConfidenceMedium  ForecastConfidence = "medium"
	ConfidenceHigh    ForecastConfidence = "high"
)

type ScheduleRisk string

const (
	ScheduleRiskNone         ScheduleRisk = "none"
	ScheduleRiskExhaustEarly ScheduleRisk = "exhausts_early"
	ScheduleRiskUnderspend   ScheduleRisk = "underspend"
)

// Forecast is an advisory projection of a campaign's budget runway.
// EstimatedDaysRemaining and ProjectedExhaustion are nil when the burn rate is
// zero and the runway is unbounded.
type Forecast struct {
	CampaignID             string             `json:"campaign_id"`
	Status                 CampaignStatus     `json:"status"`
	BudgetTotal            decimal.Decimal    `json:"budget_total"`
	BudgetSpent            decimal.Decimal    `json:"budget_spent"`
	Remaining              decimal.Decimal    `json:"remaining"`
	DaysActive             int                `json:"days_active"`
	DailyBurnRate          decimal.Decimal    `json:"daily_burn_rate"`
	EstimatedDaysRemaining *decimal.Decimal   `json:"estimated_days_remaining,omitempty"`
	ProjectedExhaustion    *time.Time         `json:"projected_exhaustion,omitempty"`
	EndDate                *time.Time         `json:"end_date,omitempty"`
	WillExceedSchedule     bool               `json:"will_exceed_schedule"`
	ScheduleRisk           ScheduleRisk       `json:"schedule_risk"`
	SampleDays             int                `json:"sample_days"`
	Confidence             ForecastConfidence `json:"confidence"`
	GeneratedAt            time.Time          `json:"generated_at"`
}

// Unbounded reports whether the campaign never runs out at its current pace.
func (f *Forecast) Unbounded() bool {
	return f.EstimatedDaysRemaining == nil
}
