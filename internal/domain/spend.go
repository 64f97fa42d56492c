package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySpendRecord accumulates a campaign's spend for one calendar day.
type DailySpendRecord struct {
	CampaignID  string          `json:"campaign_id"`
	Date        time.Time       `json:"date"`
	AmountSpent decimal.Decimal `json:"amount_spent"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SpendDate truncates t to the calendar day in loc, returned as midnight UTC
// of that day so it can be stored as a DATE.
func SpendDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
