package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// SpendCapEnforcer tracks per-campaign daily spend and enforces the daily cap.
type SpendCapEnforcer struct {
	core
}

// NewSpendCapEnforcer creates a new SpendCapEnforcer.
func NewSpendCapEnforcer(stores Stores, opts ...Option) *SpendCapEnforcer {
	return &SpendCapEnforcer{core: newCore(stores, opts)}
}

// RecordSpendInput represents input for recording daily spend. A zero Date
// means today.
type RecordSpendInput struct {
	CampaignID string
	Amount     decimal.Decimal
	Date       time.Time
}

// Today returns the current spend day in the configured time zone.
func (e *SpendCapEnforcer) Today() time.Time {
	return domain.SpendDate(e.now(), e.opts.location)
}

// RecordDailySpend adds amount to the campaign's spend for the day.
func (e *SpendCapEnforcer) RecordDailySpend(ctx context.Context, input RecordSpendInput) (*domain.DailySpendRecord, error) {
	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	date := e.Today()
	if !input.Date.IsZero() {
		date = domain.SpendDate(input.Date, e.opts.location)
	}

	var record *domain.DailySpendRecord

	err := e.execute(ctx, "record_daily_spend", input.CampaignID, func(ctx context.Context, tx Transaction) error {
		var err error
		record, err = e.record(ctx, tx, input.CampaignID, date, input.Amount, e.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// TodaySpent returns the campaign's spend for today, zero if none.
func (e *SpendCapEnforcer) TodaySpent(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	if err := domain.ValidateID("campaign", campaignID); err != nil {
		return decimal.Zero, err
	}

	return e.stores.DailySpend.AmountOn(ctx, nil, campaignID, e.Today())
}

// History returns the daily records between from and to inclusive.
func (e *SpendCapEnforcer) History(ctx context.Context, campaignID string, from, to time.Time) ([]*domain.DailySpendRecord, error) {
	if err := domain.ValidateID("campaign", campaignID); err != nil {
		return nil, err
	}

	from = domain.SpendDate(from, e.opts.location)
	to = domain.SpendDate(to, e.opts.location)

	if to.Before(from) {
		return nil, domain.ErrInvalidSchedule
	}

	return e.stores.DailySpend.ListRange(ctx, campaignID, from, to)
}

// CheckDailyCap reports whether spending amount on top of spentToday stays
// within the budget's daily cap. Budgets without a cap always pass.
func (e *SpendCapEnforcer) CheckDailyCap(budget *domain.CampaignBudget, spentToday, amount decimal.Decimal) error {
	if budget.BudgetDaily == nil {
		return nil
	}

	if spentToday.Add(amount).GreaterThan(*budget.BudgetDaily) {
		return fmt.Errorf("%w: %s spent today, cap %s", domain.ErrDailyCapExceeded, spentToday, budget.BudgetDaily)
	}

	return nil
}

func (e *SpendCapEnforcer) spentOn(ctx context.Context, tx Transaction, campaignID string, date time.Time) (decimal.Decimal, error) {
	return e.stores.DailySpend.AmountOn(ctx, tx, campaignID, date)
}

func (e *SpendCapEnforcer) record(ctx context.Context, tx Transaction, campaignID string, date time.Time, amount decimal.Decimal, now time.Time) (*domain.DailySpendRecord, error) {
	return e.stores.DailySpend.Add(ctx, tx, campaignID, date, amount, now)
}
