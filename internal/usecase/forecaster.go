package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

const (
	hoursPerDay = 24

	// maxForecastHorizonDays bounds projected exhaustion dates to 100 years.
	maxForecastHorizonDays = 36500
)

// BudgetForecaster projects campaign budget runways. It never mutates state.
type BudgetForecaster struct {
	core
	cache      Cache
	cacheTTL   time.Duration
	minSamples int
}

// ForecasterConfig configures a BudgetForecaster. A nil Cache disables caching.
type ForecasterConfig struct {
	Cache      Cache
	CacheTTL   time.Duration
	MinSamples int
}

// NewBudgetForecaster creates a new BudgetForecaster.
func NewBudgetForecaster(stores Stores, cfg ForecasterConfig, opts ...Option) *BudgetForecaster {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultForecastCacheTTL
	}

	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultForecastMinSamples
	}

	return &BudgetForecaster{
		core:       newCore(stores, opts),
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		minSamples: cfg.MinSamples,
	}
}

// Forecast returns the campaign's forecast, from cache when fresh.
func (f *BudgetForecaster) Forecast(ctx context.Context, campaignID string) (*domain.Forecast, error) {
	if err := domain.ValidateID("campaign", campaignID); err != nil {
		return nil, err
	}

	if cached := f.cached(ctx, campaignID); cached != nil {
		f.count("cache")
		return cached, nil
	}

	return f.Refresh(ctx, campaignID)
}

// Refresh recomputes the forecast and replaces any cached copy.
func (f *BudgetForecaster) Refresh(ctx context.Context, campaignID string) (*domain.Forecast, error) {
	budget, err := f.stores.Budgets.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	now := f.now()

	var history []*domain.DailySpendRecord
	if start := activeSince(budget); start != nil {
		history, err = f.stores.DailySpend.ListRange(ctx, campaignID, domain.SpendDate(*start, f.opts.location), domain.SpendDate(now, f.opts.location))
		if err != nil {
			return nil, err
		}
	}

	forecast := f.compute(budget, history, now)
	f.count("computed")
	f.store(ctx, forecast)

	return forecast, nil
}

// RefreshActive recomputes forecasts for every active campaign and returns
// how many were refreshed.
func (f *BudgetForecaster) RefreshActive(ctx context.Context, batchSize int) (int, error) {
	limit, _ := domain.ValidatePagination(batchSize, 0)

	refreshed := 0
	for offset := 0; ; offset += limit {
		budgets, err := f.stores.Budgets.ListByStatus(ctx, domain.CampaignStatusActive, limit, offset)
		if err != nil {
			return refreshed, err
		}

		for _, b := range budgets {
			if ctx.Err() != nil {
				return refreshed, ctx.Err()
			}

			if _, err := f.Refresh(ctx, b.CampaignID); err != nil {
				f.opts.logger.Warn().Err(err).Str("campaign_id", b.CampaignID).Msg("forecast refresh failed")
				continue
			}
			refreshed++
		}

		if len(budgets) < limit {
			return refreshed, nil
		}
	}
}

func (f *BudgetForecaster) compute(budget *domain.CampaignBudget, history []*domain.DailySpendRecord, now time.Time) *domain.Forecast {
	remaining := budget.Remaining()
	days := daysActive(budget, now)
	burn := budget.BudgetSpent.Div(decimal.NewFromInt(int64(max(1, days))))

	forecast := &domain.Forecast{
		CampaignID:    budget.CampaignID,
		Status:        budget.Status,
		BudgetTotal:   budget.BudgetTotal,
		BudgetSpent:   budget.BudgetSpent,
		Remaining:     remaining,
		DaysActive:    days,
		DailyBurnRate: burn.Round(domain.MaxAmountScale),
		EndDate:       budget.EndDate,
		ScheduleRisk:  domain.ScheduleRiskNone,
		GeneratedAt:   now,
	}

	if burn.IsPositive() {
		runway := remaining.Div(burn)
		estimated := runway.Round(2)
		forecast.EstimatedDaysRemaining = &estimated

		// Past the horizon no exhaustion date is projected; time.Duration
		// cannot hold much more.
		if runway.LessThanOrEqual(decimal.NewFromInt(maxForecastHorizonDays)) {
			hours := runway.Mul(decimal.NewFromInt(hoursPerDay)).InexactFloat64()
			exhaustion := now.Add(time.Duration(math.Round(hours * float64(time.Hour))))
			forecast.ProjectedExhaustion = &exhaustion
		}
	}

	if budget.EndDate != nil && budget.EndDate.After(now) && remaining.IsPositive() {
		switch {
		case forecast.ProjectedExhaustion == nil:
			forecast.ScheduleRisk = domain.ScheduleRiskUnderspend
		case forecast.ProjectedExhaustion.Before(*budget.EndDate):
			forecast.ScheduleRisk = domain.ScheduleRiskExhaustEarly
		case forecast.ProjectedExhaustion.After(*budget.EndDate):
			forecast.ScheduleRisk = domain.ScheduleRiskUnderspend
		}
	}
	forecast.WillExceedSchedule = forecast.ScheduleRisk != domain.ScheduleRiskNone

	for _, r := range history {
		if r.AmountSpent.IsPositive() {
			forecast.SampleDays++
		}
	}
	forecast.Confidence = f.confidence(forecast.SampleDays)

	return forecast
}

func (f *BudgetForecaster) confidence(samples int) domain.ForecastConfidence {
	switch {
	case samples < f.minSamples:
		return domain.ConfidenceUnknown
	case samples < 7:
		return domain.ConfidenceLow
	case samples < 14:
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceHigh
}

func (f *BudgetForecaster) cached(ctx context.Context, campaignID string) *domain.Forecast {
	if f.cache == nil {
		return nil
	}

	data, err := f.cache.Get(ctx, forecastKey(campaignID))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			f.opts.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("forecast cache read failed")
		}
		return nil
	}

	var forecast domain.Forecast
	if err := json.Unmarshal(data, &forecast); err != nil {
		f.opts.logger.Warn().Err(err).Str("campaign_id", campaignID).Msg("forecast cache entry corrupt")
		return nil
	}

	return &forecast
}

func (f *BudgetForecaster) store(ctx context.Context, forecast *domain.Forecast) {
	if f.cache == nil {
		return
	}

	data, err := json.Marshal(forecast)
	if err != nil {
		return
	}

	if err := f.cache.Set(ctx, forecastKey(forecast.CampaignID), data, f.cacheTTL); err != nil {
		f.opts.logger.Warn().Err(err).Str("campaign_id", forecast.CampaignID).Msg("forecast cache write failed")
	}
}

func (f *BudgetForecaster) count(source string) {
	if f.opts.metrics != nil {
		f.opts.metrics.Forecasts.WithLabelValues(source).Inc()
	}
}

func forecastKey(campaignID string) string {
	return "forecast:" + campaignID
}

// activeSince returns when the campaign started delivering, falling back to
// its scheduled start.
func activeSince(b *domain.CampaignBudget) *time.Time {
	if b.ActivatedAt != nil {
		return b.ActivatedAt
	}
	return b.StartDate
}

// daysActive counts started days of delivery, zero if never launched.
func daysActive(b *domain.CampaignBudget, now time.Time) int {
	start := activeSince(b)
	if start == nil || now.Before(*start) {
		return 0
	}

	end := now
	if b.SettledAt != nil && b.SettledAt.Before(now) {
		end = *b.SettledAt
	}

	return int(math.Ceil(end.Sub(*start).Hours() / hoursPerDay))
}
