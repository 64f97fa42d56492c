package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
	"github.com/iho/adledger/internal/usecase/mocks"
)

// spendDays launches c1 with total and books daily on each of days
// consecutive days, ending at the fixture clock.
func spendDays(t *testing.T, f *fixture, total string, daily string, days int, end *time.Time) {
	t.Helper()

	ctx := context.Background()
	f.openFunded(t, "u1", "10000")

	_, err := f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c1", Amount: dec(total), EndDate: end})
	require.NoError(t, err)
	f.launchExisting(t, "u1", "c1")

	for i := range days {
		if i > 0 {
			f.clock.Advance(24 * time.Hour)
		}
		_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec(daily)})
		require.NoError(t, err)
	}
}

func TestForecast_BurnRate(t *testing.T) {
	f := newFixture(t)
	spendDays(t, f, "1000", "50", 4, nil)

	// Four spend days over three elapsed days.
	forecast, err := f.forecaster.Forecast(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 3, forecast.DaysActive)
	requireDecimal(t, "200", forecast.BudgetSpent, "budget_spent")
	requireDecimal(t, "800", forecast.Remaining, "remaining")
	requireDecimal(t, "66.666667", forecast.DailyBurnRate, "daily_burn_rate")
	require.NotNil(t, forecast.EstimatedDaysRemaining)
	requireDecimal(t, "12", *forecast.EstimatedDaysRemaining, "estimated_days_remaining")
	require.NotNil(t, forecast.ProjectedExhaustion)
	assert.True(t, forecast.ProjectedExhaustion.After(f.clock.Now()))
	assert.Equal(t, 4, forecast.SampleDays)
	assert.Equal(t, domain.ConfidenceLow, forecast.Confidence)
	assert.Equal(t, domain.ScheduleRiskNone, forecast.ScheduleRisk)
	assert.False(t, forecast.WillExceedSchedule)
}

func TestForecast_Unbounded(t *testing.T) {
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	forecast, err := f.forecaster.Forecast(context.Background(), "c1")
	require.NoError(t, err)

	assert.True(t, forecast.Unbounded())
	assert.Nil(t, forecast.ProjectedExhaustion)
	assert.True(t, forecast.DailyBurnRate.IsZero())
	assert.Equal(t, domain.ConfidenceUnknown, forecast.Confidence)
}

func TestForecast_ScheduleRisk(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		daily    string
		endAfter time.Duration
		want     domain.ScheduleRisk
	}{
		{"runs out before end date", "300", "100", 10 * 24 * time.Hour, domain.ScheduleRiskExhaustEarly},
		{"budget left at end date", "10000", "10", 3 * 24 * time.Hour, domain.ScheduleRiskUnderspend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			end := f.clock.Now().Add(tt.endAfter)
			spendDays(t, f, tt.total, tt.daily, 2, &end)

			forecast, err := f.forecaster.Refresh(context.Background(), "c1")
			require.NoError(t, err)

			assert.Equal(t, tt.want, forecast.ScheduleRisk)
			assert.True(t, forecast.WillExceedSchedule)
		})
	}
}

func TestForecast_LongRunwayUnderspends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openFunded(t, "u1", "2000000")

	end := f.clock.Now().Add(30 * 24 * time.Hour)
	_, err := f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c1", Amount: dec("1000000"), EndDate: &end})
	require.NoError(t, err)
	f.launchExisting(t, "u1", "c1")

	f.clock.Advance(24 * time.Hour)
	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("1")})
	require.NoError(t, err)

	forecast, err := f.forecaster.Refresh(ctx, "c1")
	require.NoError(t, err)

	require.NotNil(t, forecast.EstimatedDaysRemaining)
	requireDecimal(t, "999999", *forecast.EstimatedDaysRemaining, "estimated_days_remaining")
	if forecast.ProjectedExhaustion != nil {
		assert.True(t, forecast.ProjectedExhaustion.After(f.clock.Now()))
	}
	assert.Equal(t, domain.ScheduleRiskUnderspend, forecast.ScheduleRisk)
	assert.True(t, forecast.WillExceedSchedule)
}

func TestForecast_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.forecaster.Forecast(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.forecaster.Forecast(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestForecast_ServesFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	f := newFixture(t)
	forecaster := usecase.NewBudgetForecaster(f.stores, usecase.ForecasterConfig{Cache: cache, CacheTTL: time.Minute})

	cached, err := json.Marshal(&domain.Forecast{CampaignID: "c1", DaysActive: 9, Confidence: domain.ConfidenceMedium})
	require.NoError(t, err)

	cache.EXPECT().Get(gomock.Any(), "forecast:c1").Return(cached, nil)

	forecast, err := forecaster.Forecast(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 9, forecast.DaysActive)
	assert.Equal(t, domain.ConfidenceMedium, forecast.Confidence)
}

func TestForecast_CacheMissComputesAndStores(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	forecaster := usecase.NewBudgetForecaster(f.stores, usecase.ForecasterConfig{Cache: cache, CacheTTL: time.Minute}, usecase.WithClock(f.clock.Now))

	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), "forecast:c1").Return(nil, usecase.ErrCacheMiss),
		cache.EXPECT().Set(gomock.Any(), "forecast:c1", gomock.Any(), time.Minute).Return(nil),
	)

	forecast, err := forecaster.Forecast(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", forecast.CampaignID)
}

func TestForecast_CacheFailuresAreIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	forecaster := usecase.NewBudgetForecaster(f.stores, usecase.ForecasterConfig{Cache: cache}, usecase.WithClock(f.clock.Now))

	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), usecase.DefaultForecastCacheTTL).Return(errors.New("connection refused"))

	_, err := forecaster.Forecast(context.Background(), "c1")
	assert.NoError(t, err)
}

func TestForecast_RefreshActive(t *testing.T) {
	f := newFixture(t)
	f.openFunded(t, "u1", "10000")

	for _, id := range []string{"a1", "a2", "a3"} {
		f.launch(t, "u1", id, "100")
	}
	f.reserve(t, "u1", "d1", "100")

	refreshed, err := f.forecaster.RefreshActive(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, refreshed)
}
