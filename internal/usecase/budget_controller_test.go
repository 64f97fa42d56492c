package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/adledger/internal/adapter/repository/memory"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// Reserving 300 of 1000 leaves 700 available.
func TestReserveBudget_HoldsAmount(t *testing.T) {
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	budget := f.reserve(t, "u1", "c1", "300")
	assert.Equal(t, domain.CampaignStatusDraft, budget.Status)
	requireDecimal(t, "300", budget.BudgetTotal, "budget_total")
	requireDecimal(t, "0", budget.BudgetSpent, "budget_spent")

	account := f.account(t, "u1")
	requireDecimal(t, "1000", account.Balance, "balance")
	requireDecimal(t, "300", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "700", account.Available(), "available")
}

func TestReserveBudget_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.openFunded(t, "u2", "1000")

	_, err := f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c1", Amount: dec("1001")})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = f.budgets.GetBudget(ctx, "c1")
	require.ErrorIs(t, err, domain.ErrCampaignNotFound, "failed reservation must not leave a draft behind")

	f.reserve(t, "u1", "c1", "300")

	// Re-reserving a draft moves only the difference.
	f.reserve(t, "u1", "c1", "500")
	requireDecimal(t, "500", f.account(t, "u1").BalanceOnHold, "hold after increase")
	f.reserve(t, "u1", "c1", "200")
	requireDecimal(t, "200", f.account(t, "u1").BalanceOnHold, "hold after decrease")

	_, err = f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u2", CampaignID: "c1", Amount: dec("10")})
	require.ErrorIs(t, err, domain.ErrCampaignOwnerMismatch)

	_, err = f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c2", Amount: dec("10"), Currency: "EUR"})
	require.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	_, err = f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c3", Amount: dec("10"), StartDate: &start, EndDate: &end})
	require.ErrorIs(t, err, domain.ErrInvalidSchedule)

	f.transition(t, "c1", domain.ActionSubmit)
	_, err = f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c1", Amount: dec("10")})
	require.ErrorIs(t, err, domain.ErrBudgetNotReservable)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// Spending 50 of a 300 budget moves it from the hold to spent.
func TestProcessSpend_ConvertsHold(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	result, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("50"), Reason: "impressions"})
	require.NoError(t, err)
	requireDecimal(t, "50", result.Budget.BudgetSpent, "budget_spent")
	requireDecimal(t, "50", result.SpentToday, "spent_today")

	account := f.account(t, "u1")
	requireDecimal(t, "950", account.Balance, "balance")
	requireDecimal(t, "250", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "50", account.TotalSpent, "total_spent")

	today, err := f.caps.TodaySpent(ctx, "c1")
	require.NoError(t, err)
	requireDecimal(t, "50", today, "today")
}

// A spend past the total budget changes nothing.
func TestProcessSpend_BudgetExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("50")})
	require.NoError(t, err)

	before, beforeBudget := f.account(t, "u1"), f.budget(t, "c1")

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("260")})
	require.ErrorIs(t, err, domain.ErrBudgetExceeded)

	assert.Equal(t, before, f.account(t, "u1"))
	assert.Equal(t, beforeBudget, f.budget(t, "c1"))

	today, err := f.caps.TodaySpent(ctx, "c1")
	require.NoError(t, err)
	requireDecimal(t, "50", today, "today")
}

func TestProcessSpend_DailyCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	daily := dec("60")
	_, err := f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", DailyBudget: &daily})
	require.NoError(t, err)

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("40")})
	require.NoError(t, err)

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("21")})
	require.ErrorIs(t, err, domain.ErrDailyCapExceeded)
	requireDecimal(t, "40", f.budget(t, "c1").BudgetSpent, "budget_spent after rejection")

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("20")})
	require.NoError(t, err)

	// A new day resets the cap.
	f.clock.Advance(24 * time.Hour)
	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("60")})
	require.NoError(t, err)

	history, err := f.caps.History(ctx, "c1", f.clock.Now().AddDate(0, 0, -1), f.clock.Now())
	require.NoError(t, err)
	require.Len(t, history, 2)
	requireDecimal(t, "60", history[0].AmountSpent, "day one")
	requireDecimal(t, "60", history[1].AmountSpent, "day two")
}

func TestProcessSpend_TotalCheckedBeforeDailyCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "100")

	daily := dec("10")
	_, err := f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", DailyBudget: &daily})
	require.NoError(t, err)

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("101")})
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
}

func TestProcessSpend_StatusGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	f.reserve(t, "u1", "draft", "100")
	_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "draft", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	f.launch(t, "u1", "paused", "100")
	f.transition(t, "paused", domain.ActionPause)
	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "paused", Amount: dec("1")})
	assert.NoError(t, err, "late accruals are booked while paused")

	f.transition(t, "paused", domain.ActionComplete)
	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "paused", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrSpendNotAllowed)

	_, err = f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "missing", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProcessSpend_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	input := usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("25"), Reason: "batch-7", IdempotencyKey: "batch-7"}

	first, err := f.budgets.ProcessSpend(ctx, input)
	require.NoError(t, err)

	for range 3 {
		replay, err := f.budgets.ProcessSpend(ctx, input)
		require.NoError(t, err)
		requireDecimal(t, first.Budget.BudgetSpent.String(), replay.Budget.BudgetSpent, "replayed budget_spent")
	}

	requireDecimal(t, "25", f.budget(t, "c1").BudgetSpent, "budget_spent")
	requireDecimal(t, "25", f.account(t, "u1").TotalSpent, "total_spent")

	today, err := f.caps.TodaySpent(ctx, "c1")
	require.NoError(t, err)
	requireDecimal(t, "25", today, "today")
}

func TestProcessSpend_ConcurrentEventsAreExact(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("10")})
			if err != nil && !errors.Is(err, domain.ErrBudgetExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	budget := f.budget(t, "c1")
	requireDecimal(t, "300", budget.BudgetSpent, "budget_spent")

	account := f.account(t, "u1")
	requireDecimal(t, "0", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "700", account.Balance, "balance")

	today, err := f.caps.TodaySpent(ctx, "c1")
	require.NoError(t, err)
	requireDecimal(t, "300", today, "today")
}

type failingOutbox struct {
	*memory.OutboxRepository
	failOn string
}

func (o *failingOutbox) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if event.EventType == o.failOn {
		return errors.New("outbox unavailable")
	}
	return o.OutboxRepository.Create(ctx, tx, event)
}

func TestProcessSpend_RollsBackOnLateFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stores := store.Stores(&sequenceIDs{})
	stores.Outbox = &failingOutbox{OutboxRepository: memory.NewOutboxRepository(store), failOn: domain.EventTypeBudgetSpent}

	f := newFixtureWithStores(t, store, stores)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("50")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process_spend c1")

	account := f.account(t, "u1")
	requireDecimal(t, "1000", account.Balance, "balance")
	requireDecimal(t, "300", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "0", f.budget(t, "c1").BudgetSpent, "budget_spent")

	today, err := f.caps.TodaySpent(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, today.IsZero())
}

func TestAdjustBudget(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, f *fixture)
		newAmount string
		wantErr   error
		wantHold  string
		wantTotal string
	}{
		{
			name:      "increase holds the delta",
			newAmount: "450",
			wantHold:  "450",
			wantTotal: "450",
		},
		{
			name:      "decrease releases the delta",
			newAmount: "120",
			wantHold:  "120",
			wantTotal: "120",
		},
		{
			name:      "increase beyond available",
			newAmount: "1001",
			wantErr:   domain.ErrInsufficientFunds,
			wantHold:  "300",
			wantTotal: "300",
		},
		{
			name: "paused campaign can shrink to spent",
			setup: func(t *testing.T, f *fixture) {
				f.launchExisting(t, "u1", "c1")
				_, err := f.budgets.ProcessSpend(context.Background(), usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("50")})
				require.NoError(t, err)
				f.transition(t, "c1", domain.ActionPause)
			},
			newAmount: "50",
			wantHold:  "0",
			wantTotal: "50",
		},
		{
			// Lowering the budget below what was spent is rejected.
			name: "below spent",
			setup: func(t *testing.T, f *fixture) {
				f.launchExisting(t, "u1", "c1")
				_, err := f.budgets.ProcessSpend(context.Background(), usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("50")})
				require.NoError(t, err)
				f.transition(t, "c1", domain.ActionPause)
			},
			newAmount: "40",
			wantErr:   domain.ErrValidation,
			wantHold:  "250",
			wantTotal: "300",
		},
		{
			name: "active campaign",
			setup: func(t *testing.T, f *fixture) {
				f.launchExisting(t, "u1", "c1")
			},
			newAmount: "400",
			wantErr:   domain.ErrValidation,
			wantHold:  "300",
			wantTotal: "300",
		},
		{
			name: "archived campaign",
			setup: func(t *testing.T, f *fixture) {
				f.transition(t, "c1", domain.ActionArchive)
			},
			newAmount: "400",
			wantErr:   domain.ErrInvalidState,
			wantHold:  "0",
			wantTotal: "300",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.openFunded(t, "u1", "1000")
			f.reserve(t, "u1", "c1", "300")

			if tt.setup != nil {
				tt.setup(t, f)
			}

			_, err := f.budgets.AdjustBudget(ctx, usecase.AdjustBudgetInput{UserID: "u1", CampaignID: "c1", NewAmount: dec(tt.newAmount)})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			requireDecimal(t, tt.wantHold, f.account(t, "u1").BalanceOnHold, "balance_on_hold")
			requireDecimal(t, tt.wantTotal, f.budget(t, "c1").BudgetTotal, "budget_total")
		})
	}
}

// launchExisting drives an already reserved draft to active.
func (f *fixture) launchExisting(t *testing.T, userID, campaignID string) {
	t.Helper()

	_, err := f.budgets.UpdateReadiness(context.Background(), usecase.UpdateReadinessInput{
		CampaignID:          campaignID,
		Approval:            domain.ApprovalApproved,
		CreativeCount:       2,
		TargetingConfigured: true,
	})
	require.NoError(t, err)

	f.transition(t, campaignID, domain.ActionSubmit)
	f.transition(t, campaignID, domain.ActionLaunch)
}

// Settling 300 with 120 spent releases 180, and only once.
func TestSettle_ReleasesRemainderOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")
	f.launch(t, "u1", "c1", "300")

	_, err := f.budgets.ProcessSpend(ctx, usecase.ProcessSpendInput{CampaignID: "c1", Amount: dec("120")})
	require.NoError(t, err)

	_, err = f.budgets.Settle(ctx, "u1", "c1")
	require.ErrorIs(t, err, domain.ErrSettleNotAllowed)

	completed := f.transition(t, "c1", domain.ActionComplete)
	requireDecimal(t, "180", completed.Released, "released on completion")

	again, err := f.budgets.Settle(ctx, "u1", "c1")
	require.NoError(t, err)
	requireDecimal(t, "0", again.Released, "second settle")

	account := f.account(t, "u1")
	requireDecimal(t, "0", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "880", account.Balance, "balance")
	assert.NotNil(t, f.budget(t, "c1").SettledAt)
}

func TestReserveThenSettle_RoundTrip(t *testing.T) {
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	before := f.account(t, "u1").Available()

	f.reserve(t, "u1", "c1", "300")
	archived := f.transition(t, "c1", domain.ActionArchive)
	requireDecimal(t, "300", archived.Released, "released")

	requireDecimal(t, before.String(), f.account(t, "u1").Available(), "available")
}

func TestUpdateTerms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	_, err := f.budgets.ReserveBudget(ctx, usecase.ReserveBudgetInput{UserID: "u1", CampaignID: "c1", Amount: dec("300"), StartDate: &start, EndDate: &end})
	require.NoError(t, err)

	newStart := start.AddDate(0, 0, 3)
	budget, err := f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", StartDate: &newStart})
	require.NoError(t, err)
	assert.True(t, budget.StartDate.Equal(newStart))

	f.launchExisting(t, "u1", "c1")

	_, err = f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", StartDate: &start})
	assert.ErrorIs(t, err, domain.ErrBudgetLockedWhileActive)

	_, err = f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", Currency: "EUR"})
	assert.ErrorIs(t, err, domain.ErrBudgetLockedWhileActive)

	// Unchanged start date and currency are accepted while active.
	later := end.AddDate(0, 0, 7)
	daily := dec("25")
	budget, err = f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{
		UserID:      "u1",
		CampaignID:  "c1",
		StartDate:   &newStart,
		Currency:    "usd",
		EndDate:     &later,
		DailyBudget: &daily,
	})
	require.NoError(t, err)
	assert.True(t, budget.EndDate.Equal(later))
	requireDecimal(t, "25", *budget.BudgetDaily, "budget_daily")

	budget, err = f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", ClearDailyBudget: true})
	require.NoError(t, err)
	assert.Nil(t, budget.BudgetDaily)

	early := newStart.AddDate(0, 0, -1)
	_, err = f.budgets.UpdateTerms(ctx, usecase.UpdateTermsInput{UserID: "u1", CampaignID: "c1", EndDate: &early})
	assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
}

func TestUpdateReadiness_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.budgets.UpdateReadiness(ctx, usecase.UpdateReadinessInput{CampaignID: "c1", Approval: "maybe"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.budgets.UpdateReadiness(ctx, usecase.UpdateReadinessInput{CampaignID: "c1", Approval: domain.ApprovalApproved, CreativeCount: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.budgets.UpdateReadiness(ctx, usecase.UpdateReadinessInput{CampaignID: "c1", Approval: domain.ApprovalApproved})
	assert.ErrorIs(t, err, domain.ErrCampaignNotFound)
}
