package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/adledger/internal/adapter/repository/memory"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

type sequenceIDs struct {
	n atomic.Int64
}

func (s *sequenceIDs) Generate() string {
	return fmt.Sprintf("id-%06d", s.n.Add(1))
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store      *memory.Store
	stores     usecase.Stores
	clock      *testClock
	ledger     *usecase.AccountLedger
	caps       *usecase.SpendCapEnforcer
	budgets    *usecase.CampaignBudgetController
	gate       *usecase.CampaignLifecycleGate
	forecaster *usecase.BudgetForecaster
	recon      *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	return newFixtureWithStores(t, store, store.Stores(&sequenceIDs{}))
}

func newFixtureWithStores(t *testing.T, store *memory.Store, stores usecase.Stores, extra ...usecase.Option) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	opts := append([]usecase.Option{usecase.WithClock(clock.Now)}, extra...)

	ledger := usecase.NewAccountLedger(stores, decimal.RequireFromString(usecase.DefaultMinimumWithdrawal), opts...)
	caps := usecase.NewSpendCapEnforcer(stores, opts...)
	budgets := usecase.NewCampaignBudgetController(stores, ledger, caps, opts...)

	return &fixture{
		store:      store,
		stores:     stores,
		clock:      clock,
		ledger:     ledger,
		caps:       caps,
		budgets:    budgets,
		gate:       usecase.NewCampaignLifecycleGate(stores, budgets, opts...),
		forecaster: usecase.NewBudgetForecaster(stores, usecase.ForecasterConfig{}, opts...),
		recon:      usecase.NewReconciliationUseCase(stores, opts...),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// openFunded opens a USD account and deposits amount into it.
func (f *fixture) openFunded(t *testing.T, userID, amount string) {
	t.Helper()

	ctx := context.Background()

	_, err := f.ledger.OpenAccount(ctx, usecase.OpenAccountInput{UserID: userID, Currency: "USD"})
	require.NoError(t, err)

	if dec(amount).IsPositive() {
		_, err = f.ledger.Deposit(ctx, usecase.MutationInput{UserID: userID, Amount: dec(amount), Reason: "card"})
		require.NoError(t, err)
	}
}

func (f *fixture) account(t *testing.T, userID string) *domain.Account {
	t.Helper()

	account, err := f.ledger.GetAccount(context.Background(), userID)
	require.NoError(t, err)

	return account
}

func (f *fixture) budget(t *testing.T, campaignID string) *domain.CampaignBudget {
	t.Helper()

	budget, err := f.budgets.GetBudget(context.Background(), campaignID)
	require.NoError(t, err)

	return budget
}

// reserve creates a draft campaign budget of amount.
func (f *fixture) reserve(t *testing.T, userID, campaignID, amount string) *domain.CampaignBudget {
	t.Helper()

	budget, err := f.budgets.ReserveBudget(context.Background(), usecase.ReserveBudgetInput{
		UserID:     userID,
		CampaignID: campaignID,
		Amount:     dec(amount),
	})
	require.NoError(t, err)

	return budget
}

// launch reserves a budget and drives the campaign to active.
func (f *fixture) launch(t *testing.T, userID, campaignID, amount string) {
	t.Helper()

	ctx := context.Background()
	f.reserve(t, userID, campaignID, amount)

	_, err := f.budgets.UpdateReadiness(ctx, usecase.UpdateReadinessInput{
		CampaignID:          campaignID,
		Approval:            domain.ApprovalApproved,
		CreativeCount:       1,
		TargetingConfigured: true,
	})
	require.NoError(t, err)

	for _, action := range []domain.LifecycleAction{domain.ActionSubmit, domain.ActionLaunch} {
		_, err := f.gate.Transition(ctx, usecase.TransitionInput{CampaignID: campaignID, UserID: userID, Action: action})
		require.NoError(t, err)
	}
}

func (f *fixture) transition(t *testing.T, campaignID string, action domain.LifecycleAction) *usecase.TransitionResult {
	t.Helper()

	result, err := f.gate.Transition(context.Background(), usecase.TransitionInput{CampaignID: campaignID, Action: action})
	require.NoError(t, err)

	return result
}

func assertInvariant(t *testing.T, a *domain.Account) {
	t.Helper()

	require.False(t, a.BalanceOnHold.IsNegative(), "hold must not be negative: %s", a.BalanceOnHold)
	require.False(t, a.Available().IsNegative(), "hold %s exceeds balance %s", a.BalanceOnHold, a.Balance)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()

	require.Truef(t, dec(want).Equal(got), "%s: expected %s, got %s", field, want, got)
}
