package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/adledger/internal/domain"
)

func seedAccount(t *testing.T, s *Store, userID string, balance int64) {
	t.Helper()

	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	err = NewAccountRepository(s).Create(ctx, tx, &domain.Account{
		UserID:        userID,
		Currency:      "USD",
		Balance:       decimal.NewFromInt(balance),
		BalanceOnHold: decimal.Zero,
		Version:       1,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_CommitPublishesRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "u1", 100)

	repo := NewAccountRepository(s)
	now := time.Now().UTC()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	_, err = repo.ApplyDelta(ctx, tx, "u1", domain.EntryKindHold.Delta(decimal.NewFromInt(40)), now)
	require.NoError(t, err)

	// Uncommitted changes are invisible outside the transaction.
	before, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, before.BalanceOnHold.IsZero())

	require.NoError(t, tx.Rollback(ctx))

	after, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, after.BalanceOnHold.IsZero())
	assert.Equal(t, int64(1), after.Version)

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.ApplyDelta(ctx, tx, "u1", domain.EntryKindHold.Delta(decimal.NewFromInt(40)), now)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	committed, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, committed.BalanceOnHold.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, int64(2), committed.Version)
}

func TestStore_BeginHonorsContext(t *testing.T) {
	s := NewStore()

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = s.Begin(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_FinishedTransactionRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	err = NewAccountRepository(s).Create(ctx, tx, &domain.Account{UserID: "u1"})
	assert.ErrorIs(t, err, ErrTxDone)
	assert.ErrorIs(t, tx.Commit(ctx), ErrTxDone)
	assert.NoError(t, tx.Rollback(ctx))
}

func TestAccountRepository_ApplyDeltaGuard(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "u1", 100)
	repo := NewAccountRepository(s)

	tests := []struct {
		name    string
		userID  string
		kind    domain.EntryKind
		amount  int64
		wantErr error
	}{
		{"hold within available", "u1", domain.EntryKindHold, 100, nil},
		{"hold above available", "u1", domain.EntryKindHold, 101, domain.ErrGuardRejected},
		{"release without hold", "u1", domain.EntryKindRelease, 1, domain.ErrGuardRejected},
		{"withdraw everything", "u1", domain.EntryKindWithdrawal, 100, nil},
		{"missing account", "nobody", domain.EntryKindDeposit, 1, domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := s.Begin(ctx)
			require.NoError(t, err)
			defer func() { _ = tx.Rollback(ctx) }()

			_, err = repo.ApplyDelta(ctx, tx, tt.userID, tt.kind.Delta(decimal.NewFromInt(tt.amount)), time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAccountRepository_Archive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedAccount(t, s, "u1", 100)
	repo := NewAccountRepository(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.ApplyDelta(ctx, tx, "u1", domain.EntryKindHold.Delta(decimal.NewFromInt(10)), time.Now())
	require.NoError(t, err)

	_, err = repo.Archive(ctx, tx, "u1", time.Now())
	assert.ErrorIs(t, err, domain.ErrGuardRejected)

	_, err = repo.ApplyDelta(ctx, tx, "u1", domain.EntryKindRelease.Delta(decimal.NewFromInt(10)), time.Now())
	require.NoError(t, err)

	archived, err := repo.Archive(ctx, tx, "u1", time.Now())
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	_, err = repo.ApplyDelta(ctx, tx, "u1", domain.EntryKindDeposit.Delta(decimal.NewFromInt(1)), time.Now())
	assert.ErrorIs(t, err, domain.ErrAccountArchived)

	require.NoError(t, tx.Commit(ctx))
}

func TestCampaignBudgetRepository_UpdateVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewCampaignBudgetRepository(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := repo.CreateDraft(ctx, tx, &domain.CampaignBudget{
		CampaignID:  "c1",
		UserID:      "u1",
		BudgetTotal: decimal.NewFromInt(100),
		BudgetSpent: decimal.Zero,
		Status:      domain.CampaignStatusDraft,
		Version:     1,
	})
	require.NoError(t, err)
	assert.True(t, created)

	again, err := repo.CreateDraft(ctx, tx, &domain.CampaignBudget{CampaignID: "c1"})
	require.NoError(t, err)
	assert.False(t, again)

	budget, err := repo.GetByIDForUpdate(ctx, tx, "c1")
	require.NoError(t, err)

	stale := *budget
	require.NoError(t, repo.Update(ctx, tx, budget))
	assert.Equal(t, int64(2), budget.Version)

	assert.ErrorIs(t, repo.Update(ctx, tx, &stale), domain.ErrConcurrencyConflict)

	_, err = repo.AddSpend(ctx, tx, "c1", decimal.NewFromInt(101), time.Now())
	assert.ErrorIs(t, err, domain.ErrGuardRejected)

	spent, err := repo.AddSpend(ctx, tx, "c1", decimal.NewFromInt(100), time.Now())
	require.NoError(t, err)
	assert.True(t, spent.BudgetSpent.Equal(decimal.NewFromInt(100)))
}

func TestDailySpendRepository_Additive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewDailySpendRepository(s)
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.Add(ctx, tx, "c1", day, decimal.NewFromInt(5), day)
	require.NoError(t, err)
	rec, err := repo.Add(ctx, tx, "c1", day, decimal.NewFromInt(7), day)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	assert.True(t, rec.AmountSpent.Equal(decimal.NewFromInt(12)))

	amount, err := repo.AmountOn(ctx, nil, "c1", day)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(12)))

	none, err := repo.AmountOn(ctx, nil, "c1", day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	history, err := repo.ListRange(ctx, "c1", day.AddDate(0, 0, -1), day)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestOutboxRepository_PublishCycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewOutboxRepository(s)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, &domain.OutboxEvent{ID: "e1", EventType: domain.EventTypeFundsDeposited}))
	require.NoError(t, repo.Create(ctx, tx, &domain.OutboxEvent{ID: "e2", EventType: domain.EventTypeFundsHeld}))
	require.NoError(t, tx.Commit(ctx))

	events, err := repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	published := time.Now().Add(-time.Hour)
	require.NoError(t, repo.MarkPublished(ctx, "e1", published))

	events, err = repo.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e2", events[0].ID)

	require.NoError(t, repo.DeletePublished(ctx, time.Now()))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()
	err = s.read(tx, func(st *state) error {
		assert.Len(t, st.outbox, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestIdempotencyRepository_DeleteBefore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewIdempotencyRepository(s)
	now := time.Now()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, tx, &domain.IdempotencyRecord{Scope: "spend", Key: "old", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, tx, &domain.IdempotencyRecord{Scope: "spend", Key: "new", CreatedAt: now}))
	require.NoError(t, tx.Commit(ctx))

	n, err := repo.DeleteBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	old, err := repo.Acquire(ctx, nil, "spend", "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	kept, err := repo.Acquire(ctx, nil, "spend", "new")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
