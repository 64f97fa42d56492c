package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
	"github.com/iho/adledger/internal/usecase/mocks"
)

func TestAccountLedger_OpenAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account, err := f.ledger.OpenAccount(ctx, usecase.OpenAccountInput{UserID: "u1", Currency: "usd"})
	require.NoError(t, err)
	assert.Equal(t, "USD", account.Currency)
	assert.True(t, account.Balance.IsZero())

	_, err = f.ledger.OpenAccount(ctx, usecase.OpenAccountInput{UserID: "u1", Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	_, err = f.ledger.OpenAccount(ctx, usecase.OpenAccountInput{UserID: "u2", Currency: "XXX"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.ledger.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountLedger_Primitives(t *testing.T) {
	tests := []struct {
		name        string
		op          func(*usecase.AccountLedger, context.Context, usecase.MutationInput) (*domain.Account, error)
		amount      string
		wantErr     error
		wantBalance string
		wantHold    string
	}{
		{"hold within available", (*usecase.AccountLedger).Hold, "700", nil, "1000", "900"},
		{"hold above available", (*usecase.AccountLedger).Hold, "801", domain.ErrInsufficientFunds, "1000", "200"},
		{"release held", (*usecase.AccountLedger).Release, "200", nil, "1000", "0"},
		{"release above held", (*usecase.AccountLedger).Release, "201", domain.ErrOverRelease, "1000", "200"},
		{"convert held", (*usecase.AccountLedger).ConvertHeldToSpent, "150", nil, "850", "50"},
		{"convert above held", (*usecase.AccountLedger).ConvertHeldToSpent, "250", domain.ErrOverRelease, "1000", "200"},
		{"deposit", (*usecase.AccountLedger).Deposit, "5", nil, "1005", "200"},
		{"withdraw available", (*usecase.AccountLedger).Withdraw, "800", nil, "200", "200"},
		{"withdraw above available", (*usecase.AccountLedger).Withdraw, "801", domain.ErrInsufficientFunds, "1000", "200"},
		{"withdraw below minimum", (*usecase.AccountLedger).Withdraw, "9.99", domain.ErrValidation, "1000", "200"},
		{"zero amount", (*usecase.AccountLedger).Hold, "0", domain.ErrValidation, "1000", "200"},
		{"negative amount", (*usecase.AccountLedger).Deposit, "-1", domain.ErrValidation, "1000", "200"},
		{"too precise", (*usecase.AccountLedger).Deposit, "0.0000001", domain.ErrValidation, "1000", "200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			f.openFunded(t, "u1", "1000")

			_, err := f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("200")})
			require.NoError(t, err)

			_, err = tt.op(f.ledger, ctx, usecase.MutationInput{UserID: "u1", Amount: dec(tt.amount), Reason: tt.name})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			account := f.account(t, "u1")
			requireDecimal(t, tt.wantBalance, account.Balance, "balance")
			requireDecimal(t, tt.wantHold, account.BalanceOnHold, "balance_on_hold")
			assertInvariant(t, account)
		})
	}
}

func TestAccountLedger_Totals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	_, err := f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("300")})
	require.NoError(t, err)
	_, err = f.ledger.ConvertHeldToSpent(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("100")})
	require.NoError(t, err)
	_, err = f.ledger.Withdraw(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("50"), Reason: "bank"})
	require.NoError(t, err)

	account := f.account(t, "u1")
	requireDecimal(t, "850", account.Balance, "balance")
	requireDecimal(t, "200", account.BalanceOnHold, "balance_on_hold")
	requireDecimal(t, "1000", account.TotalEarned, "total_earned")
	requireDecimal(t, "100", account.TotalSpent, "total_spent")
	requireDecimal(t, "50", account.TotalWithdrawn, "total_withdrawn")
	assert.Equal(t, int64(5), account.Version)
	assert.NotNil(t, account.LastTransactionAt)

	entries, err := f.ledger.ListEntries(ctx, usecase.ListEntriesInput{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, domain.EntryKindWithdrawal, entries[0].Kind)
	requireDecimal(t, "850", entries[0].BalanceAfter, "balance_after")
	assert.Equal(t, domain.EntryKindDeposit, entries[3].Kind)
}

// Two concurrent holds of 600 against 1000 available: exactly one wins.
func TestAccountLedger_ConcurrentHolds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("600")})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}
	assert.Equal(t, 1, succeeded)

	account := f.account(t, "u1")
	requireDecimal(t, "600", account.BalanceOnHold, "balance_on_hold")
	assertInvariant(t, account)
}

func TestAccountLedger_ManyConcurrentHolds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "1000")

	const workers = 25

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("100")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	requireDecimal(t, "1000", f.account(t, "u1").BalanceOnHold, "balance_on_hold")
}

func TestAccountLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "alice", "500")
	f.openFunded(t, "bob", "100")

	_, err := f.ledger.Hold(ctx, usecase.MutationInput{UserID: "alice", Amount: dec("100")})
	require.NoError(t, err)

	transfer, err := f.ledger.Transfer(ctx, usecase.TransferInput{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     dec("200"),
		Reason:     "payout",
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", transfer.Currency)

	alice, bob := f.account(t, "alice"), f.account(t, "bob")
	requireDecimal(t, "300", alice.Balance, "alice balance")
	requireDecimal(t, "300", bob.Balance, "bob balance")
	requireDecimal(t, "300", bob.TotalEarned, "bob total_earned")
	requireDecimal(t, "600", alice.Balance.Add(bob.Balance), "sum")

	// Only available funds move: 300 - 100 held leaves 200.
	_, err = f.ledger.Transfer(ctx, usecase.TransferInput{FromUserID: "alice", ToUserID: "bob", Amount: dec("201")})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	requireDecimal(t, "300", f.account(t, "alice").Balance, "alice balance after failure")
	requireDecimal(t, "300", f.account(t, "bob").Balance, "bob balance after failure")

	entries, err := f.ledger.ListEntries(ctx, usecase.ListEntriesInput{UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryKindTransferIn, entries[0].Kind)
	assert.Equal(t, transfer.ID, entries[0].TransferID)
}

func TestAccountLedger_TransferValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "alice", "500")

	_, err := f.ledger.OpenAccount(ctx, usecase.OpenAccountInput{UserID: "eve", Currency: "EUR"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   usecase.TransferInput
		wantErr error
	}{
		{"same account", usecase.TransferInput{FromUserID: "alice", ToUserID: "alice", Amount: dec("1")}, domain.ErrSameAccount},
		{"currency mismatch", usecase.TransferInput{FromUserID: "alice", ToUserID: "eve", Amount: dec("1")}, domain.ErrCurrencyMismatch},
		{"unknown recipient", usecase.TransferInput{FromUserID: "alice", ToUserID: "zed", Amount: dec("1")}, domain.ErrAccountNotFound},
		{"non-positive amount", usecase.TransferInput{FromUserID: "alice", ToUserID: "eve", Amount: dec("0")}, domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Transfer(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	requireDecimal(t, "500", f.account(t, "alice").Balance, "alice balance")
}

func TestAccountLedger_SymmetricTransfers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "a", "1000")
	f.openFunded(t, "b", "1000")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "a", "b"
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := f.ledger.Transfer(ctx, usecase.TransferInput{FromUserID: from, ToUserID: to, Amount: dec("10")})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total := f.account(t, "a").Balance.Add(f.account(t, "b").Balance)
	requireDecimal(t, "2000", total, "total")
}

func TestAccountLedger_Idempotency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "0")

	input := usecase.MutationInput{UserID: "u1", Amount: dec("250"), Reason: "card", IdempotencyKey: "dep-1"}

	first, err := f.ledger.Deposit(ctx, input)
	require.NoError(t, err)

	replay, err := f.ledger.Deposit(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.Version, replay.Version)
	requireDecimal(t, "250", replay.Balance, "replayed balance")

	requireDecimal(t, "250", f.account(t, "u1").Balance, "balance")

	input.Amount = dec("300")
	_, err = f.ledger.Deposit(ctx, input)
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Keys are scoped per operation.
	_, err = f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("10"), IdempotencyKey: "dep-1"})
	require.NoError(t, err)
}

func TestAccountLedger_FailedCallLeavesKeyUnused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "100")

	input := usecase.MutationInput{UserID: "u1", Amount: dec("150"), IdempotencyKey: "hold-1"}

	_, err := f.ledger.Hold(ctx, input)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = f.ledger.Deposit(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("100")})
	require.NoError(t, err)

	_, err = f.ledger.Hold(ctx, input)
	require.NoError(t, err)
	requireDecimal(t, "150", f.account(t, "u1").BalanceOnHold, "balance_on_hold")
}

func TestAccountLedger_ArchiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "u1", "100")

	_, err := f.ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("10")})
	require.NoError(t, err)

	_, err = f.ledger.ArchiveAccount(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrAccountHasHolds)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.ledger.Release(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("10")})
	require.NoError(t, err)

	archived, err := f.ledger.ArchiveAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())

	_, err = f.ledger.Deposit(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrAccountArchived)

	_, err = f.ledger.ArchiveAccount(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrAccountArchived)
}

func TestAccountLedger_AuditAndEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openFunded(t, "alice", "100")
	f.openFunded(t, "bob", "0")

	meta := domain.RequestMeta{ActorID: "ops", RequestID: "req-1"}
	transfer, err := f.ledger.Transfer(domain.WithRequestMeta(ctx, meta), usecase.TransferInput{
		FromUserID: "alice", ToUserID: "bob", Amount: dec("40"),
	})
	require.NoError(t, err)

	logs, err := f.stores.Audit.List(ctx, domain.AuditFilter{ResourceID: transfer.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, string(domain.AuditActionTransferCreate), logs[0].Action)
	assert.Equal(t, "ops", logs[0].ActorID)
	assert.Equal(t, "req-1", logs[0].RequestID)

	events, err := f.stores.Outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)

	types := make(map[string]int)
	for _, ev := range events {
		types[ev.EventType]++
	}
	assert.Equal(t, 2, types[domain.EventTypeAccountOpened])
	assert.Equal(t, 1, types[domain.EventTypeFundsDeposited])
	assert.Equal(t, 1, types[domain.EventTypeFundsTransferred])
}

func TestAccountLedger_StorageFailuresAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	boom := errors.New("connection reset")

	txManager := mocks.NewMockTransactionManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any()).Return(nil, boom)

	ledger := usecase.NewAccountLedger(usecase.Stores{TxManager: txManager}, dec("10"))

	_, err := ledger.Deposit(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("5")})
	require.ErrorIs(t, err, boom)
	assert.False(t, domain.IsBusinessError(err))
	assert.Contains(t, err.Error(), "deposit u1")
}

func TestAccountLedger_CommitFailureRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	boom := errors.New("commit failed")

	tx := mocks.NewMockTransaction(ctrl)
	txManager := mocks.NewMockTransactionManager(ctrl)
	accounts := mocks.NewMockAccountRepository(ctrl)
	entries := mocks.NewMockLedgerEntryRepository(ctrl)
	outbox := mocks.NewMockOutboxRepository(ctrl)
	ids := mocks.NewMockIDGenerator(ctrl)

	txManager.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	accounts.EXPECT().
		ApplyDelta(gomock.Any(), tx, "u1", gomock.Any(), gomock.Any()).
		Return(&domain.Account{UserID: "u1", Balance: dec("10"), BalanceOnHold: dec("5"), Version: 2}, nil)
	ids.EXPECT().Generate().Return("id").AnyTimes()
	entries.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	outbox.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	tx.EXPECT().Commit(gomock.Any()).Return(boom)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	ledger := usecase.NewAccountLedger(usecase.Stores{
		TxManager: txManager,
		Accounts:  accounts,
		Entries:   entries,
		Outbox:    outbox,
		IDGen:     ids,
	}, dec("10"))

	_, err := ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("5")})
	assert.ErrorIs(t, err, boom)
}

func TestAccountLedger_ConflictSurfacesUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()

	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).Return(domain.ErrConcurrencyConflict)

	ledger := usecase.NewAccountLedger(usecase.Stores{}, dec("10"), usecase.WithRetrier(retrier))

	_, err := ledger.Hold(ctx, usecase.MutationInput{UserID: "u1", Amount: dec("5")})
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.True(t, domain.IsRetryable(err))
}
