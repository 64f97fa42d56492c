package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// AccountLedger owns the per-user balance and hold primitives. Every mutation
// is a single guarded update plus a journal entry, committed atomically.
type AccountLedger struct {
	core
	minimumWithdrawal decimal.Decimal
}

// NewAccountLedger creates a new AccountLedger.
func NewAccountLedger(stores Stores, minimumWithdrawal decimal.Decimal, opts ...Option) *AccountLedger {
	return &AccountLedger{
		core:              newCore(stores, opts),
		minimumWithdrawal: minimumWithdrawal,
	}
}

// OpenAccountInput represents input for opening an account.
type OpenAccountInput struct {
	UserID   string
	Currency string
}

// MutationInput describes a single-account mutation. Reason carries the
// source of a deposit or the destination of a withdrawal.
type MutationInput struct {
	UserID         string          `json:"user_id"`
	CampaignID     string          `json:"campaign_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"-"`

	transferID string
}

// TransferInput represents input for moving funds between two accounts.
type TransferInput struct {
	FromUserID     string          `json:"from_user_id"`
	ToUserID       string          `json:"to_user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"-"`
}

// ListEntriesInput represents input for listing journal entries.
type ListEntriesInput struct {
	UserID     string
	CampaignID string
	Limit      int
	Offset     int
}

var entryEvents = map[domain.EntryKind]string{
	domain.EntryKindDeposit:    domain.EventTypeFundsDeposited,
	domain.EntryKindWithdrawal: domain.EventTypeFundsWithdrawn,
	domain.EntryKindHold:       domain.EventTypeFundsHeld,
	domain.EntryKindRelease:    domain.EventTypeFundsReleased,
	domain.EntryKindSpend:      domain.EventTypeFundsSpent,
}

// OpenAccount creates an empty account for a newly registered user.
func (l *AccountLedger) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	if err := domain.ValidateID("user", input.UserID); err != nil {
		return nil, err
	}

	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	var account *domain.Account

	err = l.execute(ctx, "open_account", input.UserID, func(ctx context.Context, tx Transaction) error {
		now := l.now()
		account = &domain.Account{
			UserID:         input.UserID,
			Currency:       currency,
			Balance:        decimal.Zero,
			BalanceOnHold:  decimal.Zero,
			TotalEarned:    decimal.Zero,
			TotalSpent:     decimal.Zero,
			TotalWithdrawn: decimal.Zero,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := l.stores.Accounts.Create(ctx, tx, account); err != nil {
			return err
		}

		err := l.emit(ctx, tx, domain.AggregateTypeAccount, account.UserID, domain.EventTypeAccountOpened, map[string]any{
			"user_id":  account.UserID,
			"currency": account.Currency,
		}, now)
		if err != nil {
			return err
		}

		return l.audit(ctx, tx, domain.AuditActionAccountOpen, domain.AggregateTypeAccount, account.UserID, nil, account, now)
	})
	if err != nil {
		return nil, err
	}

	if l.opts.metrics != nil {
		l.opts.metrics.AccountsOpened.Inc()
	}

	return account, nil
}

// GetAccount returns the committed state of an account.
func (l *AccountLedger) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	if err := domain.ValidateID("user", userID); err != nil {
		return nil, err
	}

	return l.stores.Accounts.GetByID(ctx, userID)
}

// ListEntries lists journal entries for a user, or for one of the user's
// campaigns when CampaignID is set.
func (l *AccountLedger) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	if input.CampaignID != "" {
		if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
			return nil, err
		}
		return l.stores.Entries.ListByCampaign(ctx, input.CampaignID, limit, offset)
	}

	if err := domain.ValidateID("user", input.UserID); err != nil {
		return nil, err
	}

	return l.stores.Entries.ListByUser(ctx, input.UserID, limit, offset)
}

// ArchiveAccount soft-archives an account with nothing on hold. Archived
// accounts reject every further mutation.
func (l *AccountLedger) ArchiveAccount(ctx context.Context, userID string) (*domain.Account, error) {
	if err := domain.ValidateID("user", userID); err != nil {
		return nil, err
	}

	var account *domain.Account

	err := l.execute(ctx, "archive_account", userID, func(ctx context.Context, tx Transaction) error {
		now := l.now()

		archived, err := l.stores.Accounts.Archive(ctx, tx, userID, now)
		if errors.Is(err, domain.ErrGuardRejected) {
			return domain.ErrAccountHasHolds
		}
		if err != nil {
			return err
		}
		account = archived

		err = l.emit(ctx, tx, domain.AggregateTypeAccount, userID, domain.EventTypeAccountArchived, map[string]any{
			"user_id": userID,
			"balance": archived.Balance.String(),
		}, now)
		if err != nil {
			return err
		}

		return l.audit(ctx, tx, domain.AuditActionAccountArchive, domain.AggregateTypeAccount, userID, nil, archived, now)
	})
	if err != nil {
		return nil, err
	}

	if l.opts.metrics != nil {
		l.opts.metrics.AccountsArchived.Inc()
	}

	return account, nil
}

// Hold moves amount from available into on-hold.
func (l *AccountLedger) Hold(ctx context.Context, input MutationInput) (*domain.Account, error) {
	return l.mutate(ctx, scopeHold, domain.EntryKindHold, input)
}

// Release moves amount from on-hold back to available.
func (l *AccountLedger) Release(ctx context.Context, input MutationInput) (*domain.Account, error) {
	return l.mutate(ctx, scopeRelease, domain.EntryKindRelease, input)
}

// ConvertHeldToSpent realizes held funds as spend.
func (l *AccountLedger) ConvertHeldToSpent(ctx context.Context, input MutationInput) (*domain.Account, error) {
	return l.mutate(ctx, scopeConvert, domain.EntryKindSpend, input)
}

// Deposit credits the balance from an external source.
func (l *AccountLedger) Deposit(ctx context.Context, input MutationInput) (*domain.Account, error) {
	return l.mutate(ctx, scopeDeposit, domain.EntryKindDeposit, input)
}

// Withdraw debits available funds to an external destination.
func (l *AccountLedger) Withdraw(ctx context.Context, input MutationInput) (*domain.Account, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if input.Amount.LessThan(l.minimumWithdrawal) {
		return nil, fmt.Errorf("%w: minimum is %s", domain.ErrBelowMinWithdraw, l.minimumWithdrawal)
	}

	return l.mutate(ctx, scopeWithdraw, domain.EntryKindWithdrawal, input)
}

// Transfer moves available funds between two accounts of the same currency.
func (l *AccountLedger) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	candidate := &domain.Transfer{
		FromUserID: input.FromUserID,
		ToUserID:   input.ToUserID,
		Amount:     input.Amount,
	}

	if err := domain.ValidateID("user", input.FromUserID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID("user", input.ToUserID); err != nil {
		return nil, err
	}

	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	if err := domain.ValidateReason(input.Reason); err != nil {
		return nil, err
	}

	var transfer *domain.Transfer

	err := l.execute(ctx, scopeTransfer, input.FromUserID, func(ctx context.Context, tx Transaction) error {
		now := l.now()

		result, replayed, err := idempotent(ctx, tx, l.stores.Idempotency, scopeTransfer, input.IdempotencyKey, input, now,
			func() (*domain.Transfer, error) {
				return l.transfer(ctx, tx, input, now)
			})
		if err != nil {
			return err
		}

		if replayed {
			l.replayed(scopeTransfer)
		}

		transfer = result

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.observeAmount(scopeTransfer, input.Amount)

	return transfer, nil
}

func (l *AccountLedger) transfer(ctx context.Context, tx Transaction, input TransferInput, now time.Time) (*domain.Transfer, error) {
	// Lock both accounts in ascending id order.
	ids := []string{input.FromUserID, input.ToUserID}
	sort.Strings(ids)

	accounts, err := l.stores.Accounts.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.UserID] = a
	}

	from, to := byID[input.FromUserID], byID[input.ToUserID]
	if from == nil || to == nil {
		return nil, domain.ErrAccountNotFound
	}

	if from.Currency != to.Currency {
		return nil, domain.ErrCurrencyMismatch
	}

	transfer := &domain.Transfer{
		ID:         l.stores.IDGen.Generate(),
		FromUserID: input.FromUserID,
		ToUserID:   input.ToUserID,
		Amount:     input.Amount,
		Currency:   from.Currency,
		Reason:     input.Reason,
		CreatedAt:  now,
	}

	debit := MutationInput{
		UserID:         input.FromUserID,
		Amount:         input.Amount,
		Reason:         input.Reason,
		IdempotencyKey: input.IdempotencyKey,
		transferID:     transfer.ID,
	}
	if _, err := l.apply(ctx, tx, domain.EntryKindTransferOut, debit, now); err != nil {
		return nil, err
	}

	credit := debit
	credit.UserID = input.ToUserID
	if _, err := l.apply(ctx, tx, domain.EntryKindTransferIn, credit, now); err != nil {
		return nil, err
	}

	err = l.emit(ctx, tx, domain.AggregateTypeTransfer, transfer.ID, domain.EventTypeFundsTransferred, map[string]any{
		"transfer_id":  transfer.ID,
		"from_user_id": transfer.FromUserID,
		"to_user_id":   transfer.ToUserID,
		"amount":       transfer.Amount.String(),
		"currency":     transfer.Currency,
	}, now)
	if err != nil {
		return nil, err
	}

	err = l.audit(ctx, tx, domain.AuditActionTransferCreate, domain.AggregateTypeTransfer, transfer.ID, nil, transfer, now)
	if err != nil {
		return nil, err
	}

	return transfer, nil
}

func (l *AccountLedger) mutate(ctx context.Context, scope string, kind domain.EntryKind, input MutationInput) (*domain.Account, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	var account *domain.Account

	err := l.execute(ctx, scope, input.UserID, func(ctx context.Context, tx Transaction) error {
		now := l.now()

		result, replayed, err := idempotent(ctx, tx, l.stores.Idempotency, scope, input.IdempotencyKey, input, now,
			func() (*domain.Account, error) {
				updated, err := l.apply(ctx, tx, kind, input, now)
				if err != nil {
					return nil, err
				}

				err = l.emit(ctx, tx, domain.AggregateTypeAccount, input.UserID, entryEvents[kind], map[string]any{
					"user_id":     input.UserID,
					"campaign_id": input.CampaignID,
					"amount":      input.Amount.String(),
					"reason":      input.Reason,
				}, now)
				if err != nil {
					return nil, err
				}

				if kind == domain.EntryKindWithdrawal {
					err = l.audit(ctx, tx, domain.AuditActionWithdrawal, domain.AggregateTypeAccount, input.UserID, nil, updated, now)
					if err != nil {
						return nil, err
					}
				}

				return updated, nil
			})
		if err != nil {
			return err
		}

		if replayed {
			l.replayed(scope)
		}

		account = result

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.observeAmount(scope, input.Amount)

	return account, nil
}

// apply performs one guarded account update and journals it. It is the only
// path by which balances change and runs inside the caller's transaction.
func (l *AccountLedger) apply(ctx context.Context, tx Transaction, kind domain.EntryKind, input MutationInput, now time.Time) (*domain.Account, error) {
	delta := kind.Delta(input.Amount)

	account, err := l.stores.Accounts.ApplyDelta(ctx, tx, input.UserID, delta, now)
	if errors.Is(err, domain.ErrGuardRejected) {
		return nil, fmt.Errorf("%w: %s of %s for user %s", kind.Rejection(), kind, input.Amount, input.UserID)
	}
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:             l.stores.IDGen.Generate(),
		UserID:         input.UserID,
		CampaignID:     input.CampaignID,
		TransferID:     input.transferID,
		Kind:           kind,
		Amount:         input.Amount,
		BalanceDelta:   delta.Balance,
		HoldDelta:      delta.OnHold,
		BalanceAfter:   account.Balance,
		HoldAfter:      account.BalanceOnHold,
		AccountVersion: account.Version,
		Reason:         input.Reason,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      now,
	}

	if err := l.stores.Entries.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return account, nil
}

func validateMutation(input MutationInput) error {
	if err := domain.ValidateID("user", input.UserID); err != nil {
		return err
	}

	if input.CampaignID != "" {
		if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
			return err
		}
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	return domain.ValidateReason(input.Reason)
}
