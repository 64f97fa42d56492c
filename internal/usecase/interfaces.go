package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// Repository methods taking a Transaction run inside it; a nil Transaction
// runs against committed state.

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, userID string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, userIDs []string) ([]*domain.Account, error)
	// ApplyDelta adjusts the account in one conditional update that re-asserts
	// 0 <= hold <= balance. It returns domain.ErrGuardRejected when the guard
	// fails, domain.ErrAccountArchived for archived accounts and
	// domain.ErrAccountNotFound when the account does not exist.
	ApplyDelta(ctx context.Context, tx Transaction, userID string, delta domain.AccountDelta, at time.Time) (*domain.Account, error)
	// Archive marks the account archived if nothing is on hold; it returns
	// domain.ErrGuardRejected otherwise and domain.ErrAccountArchived if it
	// already is.
	Archive(ctx context.Context, tx Transaction, userID string, at time.Time) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// CampaignBudgetRepository defines data access for campaign budgets.
type CampaignBudgetRepository interface {
	// CreateDraft inserts a draft budget unless one exists; it reports whether
	// a row was inserted.
	CreateDraft(ctx context.Context, tx Transaction, budget *domain.CampaignBudget) (bool, error)
	GetByID(ctx context.Context, campaignID string) (*domain.CampaignBudget, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, campaignID string) (*domain.CampaignBudget, error)
	// Update writes the budget if its version is unchanged and bumps the
	// version; a mismatch yields domain.ErrConcurrencyConflict.
	Update(ctx context.Context, tx Transaction, budget *domain.CampaignBudget) error
	// AddSpend increments budget_spent only if it stays within budget_total.
	AddSpend(ctx context.Context, tx Transaction, campaignID string, amount decimal.Decimal, at time.Time) (*domain.CampaignBudget, error)
	ListByStatus(ctx context.Context, status domain.CampaignStatus, limit, offset int) ([]*domain.CampaignBudget, error)
	// SumUnsettledRemaining totals budget_total - budget_spent over the user's
	// unsettled campaigns.
	SumUnsettledRemaining(ctx context.Context, userID string) (decimal.Decimal, error)
}

// DailySpendRepository defines data access for per-day campaign spend.
type DailySpendRepository interface {
	// Add upserts the day's record, adding amount to any existing total.
	Add(ctx context.Context, tx Transaction, campaignID string, date time.Time, amount decimal.Decimal, at time.Time) (*domain.DailySpendRecord, error)
	// AmountOn returns the day's total, zero if no record exists.
	AmountOn(ctx context.Context, tx Transaction, campaignID string, date time.Time) (decimal.Decimal, error)
	ListRange(ctx context.Context, campaignID string, from, to time.Time) ([]*domain.DailySpendRecord, error)
}

// LedgerEntryRepository defines data access for the ledger journal.
type LedgerEntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error)
	ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*domain.LedgerEntry, error)
	Totals(ctx context.Context, userID string) (domain.EntryTotals, error)
}

// LedgerRepository defines data access for ledger-wide checks.
type LedgerRepository interface {
	// CheckConsistency returns the sum of all account balances and the sum of
	// all journal balance deltas.
	CheckConsistency(ctx context.Context) (recorded, journal decimal.Decimal, err error)
}

// IdempotencyRepository stores operation results keyed by idempotency key.
type IdempotencyRepository interface {
	// Acquire serializes callers of the same key for the rest of tx and returns
	// the stored record, or nil when the key is new.
	Acquire(ctx context.Context, tx Transaction, scope, key string) (*domain.IdempotencyRecord, error)
	Save(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed on lock or version contention.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get for absent keys.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// StoredResponse is an HTTP response kept for idempotent replay.
type StoredResponse struct {
	Fingerprint string `json:"fingerprint"`
	StatusCode  int    `json:"status_code"`
	Body        []byte `json:"body,omitempty"`
	Pending     bool   `json:"pending"`
}

// IdempotencyStore handles idempotency key storage at the transport edge.
type IdempotencyStore interface {
	// Reserve claims key for a request with the given fingerprint. It returns
	// the existing entry if the key was already claimed, or nil if the caller
	// now owns it.
	Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*StoredResponse, error)
	// Complete stores the final response under key.
	Complete(ctx context.Context, key string, response StoredResponse, ttl time.Duration) error
	// Release drops a claim so the request can be retried.
	Release(ctx context.Context, key string) error
}
