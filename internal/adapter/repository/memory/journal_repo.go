package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// LedgerEntryRepository implements usecase.LedgerEntryRepository in memory.
type LedgerEntryRepository struct {
	store *Store
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository.
func NewLedgerEntryRepository(store *Store) *LedgerEntryRepository {
	return &LedgerEntryRepository{store: store}
}

// Create appends an entry to the journal.
func (r *LedgerEntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	return r.store.write(tx, func(st *state) error {
		st.entries = append(st.entries, *entry)
		return nil
	})
}

// ListByUser lists a user's entries, newest first.
func (r *LedgerEntryRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	return r.list(func(e *domain.LedgerEntry) bool { return e.UserID == userID }, limit, offset)
}

// ListByCampaign lists a campaign's entries, newest first.
func (r *LedgerEntryRepository) ListByCampaign(_ context.Context, campaignID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	return r.list(func(e *domain.LedgerEntry) bool { return e.CampaignID == campaignID }, limit, offset)
}

func (r *LedgerEntryRepository) list(match func(*domain.LedgerEntry) bool, limit, offset int) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	err := r.store.read(nil, func(st *state) error {
		for i := len(st.entries) - 1; i >= 0; i-- {
			e := st.entries[i]
			if match(&e) {
				entries = append(entries, &e)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page(entries, limit, offset), nil
}

// Totals sums a user's journal.
func (r *LedgerEntryRepository) Totals(_ context.Context, userID string) (domain.EntryTotals, error) {
	totals := domain.EntryTotals{
		Balance:            decimal.Zero,
		OnHold:             decimal.Zero,
		UnattributedOnHold: decimal.Zero,
	}

	err := r.store.read(nil, func(st *state) error {
		for _, e := range st.entries {
			if e.UserID != userID {
				continue
			}
			totals.Balance = totals.Balance.Add(e.BalanceDelta)
			totals.OnHold = totals.OnHold.Add(e.HoldDelta)
			if e.CampaignID == "" {
				totals.UnattributedOnHold = totals.UnattributedOnHold.Add(e.HoldDelta)
			}
		}
		return nil
	})

	return totals, err
}

// LedgerRepository implements usecase.LedgerRepository in memory.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// CheckConsistency returns the sum of balances and the sum of journaled
// balance movements.
func (r *LedgerRepository) CheckConsistency(_ context.Context) (decimal.Decimal, decimal.Decimal, error) {
	recorded, journal := decimal.Zero, decimal.Zero

	err := r.store.read(nil, func(st *state) error {
		for _, a := range st.accounts {
			recorded = recorded.Add(a.Balance)
		}
		for _, e := range st.entries {
			journal = journal.Add(e.BalanceDelta)
		}
		return nil
	})

	return recorded, journal, err
}

// IdempotencyRepository implements usecase.IdempotencyRepository in memory.
// Transactions are already serialized, so Acquire only looks the key up.
type IdempotencyRepository struct {
	store *Store
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(store *Store) *IdempotencyRepository {
	return &IdempotencyRepository{store: store}
}

func idempotencyKey(scope, key string) string {
	return scope + "\x00" + key
}

// Acquire returns the stored record for (scope, key), or nil.
func (r *IdempotencyRepository) Acquire(_ context.Context, tx usecase.Transaction, scope, key string) (*domain.IdempotencyRecord, error) {
	var record *domain.IdempotencyRecord

	err := r.store.read(tx, func(st *state) error {
		if rec, ok := st.idempotency[idempotencyKey(scope, key)]; ok {
			record = &rec
		}
		return nil
	})

	return record, err
}

// Save stores the record.
func (r *IdempotencyRepository) Save(_ context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	return r.store.write(tx, func(st *state) error {
		st.idempotency[idempotencyKey(record.Scope, record.Key)] = *record
		return nil
	})
}

// DeleteBefore drops records created before the given time.
func (r *IdempotencyRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64

	err := r.store.update(ctx, func(st *state) error {
		for k, rec := range st.idempotency {
			if rec.CreatedAt.Before(before) {
				delete(st.idempotency, k)
				n++
			}
		}
		return nil
	})

	return n, err
}
