// Package memory is a transactional in-process store implementing the
// use case repositories. Transactions are fully serialized: Begin takes the
// single write slot, works on a private copy of the state and Commit
// publishes it. Reads without a transaction see the last committed state.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

var (
	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("memory: transaction already finished")
	// ErrForeignTx is returned when a transaction from another store is passed in.
	ErrForeignTx = errors.New("memory: transaction does not belong to this store")
)

type dailyKey struct {
	campaignID string
	date       string
}

type state struct {
	accounts    map[string]domain.Account
	budgets     map[string]domain.CampaignBudget
	daily       map[dailyKey]domain.DailySpendRecord
	entries     []domain.LedgerEntry
	idempotency map[string]domain.IdempotencyRecord
	outbox      []domain.OutboxEvent
	audit       []domain.AuditLog
}

func newState() *state {
	return &state{
		accounts:    make(map[string]domain.Account),
		budgets:     make(map[string]domain.CampaignBudget),
		daily:       make(map[dailyKey]domain.DailySpendRecord),
		idempotency: make(map[string]domain.IdempotencyRecord),
	}
}

func (s *state) clone() *state {
	return &state{
		accounts:    maps.Clone(s.accounts),
		budgets:     maps.Clone(s.budgets),
		daily:       maps.Clone(s.daily),
		entries:     slices.Clone(s.entries),
		idempotency: maps.Clone(s.idempotency),
		outbox:      slices.Clone(s.outbox),
		audit:       slices.Clone(s.audit),
	}
}

// Store holds the committed state and hands out transactions.
type Store struct {
	slot      chan struct{}
	mu        sync.RWMutex
	committed *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		slot:      make(chan struct{}, 1),
		committed: newState(),
	}
}

// Tx is a memory store transaction.
type Tx struct {
	store *Store
	work  *state
	done  bool
}

// Begin waits for the write slot and starts a transaction.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	return &Tx{store: s, work: work}, nil
}

// Commit publishes the transaction's state.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return ErrTxDone
	}

	t.store.mu.Lock()
	t.store.committed = t.work
	t.store.mu.Unlock()

	t.finish()

	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}

	t.finish()

	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.work = nil
	<-t.store.slot
}

// Ping reports the store as always reachable.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Stores returns repositories backed by s.
func (s *Store) Stores(idGen usecase.IDGenerator) usecase.Stores {
	return usecase.Stores{
		TxManager:   s,
		Accounts:    NewAccountRepository(s),
		Budgets:     NewCampaignBudgetRepository(s),
		DailySpend:  NewDailySpendRepository(s),
		Entries:     NewLedgerEntryRepository(s),
		Ledger:      NewLedgerRepository(s),
		Idempotency: NewIdempotencyRepository(s),
		Outbox:      NewOutboxRepository(s),
		Audit:       NewAuditRepository(s),
		IDGen:       idGen,
	}
}

// read runs fn against the transaction's state, or the committed state when
// tx is nil.
func (s *Store) read(tx usecase.Transaction, fn func(*state) error) error {
	if tx == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(s.committed)
	}

	work, err := s.own(tx)
	if err != nil {
		return err
	}

	return fn(work)
}

// write runs fn against the transaction's state.
func (s *Store) write(tx usecase.Transaction, fn func(*state) error) error {
	work, err := s.own(tx)
	if err != nil {
		return err
	}

	return fn(work)
}

// update runs fn in a short transaction of its own.
func (s *Store) update(ctx context.Context, fn func(*state) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.write(tx, fn); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) own(tx usecase.Transaction) (*state, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTx
	}

	if t.done {
		return nil, ErrTxDone
	}

	return t.work, nil
}

// page applies limit/offset to a slice.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}

	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return items[offset:end]
}
