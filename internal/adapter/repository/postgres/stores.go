package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/adledger/internal/usecase"
)

// NewStores wires every repository to pool.
func NewStores(pool *pgxpool.Pool) usecase.Stores {
	return usecase.Stores{
		TxManager:   NewTxManager(pool),
		Accounts:    NewAccountRepository(pool),
		Budgets:     NewCampaignBudgetRepository(pool),
		DailySpend:  NewDailySpendRepository(pool),
		Entries:     NewEntryRepository(pool),
		Ledger:      NewLedgerRepository(pool),
		Idempotency: NewIdempotencyRepository(pool),
		Outbox:      NewOutboxRepository(pool),
		Audit:       NewAuditRepository(pool),
		IDGen:       NewULIDGenerator(),
	}
}
