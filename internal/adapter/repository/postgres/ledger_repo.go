package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/infrastructure/postgres/generated"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db generated.DBTX
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// CheckConsistency returns the sum of all account balances and the sum of
// all journal balance deltas. Both are read in one statement.
func (r *LedgerRepository) CheckConsistency(ctx context.Context) (recorded, journal decimal.Decimal, err error) {
	result, err := generated.New(r.db).CheckLedgerConsistency(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return numericToDecimal(result.TotalAccountBalance), numericToDecimal(result.TotalEntryAmount), nil
}
