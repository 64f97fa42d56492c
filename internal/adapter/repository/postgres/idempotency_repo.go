package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/infrastructure/postgres/generated"
	"github.com/iho/adledger/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct {
	db generated.DBTX
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db generated.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Acquire takes a transaction-scoped advisory lock on (scope, key) and
// returns the stored record, or nil when the key is new. A second caller with
// the same key blocks until the first commits, then sees its record.
func (r *IdempotencyRepository) Acquire(ctx context.Context, tx usecase.Transaction, scope, key string) (*domain.IdempotencyRecord, error) {
	q := queriesFor(r.db, tx)

	if err := q.LockIdempotencyKey(ctx, generated.LockIdempotencyKeyParams{Scope: scope, Key: key}); err != nil {
		return nil, err
	}

	row, err := q.GetIdempotencyKey(ctx, generated.GetIdempotencyKeyParams{Scope: scope, Key: key})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &domain.IdempotencyRecord{
		Scope:       row.Scope,
		Key:         row.Key,
		RequestHash: row.RequestHash,
		Result:      row.Result,
		CreatedAt:   row.CreatedAt.Time,
	}, nil
}

// Save stores the result of the operation guarded by record's key.
func (r *IdempotencyRepository) Save(ctx context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	err := queriesFor(r.db, tx).SaveIdempotencyKey(ctx, generated.SaveIdempotencyKeyParams{
		Scope:       record.Scope,
		Key:         record.Key,
		RequestHash: record.RequestHash,
		Result:      record.Result,
		CreatedAt:   timeToPgTimestamptz(record.CreatedAt),
	})
	if pgErrorCode(err) == pgErrUniqueViolation {
		return domain.ErrConcurrencyConflict
	}

	return err
}

// DeleteBefore purges records created before the cutoff and returns how many
// were removed.
func (r *IdempotencyRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return generated.New(r.db).DeleteIdempotencyKeysBefore(ctx, timeToPgTimestamptz(before))
}
