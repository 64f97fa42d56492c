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

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db generated.DBTX
}

// NewAccountRepository creates a new AccountRepository. db is normally a
// *pgxpool.Pool.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	err := queriesFor(r.db, tx).CreateAccount(ctx, generated.CreateAccountParams{
		UserID:         account.UserID,
		Currency:       account.Currency,
		Balance:        decimalToNumeric(account.Balance),
		BalanceOnHold:  decimalToNumeric(account.BalanceOnHold),
		TotalEarned:    decimalToNumeric(account.TotalEarned),
		TotalSpent:     decimalToNumeric(account.TotalSpent),
		TotalWithdrawn: decimalToNumeric(account.TotalWithdrawn),
		Version:        account.Version,
		CreatedAt:      timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(account.UpdatedAt),
	})
	if pgErrorCode(err) == pgErrUniqueViolation {
		return domain.ErrAccountExists
	}

	return err
}

// GetByID retrieves an account by user ID.
func (r *AccountRepository) GetByID(ctx context.Context, userID string) (*domain.Account, error) {
	row, err := generated.New(r.db).GetAccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDsForUpdate locks the existing accounts among userIDs in user id
// order, which keeps concurrent transfers from deadlocking.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, userIDs []string) ([]*domain.Account, error) {
	rows, err := queriesFor(r.db, tx).GetAccountsByIDsForUpdate(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// ApplyDelta applies delta in a single guarded UPDATE.
func (r *AccountRepository) ApplyDelta(ctx context.Context, tx usecase.Transaction, userID string, delta domain.AccountDelta, at time.Time) (*domain.Account, error) {
	q := queriesFor(r.db, tx)

	row, err := q.ApplyAccountDelta(ctx, generated.ApplyAccountDeltaParams{
		BalanceDelta:   decimalToNumeric(delta.Balance),
		HoldDelta:      decimalToNumeric(delta.OnHold),
		EarnedDelta:    decimalToNumeric(delta.Earned),
		SpentDelta:     decimalToNumeric(delta.Spent),
		WithdrawnDelta: decimalToNumeric(delta.Withdrawn),
		At:             timeToPgTimestamptz(at),
		UserID:         userID,
	})
	switch {
	case err == nil:
		return rowToAccount(row), nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, classifyAccountMiss(ctx, q, userID)
	case pgErrorCode(err) == pgErrCheckViolation:
		return nil, domain.ErrGuardRejected
	}

	return nil, err
}

// Archive marks the account archived if nothing is on hold.
func (r *AccountRepository) Archive(ctx context.Context, tx usecase.Transaction, userID string, at time.Time) (*domain.Account, error) {
	q := queriesFor(r.db, tx)

	row, err := q.ArchiveAccount(ctx, generated.ArchiveAccountParams{
		At:     timeToPgTimestamptz(at),
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, classifyAccountMiss(ctx, q, userID)
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// List lists accounts ordered by user id.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := generated.New(r.db).ListAccounts(ctx, generated.ListAccountsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// classifyAccountMiss explains why a guarded account update matched no row.
// It reads through the same transaction, so the answer reflects the state
// the update saw.
func classifyAccountMiss(ctx context.Context, q *generated.Queries, userID string) error {
	row, err := q.GetAccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAccountNotFound
		}

		return err
	}

	if row.ArchivedAt.Valid {
		return domain.ErrAccountArchived
	}

	return domain.ErrGuardRejected
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		UserID:            row.UserID,
		Currency:          row.Currency,
		Balance:           numericToDecimal(row.Balance),
		BalanceOnHold:     numericToDecimal(row.BalanceOnHold),
		TotalEarned:       numericToDecimal(row.TotalEarned),
		TotalSpent:        numericToDecimal(row.TotalSpent),
		TotalWithdrawn:    numericToDecimal(row.TotalWithdrawn),
		Version:           row.Version,
		LastTransactionAt: pgTimestamptzToPtr(row.LastTransactionAt),
		ArchivedAt:        pgTimestamptzToPtr(row.ArchivedAt),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}
