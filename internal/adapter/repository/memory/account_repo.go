package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository in memory.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create inserts a new account.
func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	return r.store.write(tx, func(st *state) error {
		if _, ok := st.accounts[account.UserID]; ok {
			return domain.ErrAccountExists
		}
		st.accounts[account.UserID] = *account
		return nil
	})
}

// GetByID retrieves a committed account.
func (r *AccountRepository) GetByID(_ context.Context, userID string) (*domain.Account, error) {
	var account *domain.Account

	err := r.store.read(nil, func(st *state) error {
		a, ok := st.accounts[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		account = &a
		return nil
	})

	return account, err
}

// GetByIDsForUpdate returns the existing accounts among userIDs in id order.
func (r *AccountRepository) GetByIDsForUpdate(_ context.Context, tx usecase.Transaction, userIDs []string) ([]*domain.Account, error) {
	var accounts []*domain.Account

	err := r.store.read(tx, func(st *state) error {
		for _, id := range userIDs {
			if a, ok := st.accounts[id]; ok {
				accounts = append(accounts, &a)
			}
		}
		return nil
	})

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].UserID < accounts[j].UserID })

	return accounts, err
}

// ApplyDelta applies delta if the account exists, is not archived and the
// result keeps 0 <= hold <= balance.
func (r *AccountRepository) ApplyDelta(_ context.Context, tx usecase.Transaction, userID string, delta domain.AccountDelta, at time.Time) (*domain.Account, error) {
	var account *domain.Account

	err := r.store.write(tx, func(st *state) error {
		current, ok := st.accounts[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}

		if current.IsArchived() {
			return domain.ErrAccountArchived
		}

		if !delta.Admits(&current) {
			return domain.ErrGuardRejected
		}

		updated := delta.Apply(current, at)
		st.accounts[userID] = updated
		account = &updated

		return nil
	})

	return account, err
}

// Archive marks an account with nothing on hold as archived.
func (r *AccountRepository) Archive(_ context.Context, tx usecase.Transaction, userID string, at time.Time) (*domain.Account, error) {
	var account *domain.Account

	err := r.store.write(tx, func(st *state) error {
		current, ok := st.accounts[userID]
		if !ok {
			return domain.ErrAccountNotFound
		}

		if current.IsArchived() {
			return domain.ErrAccountArchived
		}

		if !current.BalanceOnHold.IsZero() {
			return domain.ErrGuardRejected
		}

		current.ArchivedAt = &at
		current.UpdatedAt = at
		current.Version++
		st.accounts[userID] = current
		account = &current

		return nil
	})

	return account, err
}

// List returns committed accounts ordered by user id.
func (r *AccountRepository) List(_ context.Context, limit, offset int) ([]*domain.Account, error) {
	var accounts []*domain.Account

	err := r.store.read(nil, func(st *state) error {
		for _, a := range st.accounts {
			accounts = append(accounts, &a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].UserID < accounts[j].UserID })

	return page(accounts, limit, offset), nil
}
