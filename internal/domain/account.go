package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's funds. BalanceOnHold is the part of Balance escrowed
// against campaigns; only Available can be held, withdrawn or transferred.
type Account struct {
	UserID            string          `json:"user_id"`
	Currency          string          `json:"currency"`
	Balance           decimal.Decimal `json:"balance"`
	BalanceOnHold     decimal.Decimal `json:"balance_on_hold"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"`
	Version           int64           `json:"version"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	ArchivedAt        *time.Time      `json:"archived_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Available returns the spendable part of the balance.
func (a *Account) Available() decimal.Decimal {
	return a.Balance.Sub(a.BalanceOnHold)
}

// IsArchived reports whether the account was soft-archived.
func (a *Account) IsArchived() bool {
	return a.ArchivedAt != nil
}

// AccountDelta is a set of signed adjustments applied to an account in a
// single guarded update.
type AccountDelta struct {
	Balance   decimal.Decimal
	OnHold    decimal.Decimal
	Earned    decimal.Decimal
	Spent     decimal.Decimal
	Withdrawn decimal.Decimal
}

// Admits reports whether applying the delta keeps 0 <= hold <= balance.
// Storage layers evaluate the same predicate inside the update itself.
func (d AccountDelta) Admits(a *Account) bool {
	newHold := a.BalanceOnHold.Add(d.OnHold)
	newBalance := a.Balance.Add(d.Balance)
	return !newHold.IsNegative() && !newBalance.Sub(newHold).IsNegative()
}

// Apply returns a copy of the account with the delta applied.
func (d AccountDelta) Apply(a Account, at time.Time) Account {
	a.Balance = a.Balance.Add(d.Balance)
	a.BalanceOnHold = a.BalanceOnHold.Add(d.OnHold)
	a.TotalEarned = a.TotalEarned.Add(d.Earned)
	a.TotalSpent = a.TotalSpent.Add(d.Spent)
	a.TotalWithdrawn = a.TotalWithdrawn.Add(d.Withdrawn)
	a.Version++
	a.LastTransactionAt = &at
	a.UpdatedAt = at
	return a
}
