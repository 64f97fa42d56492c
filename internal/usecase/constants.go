package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultMinimumWithdrawal is the smallest amount accepted by Withdraw.
	DefaultMinimumWithdrawal = "10"

	// DefaultForecastMinSamples is the number of spend days below which a
	// forecast reports unknown confidence.
	DefaultForecastMinSamples = 3

	// DefaultForecastCacheTTL is how long a computed forecast is served from cache.
	DefaultForecastCacheTTL = 5 * time.Minute
)

// Idempotency scopes, one per mutating operation.
const (
	scopeDeposit       = "deposit"
	scopeWithdraw      = "withdraw"
	scopeHold          = "hold"
	scopeRelease       = "release"
	scopeConvert       = "convert_held_to_spent"
	scopeTransfer      = "transfer"
	scopeReserveBudget = "reserve_budget"
	scopeAdjustBudget  = "adjust_budget"
	scopeProcessSpend  = "process_spend"
	scopeTransition    = "campaign_transition"
)
