package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the ledger wraps exactly one of
// these, so callers classify with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOverRelease         = errors.New("release exceeds held funds")
	ErrBudgetExceeded      = errors.New("spend exceeds campaign budget")
	ErrDailyCapExceeded    = errors.New("spend exceeds daily cap")
	ErrInvalidState        = errors.New("operation not allowed in current state")
	ErrNotFound            = errors.New("not found")
	ErrConcurrencyConflict = errors.New("concurrent modification")
)

var (
	// Account errors
	ErrAccountNotFound  = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountExists    = fmt.Errorf("%w: account already exists", ErrValidation)
	ErrAccountArchived  = fmt.Errorf("%w: account is archived", ErrInvalidState)
	ErrAccountHasHolds  = fmt.Errorf("%w: account still has funds on hold", ErrInvalidState)
	ErrBelowMinWithdraw = fmt.Errorf("%w: amount below minimum withdrawal", ErrValidation)

	// Transfer errors
	ErrSameAccount      = fmt.Errorf("%w: cannot transfer to same account", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrCurrencyMismatch = fmt.Errorf("%w: currency mismatch", ErrValidation)

	// Campaign errors
	ErrCampaignNotFound        = fmt.Errorf("campaign %w", ErrNotFound)
	ErrCampaignOwnerMismatch   = fmt.Errorf("%w: campaign belongs to another user", ErrValidation)
	ErrBudgetNotReservable     = fmt.Errorf("%w: budget can only be reserved for draft campaigns", ErrInvalidState)
	ErrBudgetSettled           = fmt.Errorf("%w: campaign budget is settled", ErrInvalidState)
	ErrBudgetBelowSpent        = fmt.Errorf("%w: budget cannot be lower than amount already spent", ErrValidation)
	ErrBudgetLockedWhileActive = fmt.Errorf("%w: budget terms cannot change while campaign is active", ErrValidation)
	ErrSpendNotAllowed         = fmt.Errorf("%w: campaign is not accepting spend", ErrInvalidState)
	ErrSettleNotAllowed        = fmt.Errorf("%w: campaign must be completed or archived to settle", ErrInvalidState)
	ErrIllegalTransition       = fmt.Errorf("%w: illegal campaign transition", ErrInvalidState)
	ErrLaunchRequirements      = fmt.Errorf("%w: campaign is not ready to launch", ErrInvalidState)
	ErrResumeRequirements      = fmt.Errorf("%w: campaign cannot resume", ErrInvalidState)

	// Idempotency errors
	ErrIdempotencyKeyReused = fmt.Errorf("%w: idempotency key reused with a different request", ErrValidation)
)

// ErrGuardRejected is returned by storage when a conditional update matched no
// row because its invariant guard failed. Use cases translate it into the
// operation-specific business error.
var ErrGuardRejected = errors.New("guarded update rejected")

var businessErrors = []error{
	ErrValidation,
	ErrInsufficientFunds,
	ErrOverRelease,
	ErrBudgetExceeded,
	ErrDailyCapExceeded,
	ErrInvalidState,
	ErrNotFound,
	ErrConcurrencyConflict,
}

// IsBusinessError reports whether err belongs to the ledger's error taxonomy.
func IsBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
