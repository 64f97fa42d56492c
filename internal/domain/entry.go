package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindDeposit     EntryKind = "deposit"
	EntryKindWithdrawal  EntryKind = "withdrawal"
	EntryKindHold        EntryKind = "hold"
	EntryKindRelease     EntryKind = "release"
	EntryKindSpend       EntryKind = "spend"
	EntryKindTransferOut EntryKind = "transfer_out"
	EntryKindTransferIn  EntryKind = "transfer_in"
)

// Delta returns the account adjustments a mutation of this kind applies.
func (k EntryKind) Delta(amount decimal.Decimal) AccountDelta {
	switch k {
	case EntryKindDeposit, EntryKindTransferIn:
		return AccountDelta{Balance: amount, Earned: amount}
	case EntryKindWithdrawal:
		return AccountDelta{Balance: amount.Neg(), Withdrawn: amount}
	case EntryKindHold:
		return AccountDelta{OnHold: amount}
	case EntryKindRelease:
		return AccountDelta{OnHold: amount.Neg()}
	case EntryKindSpend:
		return AccountDelta{Balance: amount.Neg(), OnHold: amount.Neg(), Spent: amount}
	case EntryKindTransferOut:
		return AccountDelta{Balance: amount.Neg()}
	}
	return AccountDelta{}
}

// Rejection is the error reported when the invariant guard refuses a
// mutation of this kind.
func (k EntryKind) Rejection() error {
	switch k {
	case EntryKindRelease, EntryKindSpend:
		return ErrOverRelease
	case EntryKindHold, EntryKindWithdrawal, EntryKindTransferOut:
		return ErrInsufficientFunds
	}
	return ErrAccountArchived
}

// LedgerEntry is an immutable journal row written for every account mutation.
type LedgerEntry struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	CampaignID     string          `json:"campaign_id,omitempty"`
	TransferID     string          `json:"transfer_id,omitempty"`
	Kind           EntryKind       `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceDelta   decimal.Decimal `json:"balance_delta"`
	HoldDelta      decimal.Decimal `json:"hold_delta"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	HoldAfter      decimal.Decimal `json:"hold_after"`
	AccountVersion int64           `json:"account_version"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EntryTotals aggregates the journal of one user.
type EntryTotals struct {
	Balance decimal.Decimal
	OnHold  decimal.Decimal
	// UnattributedOnHold is the hold moved by entries without a campaign.
	UnattributedOnHold decimal.Decimal
}
