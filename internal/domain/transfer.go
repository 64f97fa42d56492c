package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer moves available funds between two users' accounts. It is not a
// standing entity: it is recorded as two ledger entries and an audit row.
type Transfer struct {
	ID         string          `json:"id"`
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Reason     string          `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate validates transfer request.
func (t *Transfer) Validate() error {
	if t.FromUserID == t.ToUserID {
		return ErrSameAccount
	}

	return ValidateAmount(t.Amount)
}
