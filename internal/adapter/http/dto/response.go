package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	UserID            string          `json:"user_id"`
	Currency          string          `json:"currency"`
	Balance           decimal.Decimal `json:"balance"`
	BalanceOnHold     decimal.Decimal `json:"balance_on_hold"`
	Available         decimal.Decimal `json:"available"`
	TotalEarned       decimal.Decimal `json:"total_earned"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalWithdrawn    decimal.Decimal `json:"total_withdrawn"`
	Version           int64           `json:"version"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	ArchivedAt        *time.Time      `json:"archived_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		UserID:            a.UserID,
		Currency:          a.Currency,
		Balance:           a.Balance,
		BalanceOnHold:     a.BalanceOnHold,
		Available:         a.Available(),
		TotalEarned:       a.TotalEarned,
		TotalSpent:        a.TotalSpent,
		TotalWithdrawn:    a.TotalWithdrawn,
		Version:           a.Version,
		LastTransactionAt: a.LastTransactionAt,
		ArchivedAt:        a.ArchivedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// BudgetResponse represents a campaign budget in API responses.
type BudgetResponse struct {
	*domain.CampaignBudget
	Remaining decimal.Decimal `json:"remaining"`
}

// BudgetFromDomain converts domain budget to response.
func BudgetFromDomain(b *domain.CampaignBudget) *BudgetResponse {
	if b == nil {
		return nil
	}
	return &BudgetResponse{CampaignBudget: b, Remaining: b.Remaining()}
}

// SpendResponse is returned for a booked spend event.
type SpendResponse struct {
	Budget     *BudgetResponse  `json:"budget"`
	Account    *AccountResponse `json:"account,omitempty"`
	SpentToday decimal.Decimal  `json:"spent_today"`
}

// TransitionResponse is returned for a lifecycle transition.
type TransitionResponse struct {
	Budget   *BudgetResponse       `json:"budget"`
	From     domain.CampaignStatus `json:"from"`
	To       domain.CampaignStatus `json:"to"`
	Released decimal.Decimal       `json:"released"`
}

// SettleResponse is returned for a settlement.
type SettleResponse struct {
	Budget   *BudgetResponse `json:"budget"`
	Released decimal.Decimal `json:"released"`
}

// EntriesResponse is a page of journal entries.
type EntriesResponse struct {
	Entries []*domain.LedgerEntry `json:"entries"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// DailySpendResponse lists per-day spend of a campaign.
type DailySpendResponse struct {
	CampaignID string                     `json:"campaign_id"`
	Days       []*domain.DailySpendRecord `json:"days"`
}

// AuditLogResponse represents an audit row in API responses.
type AuditLogResponse struct {
	ID           string      `json:"id"`
	ActorID      string      `json:"actor_id"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	RequestID    string      `json:"request_id,omitempty"`
	BeforeState  domain.JSON `json:"before_state,omitempty"`
	AfterState   domain.JSON `json:"after_state,omitempty"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuditLogsFromDomain converts audit rows to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:           l.ID,
			ActorID:      l.ActorID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			ErrorMessage: l.ErrorMessage,
			CreatedAt:    l.CreatedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
