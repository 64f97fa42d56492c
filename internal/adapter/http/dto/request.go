package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	UserID   string `json:"user_id"`
	Currency string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *OpenAccountRequest) ToUseCaseInput() usecase.OpenAccountInput {
	return usecase.OpenAccountInput{
		UserID:   r.UserID,
		Currency: r.Currency,
	}
}

// AmountRequest is the body of deposits and withdrawals.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *AmountRequest) ToUseCaseInput(userID, idempotencyKey string) usecase.MutationInput {
	return usecase.MutationInput{
		UserID:         userID,
		Amount:         r.Amount,
		Reason:         r.Reason,
		IdempotencyKey: idempotencyKey,
	}
}

// TransferRequest represents a request to move funds between users.
type TransferRequest struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput(idempotencyKey string) usecase.TransferInput {
	return usecase.TransferInput{
		FromUserID:     r.FromUserID,
		ToUserID:       r.ToUserID,
		Amount:         r.Amount,
		Reason:         r.Reason,
		IdempotencyKey: idempotencyKey,
	}
}

// ReserveBudgetRequest reserves a campaign budget from the owner's balance.
type ReserveBudgetRequest struct {
	UserID      string           `json:"user_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency,omitempty"`
	DailyBudget *decimal.Decimal `json:"daily_budget,omitempty"`
	StartDate   *time.Time       `json:"start_date,omitempty"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReserveBudgetRequest) ToUseCaseInput(campaignID, idempotencyKey string) usecase.ReserveBudgetInput {
	return usecase.ReserveBudgetInput{
		UserID:         r.UserID,
		CampaignID:     campaignID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		DailyBudget:    r.DailyBudget,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		IdempotencyKey: idempotencyKey,
	}
}

// AdjustBudgetRequest changes a campaign's total budget.
type AdjustBudgetRequest struct {
	UserID    string          `json:"user_id"`
	NewAmount decimal.Decimal `json:"new_amount"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustBudgetRequest) ToUseCaseInput(campaignID, idempotencyKey string) usecase.AdjustBudgetInput {
	return usecase.AdjustBudgetInput{
		UserID:         r.UserID,
		CampaignID:     campaignID,
		NewAmount:      r.NewAmount,
		IdempotencyKey: idempotencyKey,
	}
}

// UpdateTermsRequest changes the schedule, daily cap or currency.
type UpdateTermsRequest struct {
	UserID           string           `json:"user_id"`
	DailyBudget      *decimal.Decimal `json:"daily_budget,omitempty"`
	ClearDailyBudget bool             `json:"clear_daily_budget,omitempty"`
	StartDate        *time.Time       `json:"start_date,omitempty"`
	EndDate          *time.Time       `json:"end_date,omitempty"`
	Currency         string           `json:"currency,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateTermsRequest) ToUseCaseInput(campaignID string) usecase.UpdateTermsInput {
	return usecase.UpdateTermsInput{
		UserID:           r.UserID,
		CampaignID:       campaignID,
		DailyBudget:      r.DailyBudget,
		ClearDailyBudget: r.ClearDailyBudget,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Currency:         r.Currency,
	}
}

// UpdateReadinessRequest records review and setup progress of a campaign.
type UpdateReadinessRequest struct {
	Approval            domain.ApprovalStatus `json:"approval"`
	CreativeCount       int                   `json:"creative_count"`
	TargetingConfigured bool                  `json:"targeting_configured"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateReadinessRequest) ToUseCaseInput(campaignID string) usecase.UpdateReadinessInput {
	return usecase.UpdateReadinessInput{
		CampaignID:          campaignID,
		Approval:            r.Approval,
		CreativeCount:       r.CreativeCount,
		TargetingConfigured: r.TargetingConfigured,
	}
}

// SpendRequest books a delivery cost against a campaign.
type SpendRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *SpendRequest) ToUseCaseInput(campaignID, idempotencyKey string) usecase.ProcessSpendInput {
	return usecase.ProcessSpendInput{
		CampaignID:     campaignID,
		Amount:         r.Amount,
		Reason:         r.Reason,
		IdempotencyKey: idempotencyKey,
	}
}

// TransitionRequest moves a campaign through its lifecycle.
type TransitionRequest struct {
	UserID string                 `json:"user_id,omitempty"`
	Action domain.LifecycleAction `json:"action"`
}

// ToUseCaseInput converts to use case input.
func (r *TransitionRequest) ToUseCaseInput(campaignID, idempotencyKey string) usecase.TransitionInput {
	return usecase.TransitionInput{
		CampaignID:     campaignID,
		UserID:         r.UserID,
		Action:         r.Action,
		IdempotencyKey: idempotencyKey,
	}
}

// SettleRequest releases the unspent budget of a closed campaign.
type SettleRequest struct {
	UserID string `json:"user_id"`
}
