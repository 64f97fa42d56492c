package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CampaignStatus string

const (
	CampaignStatusDraft           CampaignStatus = "draft"
	CampaignStatusPendingApproval CampaignStatus = "pending_approval"
	CampaignStatusActive          CampaignStatus = "active"
	CampaignStatusPaused          CampaignStatus = "paused"
	CampaignStatusRejected        CampaignStatus = "rejected"
	CampaignStatusCompleted       CampaignStatus = "completed"
	CampaignStatusArchived        CampaignStatus = "archived"
)

// IsValid reports whether s is a known status.
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusPendingApproval, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusRejected, CampaignStatusCompleted, CampaignStatusArchived:
		return true
	}
	return false
}

// IsClosed reports whether the campaign has reached a settling status.
func (s CampaignStatus) IsClosed() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusArchived
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// CampaignBudget is the budget custody record embedded in a campaign.
// While the campaign is unsettled, the owner's hold attributable to it equals
// BudgetTotal - BudgetSpent.
type CampaignBudget struct {
	CampaignID          string           `json:"campaign_id"`
	UserID              string           `json:"user_id"`
	Currency            string           `json:"currency"`
	BudgetTotal         decimal.Decimal  `json:"budget_total"`
	BudgetDaily         *decimal.Decimal `json:"budget_daily,omitempty"`
	BudgetSpent         decimal.Decimal  `json:"budget_spent"`
	Status              CampaignStatus   `json:"status"`
	ApprovalStatus      ApprovalStatus   `json:"approval_status"`
	CreativeCount       int              `json:"creative_count"`
	TargetingConfigured bool             `json:"targeting_configured"`
	StartDate           *time.Time       `json:"start_date,omitempty"`
	EndDate             *time.Time       `json:"end_date,omitempty"`
	ActivatedAt         *time.Time       `json:"activated_at,omitempty"`
	SettledAt           *time.Time       `json:"settled_at,omitempty"`
	Version             int64            `json:"version"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Remaining returns the unspent reservation, or zero once settled.
func (b *CampaignBudget) Remaining() decimal.Decimal {
	if b.IsSettled() {
		return decimal.Zero
	}
	return b.BudgetTotal.Sub(b.BudgetSpent)
}

// IsSettled reports whether the unspent reservation was already released.
func (b *CampaignBudget) IsSettled() bool {
	return b.SettledAt != nil
}

// AcceptsSpend reports whether delivery costs may still be booked.
// Paused campaigns accept spend so that accruals delivered before the pause
// are not lost.
func (b *CampaignBudget) AcceptsSpend() bool {
	if b.IsSettled() {
		return false
	}
	return b.Status == CampaignStatusActive || b.Status == CampaignStatusPaused
}

// CheckSpend validates a spend of amount against the total budget.
func (b *CampaignBudget) CheckSpend(amount decimal.Decimal) error {
	if b.BudgetSpent.Add(amount).GreaterThan(b.BudgetTotal) {
		return ErrBudgetExceeded
	}
	return nil
}

// ReadyToLaunch reports whether every launch precondition holds.
func (b *CampaignBudget) ReadyToLaunch() bool {
	return b.ApprovalStatus == ApprovalApproved &&
		b.CreativeCount > 0 &&
		b.TargetingConfigured &&
		b.Remaining().IsPositive()
}

// CanResume reports whether a paused campaign may go live again at now.
func (b *CampaignBudget) CanResume(now time.Time) bool {
	if !b.Remaining().IsPositive() {
		return false
	}
	return b.EndDate == nil || !now.After(*b.EndDate)
}
