package domain

import "time"

// Event types
const (
	EventTypeAccountOpened        = "account.opened"
	EventTypeAccountArchived      = "account.archived"
	EventTypeFundsDeposited       = "funds.deposited"
	EventTypeFundsWithdrawn       = "funds.withdrawn"
	EventTypeFundsHeld            = "funds.held"
	EventTypeFundsReleased        = "funds.released"
	EventTypeFundsSpent           = "funds.spent"
	EventTypeFundsTransferred     = "funds.transferred"
	EventTypeBudgetReserved       = "budget.reserved"
	EventTypeBudgetAdjusted       = "budget.adjusted"
	EventTypeBudgetSpent          = "budget.spent"
	EventTypeBudgetSettled        = "budget.settled"
	EventTypeCampaignStatusChange = "campaign.status_changed"
)

// Aggregate types
const (
	AggregateTypeAccount  = "account"
	AggregateTypeCampaign = "campaign"
	AggregateTypeTransfer = "transfer"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}
