package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// CampaignLifecycleGate moves campaigns through their status machine and
// settles the budget when a campaign closes.
type CampaignLifecycleGate struct {
	core
	budgets *CampaignBudgetController
}

// NewCampaignLifecycleGate creates a new CampaignLifecycleGate.
func NewCampaignLifecycleGate(stores Stores, budgets *CampaignBudgetController, opts ...Option) *CampaignLifecycleGate {
	return &CampaignLifecycleGate{
		core:    newCore(stores, opts),
		budgets: budgets,
	}
}

// TransitionInput represents a lifecycle action on a campaign. An empty
// UserID skips the ownership check for internal callers.
type TransitionInput struct {
	CampaignID     string                 `json:"campaign_id"`
	UserID         string                 `json:"user_id,omitempty"`
	Action         domain.LifecycleAction `json:"action"`
	IdempotencyKey string                 `json:"-"`
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	Budget   *domain.CampaignBudget `json:"budget"`
	From     domain.CampaignStatus  `json:"from"`
	To       domain.CampaignStatus  `json:"to"`
	Released decimal.Decimal        `json:"released"`
}

// Transition applies action to the campaign. Completing or archiving a
// campaign settles its budget in the same transaction.
func (g *CampaignLifecycleGate) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	if input.UserID != "" {
		if err := domain.ValidateID("user", input.UserID); err != nil {
			return nil, err
		}
	}

	var (
		result   *TransitionResult
		replayed bool
	)

	err := g.execute(ctx, scopeTransition, input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := g.now()

		var (
			applied *TransitionResult
			err     error
		)
		applied, replayed, err = idempotent(ctx, tx, g.stores.Idempotency, scopeTransition, input.IdempotencyKey, input, now,
			func() (*TransitionResult, error) {
				return g.transition(ctx, tx, input, now)
			})
		if err != nil {
			return err
		}

		if replayed {
			g.replayed(scopeTransition)
		}

		result = applied

		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		return result, nil
	}

	if g.opts.metrics != nil {
		g.opts.metrics.Transitions.WithLabelValues(string(input.Action)).Inc()
	}

	if input.Action.Settles() {
		g.budgets.observeSettlement(result.Released)
	}

	return result, nil
}

func (g *CampaignLifecycleGate) transition(ctx context.Context, tx Transaction, input TransitionInput, now time.Time) (*TransitionResult, error) {
	budget, err := g.stores.Budgets.GetByIDForUpdate(ctx, tx, input.CampaignID)
	if err != nil {
		return nil, err
	}

	if input.UserID != "" && budget.UserID != input.UserID {
		return nil, domain.ErrCampaignOwnerMismatch
	}

	from := budget.Status

	to, err := domain.NextStatus(input.Action, from)
	if err != nil {
		return nil, err
	}

	if err := checkGuard(input.Action, budget, now); err != nil {
		return nil, err
	}

	before := *budget

	budget.Status = to
	budget.UpdatedAt = now

	switch input.Action {
	case domain.ActionLaunch:
		if budget.ActivatedAt == nil {
			budget.ActivatedAt = &now
		}
	case domain.ActionReject:
		budget.ApprovalStatus = domain.ApprovalRejected
	}

	if err := g.stores.Budgets.Update(ctx, tx, budget); err != nil {
		return nil, err
	}

	released := decimal.Zero
	if input.Action.Settles() {
		released, err = g.budgets.settleInTx(ctx, tx, budget, now)
		if err != nil {
			return nil, err
		}
	}

	err = g.emit(ctx, tx, domain.AggregateTypeCampaign, budget.CampaignID, domain.EventTypeCampaignStatusChange, map[string]any{
		"campaign_id": budget.CampaignID,
		"action":      string(input.Action),
		"from":        string(from),
		"to":          string(to),
		"released":    released.String(),
	}, now)
	if err != nil {
		return nil, err
	}

	err = g.audit(ctx, tx, domain.AuditActionCampaignTransit, domain.AggregateTypeCampaign, budget.CampaignID, before, budget, now)
	if err != nil {
		return nil, err
	}

	return &TransitionResult{
		Budget:   budget,
		From:     from,
		To:       to,
		Released: released,
	}, nil
}

func checkGuard(action domain.LifecycleAction, budget *domain.CampaignBudget, now time.Time) error {
	switch action {
	case domain.ActionLaunch:
		if !budget.ReadyToLaunch() {
			return fmt.Errorf("%w: approval %s, %d creatives, targeting configured %t, remaining %s",
				domain.ErrLaunchRequirements, budget.ApprovalStatus, budget.CreativeCount,
				budget.TargetingConfigured, budget.Remaining())
		}
	case domain.ActionResume:
		if !budget.CanResume(now) {
			return fmt.Errorf("%w: remaining %s", domain.ErrResumeRequirements, budget.Remaining())
		}
	}
	return nil
}
