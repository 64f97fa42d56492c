package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// CampaignBudgetController reserves, adjusts, spends and settles campaign
// budgets on top of the AccountLedger primitives.
type CampaignBudgetController struct {
	core
	ledger *AccountLedger
	caps   *SpendCapEnforcer
}

// NewCampaignBudgetController creates a new CampaignBudgetController.
func NewCampaignBudgetController(stores Stores, ledger *AccountLedger, caps *SpendCapEnforcer, opts ...Option) *CampaignBudgetController {
	return &CampaignBudgetController{
		core:   newCore(stores, opts),
		ledger: ledger,
		caps:   caps,
	}
}

// ReserveBudgetInput represents input for reserving a campaign budget.
type ReserveBudgetInput struct {
	UserID         string           `json:"user_id"`
	CampaignID     string           `json:"campaign_id"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency,omitempty"`
	DailyBudget    *decimal.Decimal `json:"daily_budget,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	IdempotencyKey string           `json:"-"`
}

// AdjustBudgetInput represents input for changing a campaign's total budget.
type AdjustBudgetInput struct {
	UserID         string          `json:"user_id"`
	CampaignID     string          `json:"campaign_id"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	IdempotencyKey string          `json:"-"`
}

// ProcessSpendInput represents one delivery cost accrual.
type ProcessSpendInput struct {
	CampaignID     string          `json:"campaign_id"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"-"`
}

// SpendResult is the state after a spend was booked.
type SpendResult struct {
	Budget     *domain.CampaignBudget `json:"budget"`
	Account    *domain.Account        `json:"account"`
	SpentToday decimal.Decimal        `json:"spent_today"`
}

// SettleResult reports the amount released by a settlement.
type SettleResult struct {
	Budget   *domain.CampaignBudget `json:"budget"`
	Released decimal.Decimal        `json:"released"`
}

// UpdateTermsInput changes the schedule, daily cap or currency of a budget.
// Nil fields are left unchanged.
type UpdateTermsInput struct {
	UserID           string
	CampaignID       string
	DailyBudget      *decimal.Decimal
	ClearDailyBudget bool
	StartDate        *time.Time
	EndDate          *time.Time
	Currency         string
}

// UpdateReadinessInput records the launch facts owned by the campaign CRUD
// and moderation layers.
type UpdateReadinessInput struct {
	CampaignID          string
	Approval            domain.ApprovalStatus
	CreativeCount       int
	TargetingConfigured bool
}

// GetBudget returns the committed state of a campaign budget.
func (c *CampaignBudgetController) GetBudget(ctx context.Context, campaignID string) (*domain.CampaignBudget, error) {
	if err := domain.ValidateID("campaign", campaignID); err != nil {
		return nil, err
	}

	return c.stores.Budgets.GetByID(ctx, campaignID)
}

// ReserveBudget holds amount against a new or draft campaign. Reserving an
// existing draft again holds or releases the difference to the current total.
func (c *CampaignBudgetController) ReserveBudget(ctx context.Context, input ReserveBudgetInput) (*domain.CampaignBudget, error) {
	if err := c.validateReserve(&input); err != nil {
		return nil, err
	}

	var budget *domain.CampaignBudget

	err := c.execute(ctx, scopeReserveBudget, input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		result, replayed, err := idempotent(ctx, tx, c.stores.Idempotency, scopeReserveBudget, input.IdempotencyKey, input, now,
			func() (*domain.CampaignBudget, error) {
				return c.reserve(ctx, tx, input, now)
			})
		if err != nil {
			return err
		}

		if replayed {
			c.replayed(scopeReserveBudget)
		}

		budget = result

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.observeAmount(scopeReserveBudget, input.Amount)

	return budget, nil
}

func (c *CampaignBudgetController) validateReserve(input *ReserveBudgetInput) error {
	if err := domain.ValidateID("user", input.UserID); err != nil {
		return err
	}

	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return err
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	if input.DailyBudget != nil {
		if err := domain.ValidateAmount(*input.DailyBudget); err != nil {
			return err
		}
	}

	if input.Currency != "" {
		currency, err := domain.NormalizeCurrency(input.Currency)
		if err != nil {
			return err
		}
		input.Currency = currency
	}

	return validateSchedule(input.StartDate, input.EndDate)
}

func (c *CampaignBudgetController) reserve(ctx context.Context, tx Transaction, input ReserveBudgetInput, now time.Time) (*domain.CampaignBudget, error) {
	account, err := c.stores.Accounts.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if account.IsArchived() {
		return nil, domain.ErrAccountArchived
	}

	if input.Currency != "" && input.Currency != account.Currency {
		return nil, domain.ErrCurrencyMismatch
	}

	created, err := c.stores.Budgets.CreateDraft(ctx, tx, &domain.CampaignBudget{
		CampaignID:     input.CampaignID,
		UserID:         input.UserID,
		Currency:       account.Currency,
		BudgetTotal:    decimal.Zero,
		BudgetSpent:    decimal.Zero,
		Status:         domain.CampaignStatusDraft,
		ApprovalStatus: domain.ApprovalPending,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, err
	}

	budget, err := c.lockOwned(ctx, tx, input.CampaignID, input.UserID)
	if err != nil {
		return nil, err
	}

	if budget.Status != domain.CampaignStatusDraft || budget.IsSettled() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrBudgetNotReservable, budget.Status)
	}

	if err := c.moveHold(ctx, tx, budget, input.Amount.Sub(budget.BudgetTotal), "budget reservation", input.IdempotencyKey, now); err != nil {
		return nil, err
	}

	budget.BudgetTotal = input.Amount
	budget.BudgetSpent = decimal.Zero
	budget.BudgetDaily = input.DailyBudget
	budget.StartDate = input.StartDate
	budget.EndDate = input.EndDate
	budget.UpdatedAt = now

	if err := c.stores.Budgets.Update(ctx, tx, budget); err != nil {
		return nil, err
	}

	err = c.emit(ctx, tx, domain.AggregateTypeCampaign, budget.CampaignID, domain.EventTypeBudgetReserved, map[string]any{
		"campaign_id":  budget.CampaignID,
		"user_id":      budget.UserID,
		"budget_total": budget.BudgetTotal.String(),
		"created":      created,
	}, now)
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// AdjustBudget changes the total budget of a campaign that is not live,
// holding or releasing the difference.
func (c *CampaignBudgetController) AdjustBudget(ctx context.Context, input AdjustBudgetInput) (*domain.CampaignBudget, error) {
	if err := domain.ValidateID("user", input.UserID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(input.NewAmount); err != nil {
		return nil, err
	}

	var budget *domain.CampaignBudget

	err := c.execute(ctx, scopeAdjustBudget, input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		result, replayed, err := idempotent(ctx, tx, c.stores.Idempotency, scopeAdjustBudget, input.IdempotencyKey, input, now,
			func() (*domain.CampaignBudget, error) {
				return c.adjust(ctx, tx, input, now)
			})
		if err != nil {
			return err
		}

		if replayed {
			c.replayed(scopeAdjustBudget)
		}

		budget = result

		return nil
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

func (c *CampaignBudgetController) adjust(ctx context.Context, tx Transaction, input AdjustBudgetInput, now time.Time) (*domain.CampaignBudget, error) {
	budget, err := c.lockOwned(ctx, tx, input.CampaignID, input.UserID)
	if err != nil {
		return nil, err
	}

	if budget.IsSettled() || budget.Status.IsClosed() {
		return nil, domain.ErrBudgetSettled
	}

	if budget.Status == domain.CampaignStatusActive {
		return nil, domain.ErrBudgetLockedWhileActive
	}

	if input.NewAmount.LessThan(budget.BudgetSpent) {
		return nil, fmt.Errorf("%w: spent %s", domain.ErrBudgetBelowSpent, budget.BudgetSpent)
	}

	previous := budget.BudgetTotal

	// newAmount >= spent, so a decrease never exceeds the remaining hold.
	if err := c.moveHold(ctx, tx, budget, input.NewAmount.Sub(previous), "budget adjustment", input.IdempotencyKey, now); err != nil {
		return nil, err
	}

	budget.BudgetTotal = input.NewAmount
	budget.UpdatedAt = now

	if err := c.stores.Budgets.Update(ctx, tx, budget); err != nil {
		return nil, err
	}

	err = c.emit(ctx, tx, domain.AggregateTypeCampaign, budget.CampaignID, domain.EventTypeBudgetAdjusted, map[string]any{
		"campaign_id":     budget.CampaignID,
		"previous_total":  previous.String(),
		"budget_total":    budget.BudgetTotal.String(),
		"budget_spent":    budget.BudgetSpent.String(),
		"remaining_total": budget.Remaining().String(),
	}, now)
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// ProcessSpend books a delivery cost against a campaign: the held funds are
// converted to spend, budget_spent grows and the daily record is updated in
// one transaction. The campaign row lock serializes spends per campaign.
func (c *CampaignBudgetController) ProcessSpend(ctx context.Context, input ProcessSpendInput) (*SpendResult, error) {
	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateReason(input.Reason); err != nil {
		return nil, err
	}

	var result *SpendResult

	err := c.execute(ctx, scopeProcessSpend, input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		spent, replayed, err := idempotent(ctx, tx, c.stores.Idempotency, scopeProcessSpend, input.IdempotencyKey, input, now,
			func() (*SpendResult, error) {
				return c.spend(ctx, tx, input, now)
			})
		if err != nil {
			return err
		}

		if replayed {
			c.replayed(scopeProcessSpend)
		}

		result = spent

		return nil
	})
	if err != nil {
		c.spendRejected(err)
		return nil, err
	}

	c.observeAmount(scopeProcessSpend, input.Amount)

	return result, nil
}

func (c *CampaignBudgetController) spend(ctx context.Context, tx Transaction, input ProcessSpendInput, now time.Time) (*SpendResult, error) {
	budget, err := c.stores.Budgets.GetByIDForUpdate(ctx, tx, input.CampaignID)
	if err != nil {
		return nil, err
	}

	if !budget.AcceptsSpend() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrSpendNotAllowed, budget.Status)
	}

	if err := budget.CheckSpend(input.Amount); err != nil {
		return nil, fmt.Errorf("%w: spent %s of %s", err, budget.BudgetSpent, budget.BudgetTotal)
	}

	day := domain.SpendDate(now, c.opts.location)

	spentToday, err := c.caps.spentOn(ctx, tx, input.CampaignID, day)
	if err != nil {
		return nil, err
	}

	if err := c.caps.CheckDailyCap(budget, spentToday, input.Amount); err != nil {
		return nil, err
	}

	account, err := c.ledger.apply(ctx, tx, domain.EntryKindSpend, MutationInput{
		UserID:         budget.UserID,
		CampaignID:     budget.CampaignID,
		Amount:         input.Amount,
		Reason:         input.Reason,
		IdempotencyKey: input.IdempotencyKey,
	}, now)
	if err != nil {
		return nil, err
	}

	updated, err := c.stores.Budgets.AddSpend(ctx, tx, input.CampaignID, input.Amount, now)
	if errors.Is(err, domain.ErrGuardRejected) {
		return nil, domain.ErrBudgetExceeded
	}
	if err != nil {
		return nil, err
	}

	record, err := c.caps.record(ctx, tx, input.CampaignID, day, input.Amount, now)
	if err != nil {
		return nil, err
	}

	err = c.emit(ctx, tx, domain.AggregateTypeCampaign, updated.CampaignID, domain.EventTypeBudgetSpent, map[string]any{
		"campaign_id":  updated.CampaignID,
		"user_id":      updated.UserID,
		"amount":       input.Amount.String(),
		"budget_spent": updated.BudgetSpent.String(),
		"spent_today":  record.AmountSpent.String(),
		"reason":       input.Reason,
	}, now)
	if err != nil {
		return nil, err
	}

	return &SpendResult{
		Budget:     updated,
		Account:    account,
		SpentToday: record.AmountSpent,
	}, nil
}

func (c *CampaignBudgetController) spendRejected(err error) {
	if c.opts.metrics == nil {
		return
	}

	var reason string
	switch {
	case errors.Is(err, domain.ErrBudgetExceeded):
		reason = "budget_exceeded"
	case errors.Is(err, domain.ErrDailyCapExceeded):
		reason = "daily_cap_exceeded"
	case errors.Is(err, domain.ErrOverRelease):
		reason = "over_release"
	case errors.Is(err, domain.ErrInvalidState):
		reason = "invalid_state"
	default:
		return
	}

	c.opts.metrics.SpendRejections.WithLabelValues(reason).Inc()
}

// Settle releases the unspent reservation of a completed or archived
// campaign. Settling twice releases nothing the second time.
func (c *CampaignBudgetController) Settle(ctx context.Context, userID, campaignID string) (*SettleResult, error) {
	if err := domain.ValidateID("user", userID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID("campaign", campaignID); err != nil {
		return nil, err
	}

	var result *SettleResult

	err := c.execute(ctx, "settle", campaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		budget, err := c.lockOwned(ctx, tx, campaignID, userID)
		if err != nil {
			return err
		}

		if !budget.Status.IsClosed() {
			return fmt.Errorf("%w: status %s", domain.ErrSettleNotAllowed, budget.Status)
		}

		released, err := c.settleInTx(ctx, tx, budget, now)
		if err != nil {
			return err
		}

		result = &SettleResult{Budget: budget, Released: released}

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.observeSettlement(result.Released)

	return result, nil
}

// settleInTx releases what remains of the budget's hold and stamps it
// settled. The budget must be locked by tx.
func (c *CampaignBudgetController) settleInTx(ctx context.Context, tx Transaction, budget *domain.CampaignBudget, now time.Time) (decimal.Decimal, error) {
	if budget.IsSettled() {
		return decimal.Zero, nil
	}

	before := *budget
	released := budget.BudgetTotal.Sub(budget.BudgetSpent)

	if released.IsPositive() {
		_, err := c.ledger.apply(ctx, tx, domain.EntryKindRelease, MutationInput{
			UserID:     budget.UserID,
			CampaignID: budget.CampaignID,
			Amount:     released,
			Reason:     "campaign settlement",
		}, now)
		if err != nil {
			return decimal.Zero, err
		}
	}

	budget.SettledAt = &now
	budget.UpdatedAt = now

	if err := c.stores.Budgets.Update(ctx, tx, budget); err != nil {
		return decimal.Zero, err
	}

	err := c.emit(ctx, tx, domain.AggregateTypeCampaign, budget.CampaignID, domain.EventTypeBudgetSettled, map[string]any{
		"campaign_id":  budget.CampaignID,
		"user_id":      budget.UserID,
		"budget_spent": budget.BudgetSpent.String(),
		"released":     released.String(),
	}, now)
	if err != nil {
		return decimal.Zero, err
	}

	err = c.audit(ctx, tx, domain.AuditActionCampaignSettle, domain.AggregateTypeCampaign, budget.CampaignID, before, budget, now)
	if err != nil {
		return decimal.Zero, err
	}

	return released, nil
}

func (c *CampaignBudgetController) observeSettlement(released decimal.Decimal) {
	if c.opts.metrics == nil || !released.IsPositive() {
		return
	}
	c.opts.metrics.Settlements.Inc()
	c.opts.metrics.BudgetReleased.Add(released.InexactFloat64())
}

// UpdateTerms changes the daily cap, schedule or currency of a budget. Start
// date and currency are frozen while the campaign is active.
func (c *CampaignBudgetController) UpdateTerms(ctx context.Context, input UpdateTermsInput) (*domain.CampaignBudget, error) {
	if err := domain.ValidateID("user", input.UserID); err != nil {
		return nil, err
	}

	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	if input.DailyBudget != nil {
		if err := domain.ValidateAmount(*input.DailyBudget); err != nil {
			return nil, err
		}
	}

	if input.Currency != "" {
		currency, err := domain.NormalizeCurrency(input.Currency)
		if err != nil {
			return nil, err
		}
		input.Currency = currency
	}

	var budget *domain.CampaignBudget

	err := c.execute(ctx, "update_terms", input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		locked, err := c.lockOwned(ctx, tx, input.CampaignID, input.UserID)
		if err != nil {
			return err
		}

		if locked.IsSettled() || locked.Status.IsClosed() {
			return domain.ErrBudgetSettled
		}

		active := locked.Status == domain.CampaignStatusActive

		if input.StartDate != nil && !sameTime(locked.StartDate, input.StartDate) {
			if active {
				return domain.ErrBudgetLockedWhileActive
			}
			locked.StartDate = input.StartDate
		}

		if input.Currency != "" && input.Currency != locked.Currency {
			if active {
				return domain.ErrBudgetLockedWhileActive
			}
			// Holds live in the account's currency.
			return domain.ErrCurrencyMismatch
		}

		if input.EndDate != nil {
			locked.EndDate = input.EndDate
		}

		switch {
		case input.ClearDailyBudget:
			locked.BudgetDaily = nil
		case input.DailyBudget != nil:
			locked.BudgetDaily = input.DailyBudget
		}

		if err := validateSchedule(locked.StartDate, locked.EndDate); err != nil {
			return err
		}

		locked.UpdatedAt = now

		if err := c.stores.Budgets.Update(ctx, tx, locked); err != nil {
			return err
		}

		payload := map[string]any{
			"campaign_id": locked.CampaignID,
			"terms":       true,
		}
		if locked.BudgetDaily != nil {
			payload["budget_daily"] = locked.BudgetDaily.String()
		}

		if err := c.emit(ctx, tx, domain.AggregateTypeCampaign, locked.CampaignID, domain.EventTypeBudgetAdjusted, payload, now); err != nil {
			return err
		}

		budget = locked

		return nil
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// UpdateReadiness records approval, creative and targeting facts consulted
// by the launch guard.
func (c *CampaignBudgetController) UpdateReadiness(ctx context.Context, input UpdateReadinessInput) (*domain.CampaignBudget, error) {
	if err := domain.ValidateID("campaign", input.CampaignID); err != nil {
		return nil, err
	}

	switch input.Approval {
	case domain.ApprovalPending, domain.ApprovalApproved, domain.ApprovalRejected:
	default:
		return nil, fmt.Errorf("%w: approval status %q", domain.ErrValidation, input.Approval)
	}

	if input.CreativeCount < 0 {
		return nil, fmt.Errorf("%w: creative count must not be negative", domain.ErrValidation)
	}

	var budget *domain.CampaignBudget

	err := c.execute(ctx, "update_readiness", input.CampaignID, func(ctx context.Context, tx Transaction) error {
		now := c.now()

		locked, err := c.stores.Budgets.GetByIDForUpdate(ctx, tx, input.CampaignID)
		if err != nil {
			return err
		}

		if locked.Status == domain.CampaignStatusArchived {
			return fmt.Errorf("%w: status %s", domain.ErrInvalidState, locked.Status)
		}

		before := *locked

		locked.ApprovalStatus = input.Approval
		locked.CreativeCount = input.CreativeCount
		locked.TargetingConfigured = input.TargetingConfigured
		locked.UpdatedAt = now

		if err := c.stores.Budgets.Update(ctx, tx, locked); err != nil {
			return err
		}

		budget = locked

		return c.audit(ctx, tx, domain.AuditActionCampaignReadiness, domain.AggregateTypeCampaign, locked.CampaignID, before, locked, now)
	})
	if err != nil {
		return nil, err
	}

	return budget, nil
}

// lockOwned locks the campaign row and checks that userID owns it.
func (c *CampaignBudgetController) lockOwned(ctx context.Context, tx Transaction, campaignID, userID string) (*domain.CampaignBudget, error) {
	budget, err := c.stores.Budgets.GetByIDForUpdate(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}

	if budget.UserID != userID {
		return nil, domain.ErrCampaignOwnerMismatch
	}

	return budget, nil
}

// moveHold holds a positive delta or releases a negative one against the
// budget owner's account.
func (c *CampaignBudgetController) moveHold(ctx context.Context, tx Transaction, budget *domain.CampaignBudget, delta decimal.Decimal, reason, key string, now time.Time) error {
	if delta.IsZero() {
		return nil
	}

	kind := domain.EntryKindHold
	if delta.IsNegative() {
		kind = domain.EntryKindRelease
	}

	_, err := c.ledger.apply(ctx, tx, kind, MutationInput{
		UserID:         budget.UserID,
		CampaignID:     budget.CampaignID,
		Amount:         delta.Abs(),
		Reason:         reason,
		IdempotencyKey: key,
	}, now)

	return err
}

func validateSchedule(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.ErrInvalidSchedule
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
