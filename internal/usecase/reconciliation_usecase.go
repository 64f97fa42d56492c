package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	budgetRepo  CampaignBudgetRepository
	entryRepo   LedgerEntryRepository
	ledgerRepo  LedgerRepository
	logger      zerolog.Logger
	clock       func() time.Time
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(stores Stores, opts ...Option) *ReconciliationUseCase {
	o := buildOptions(opts)

	return &ReconciliationUseCase{
		accountRepo: stores.Accounts,
		budgetRepo:  stores.Budgets,
		entryRepo:   stores.Entries,
		ledgerRepo:  stores.Ledger,
		logger:      o.logger,
		clock:       o.clock,
	}
}

// ReconciliationResult compares an account's stored figures with its journal
// and with the holds its campaigns account for.
type ReconciliationResult struct {
	UserID            string          `json:"user_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	JournalBalance    decimal.Decimal `json:"journal_balance"`
	RecordedOnHold    decimal.Decimal `json:"recorded_on_hold"`
	JournalOnHold     decimal.Decimal `json:"journal_on_hold"`
	AttributedOnHold  decimal.Decimal `json:"attributed_on_hold"`
	BalanceDifference decimal.Decimal `json:"balance_difference"`
	HoldDifference    decimal.Decimal `json:"hold_difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconcileAccount checks one account against its journal. The hold is
// expected to equal the remaining budgets of the user's unsettled campaigns
// plus any hold placed without a campaign.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, userID string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals, err := uc.entryRepo.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}

	campaignHold, err := uc.budgetRepo.SumUnsettledRemaining(ctx, userID)
	if err != nil {
		return nil, err
	}

	attributed := campaignHold.Add(totals.UnattributedOnHold)

	result := &ReconciliationResult{
		UserID:            userID,
		RecordedBalance:   account.Balance,
		JournalBalance:    totals.Balance,
		RecordedOnHold:    account.BalanceOnHold,
		JournalOnHold:     totals.OnHold,
		AttributedOnHold:  attributed,
		BalanceDifference: account.Balance.Sub(totals.Balance),
		HoldDifference:    account.BalanceOnHold.Sub(attributed),
		LastChecked:       uc.clock(),
	}

	result.IsReconciled = result.BalanceDifference.IsZero() &&
		account.BalanceOnHold.Equal(totals.OnHold) &&
		result.HoldDifference.IsZero()

	if !result.IsReconciled {
		uc.logger.Warn().
			Str("user_id", userID).
			Str("balance_difference", result.BalanceDifference.String()).
			Str("hold_difference", result.HoldDifference.String()).
			Msg("account does not reconcile")
	}

	return result, nil
}

// ReconcileAllAccounts reconciles all accounts in the system
func (uc *ReconciliationUseCase) ReconcileAllAccounts(ctx context.Context) ([]*ReconciliationResult, error) {
	limit, _ := domain.ValidatePagination(1000, 0)

	var results []*ReconciliationResult
	for offset := 0; ; offset += limit {
		accounts, err := uc.accountRepo.List(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, account := range accounts {
			result, err := uc.ReconcileAccount(ctx, account.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile account %s: %w", account.UserID, err)
			}
			results = append(results, result)
		}

		if len(accounts) < limit {
			return results, nil
		}
	}
}

// CheckLedgerConsistency verifies that the sum of all balances equals the
// sum of all journaled balance movements.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	recorded, journal, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	if !recorded.Equal(journal) {
		return fmt.Errorf(
			"ledger inconsistency detected: balances=%s journal=%s difference=%s",
			recorded.String(),
			journal.String(),
			recorded.Sub(journal).String(),
		)
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalAccounts      int                     `json:"total_accounts"`
	ReconciledAccounts int                     `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResult `json:"discrepancies"`
	LedgerConsistent   bool                    `json:"ledger_consistent"`
	LedgerError        string                  `json:"ledger_error,omitempty"`
	CheckedAt          time.Time               `json:"checked_at"`
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	// Reconcile all accounts
	results, err := uc.ReconcileAllAccounts(ctx)
	if err != nil {
		return nil, err
	}

	// Check ledger consistency
	ledgerErr := uc.CheckLedgerConsistency(ctx)

	// Build report
	report := &ReconciliationReport{
		TotalAccounts:    len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        uc.clock(),
	}

	if ledgerErr != nil {
		report.LedgerError = ledgerErr.Error()
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
