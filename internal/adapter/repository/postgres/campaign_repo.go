package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/infrastructure/postgres/generated"
	"github.com/iho/adledger/internal/usecase"
)

// CampaignBudgetRepository implements usecase.CampaignBudgetRepository.
type CampaignBudgetRepository struct {
	db generated.DBTX
}

// NewCampaignBudgetRepository creates a new CampaignBudgetRepository.
func NewCampaignBudgetRepository(db generated.DBTX) *CampaignBudgetRepository {
	return &CampaignBudgetRepository{db: db}
}

// CreateDraft inserts a draft budget unless the campaign already has one.
func (r *CampaignBudgetRepository) CreateDraft(ctx context.Context, tx usecase.Transaction, budget *domain.CampaignBudget) (bool, error) {
	n, err := queriesFor(r.db, tx).CreateDraftBudget(ctx, generated.CreateDraftBudgetParams{
		CampaignID:     budget.CampaignID,
		UserID:         budget.UserID,
		Currency:       budget.Currency,
		BudgetTotal:    decimalToNumeric(budget.BudgetTotal),
		BudgetSpent:    decimalToNumeric(budget.BudgetSpent),
		Status:         string(budget.Status),
		ApprovalStatus: string(budget.ApprovalStatus),
		Version:        budget.Version,
		CreatedAt:      timeToPgTimestamptz(budget.CreatedAt),
		UpdatedAt:      timeToPgTimestamptz(budget.UpdatedAt),
	})
	if err != nil {
		if pgErrorCode(err) == pgErrForeignKeyViolation {
			return false, domain.ErrAccountNotFound
		}

		return false, err
	}

	return n > 0, nil
}

// GetByID retrieves a committed budget.
func (r *CampaignBudgetRepository) GetByID(ctx context.Context, campaignID string) (*domain.CampaignBudget, error) {
	row, err := generated.New(r.db).GetCampaignBudget(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}

		return nil, err
	}

	return rowToCampaignBudget(row), nil
}

// GetByIDForUpdate retrieves the budget and locks its row until tx ends.
func (r *CampaignBudgetRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, campaignID string) (*domain.CampaignBudget, error) {
	row, err := queriesFor(r.db, tx).GetCampaignBudgetForUpdate(ctx, campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}

		return nil, err
	}

	return rowToCampaignBudget(row), nil
}

// Update writes budget if its version is unchanged and bumps budget.Version
// to match the stored row.
func (r *CampaignBudgetRepository) Update(ctx context.Context, tx usecase.Transaction, budget *domain.CampaignBudget) error {
	q := queriesFor(r.db, tx)

	n, err := q.UpdateCampaignBudget(ctx, generated.UpdateCampaignBudgetParams{
		BudgetTotal:         decimalToNumeric(budget.BudgetTotal),
		BudgetDaily:         decimalPtrToNumeric(budget.BudgetDaily),
		BudgetSpent:         decimalToNumeric(budget.BudgetSpent),
		Status:              string(budget.Status),
		ApprovalStatus:      string(budget.ApprovalStatus),
		CreativeCount:       int32(budget.CreativeCount),
		TargetingConfigured: budget.TargetingConfigured,
		StartDate:           timePtrToPgTimestamptz(budget.StartDate),
		EndDate:             timePtrToPgTimestamptz(budget.EndDate),
		ActivatedAt:         timePtrToPgTimestamptz(budget.ActivatedAt),
		SettledAt:           timePtrToPgTimestamptz(budget.SettledAt),
		UpdatedAt:           timeToPgTimestamptz(budget.UpdatedAt),
		CampaignID:          budget.CampaignID,
		Version:             budget.Version,
	})
	if err != nil {
		if pgErrorCode(err) == pgErrCheckViolation {
			return fmt.Errorf("%w: %s", domain.ErrValidation, constraintName(err))
		}

		return err
	}

	if n == 0 {
		if _, err := q.GetCampaignBudget(ctx, budget.CampaignID); errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCampaignNotFound
		}

		return domain.ErrConcurrencyConflict
	}

	budget.Version++

	return nil
}

// AddSpend grows budget_spent in one guarded UPDATE that keeps it within
// budget_total.
func (r *CampaignBudgetRepository) AddSpend(ctx context.Context, tx usecase.Transaction, campaignID string, amount decimal.Decimal, at time.Time) (*domain.CampaignBudget, error) {
	q := queriesFor(r.db, tx)

	row, err := q.AddCampaignSpend(ctx, generated.AddCampaignSpendParams{
		Amount:     decimalToNumeric(amount),
		At:         timeToPgTimestamptz(at),
		CampaignID: campaignID,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		if _, err := q.GetCampaignBudget(ctx, campaignID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrCampaignNotFound
			}

			return nil, err
		}

		return nil, domain.ErrGuardRejected
	}

	return rowToCampaignBudget(row), nil
}

// ListByStatus lists committed budgets in status ordered by campaign id.
func (r *CampaignBudgetRepository) ListByStatus(ctx context.Context, status domain.CampaignStatus, limit, offset int) ([]*domain.CampaignBudget, error) {
	rows, err := generated.New(r.db).ListCampaignBudgetsByStatus(ctx, generated.ListCampaignBudgetsByStatusParams{
		Status: string(status),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	budgets := make([]*domain.CampaignBudget, 0, len(rows))
	for _, row := range rows {
		budgets = append(budgets, rowToCampaignBudget(row))
	}

	return budgets, nil
}

// SumUnsettledRemaining totals the unspent budget of the user's unsettled
// campaigns.
func (r *CampaignBudgetRepository) SumUnsettledRemaining(ctx context.Context, userID string) (decimal.Decimal, error) {
	remaining, err := generated.New(r.db).SumUnsettledRemaining(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(remaining), nil
}

func rowToCampaignBudget(row generated.CampaignBudget) *domain.CampaignBudget {
	return &domain.CampaignBudget{
		CampaignID:          row.CampaignID,
		UserID:              row.UserID,
		Currency:            row.Currency,
		BudgetTotal:         numericToDecimal(row.BudgetTotal),
		BudgetDaily:         numericToDecimalPtr(row.BudgetDaily),
		BudgetSpent:         numericToDecimal(row.BudgetSpent),
		Status:              domain.CampaignStatus(row.Status),
		ApprovalStatus:      domain.ApprovalStatus(row.ApprovalStatus),
		CreativeCount:       int(row.CreativeCount),
		TargetingConfigured: row.TargetingConfigured,
		StartDate:           pgTimestamptzToPtr(row.StartDate),
		EndDate:             pgTimestamptzToPtr(row.EndDate),
		ActivatedAt:         pgTimestamptzToPtr(row.ActivatedAt),
		SettledAt:           pgTimestamptzToPtr(row.SettledAt),
		Version:             row.Version,
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}

// DailySpendRepository implements usecase.DailySpendRepository.
type DailySpendRepository struct {
	db generated.DBTX
}

// NewDailySpendRepository creates a new DailySpendRepository.
func NewDailySpendRepository(db generated.DBTX) *DailySpendRepository {
	return &DailySpendRepository{db: db}
}

// Add upserts the day's record, adding amount to any existing total.
func (r *DailySpendRepository) Add(ctx context.Context, tx usecase.Transaction, campaignID string, date time.Time, amount decimal.Decimal, at time.Time) (*domain.DailySpendRecord, error) {
	row, err := queriesFor(r.db, tx).AddDailySpend(ctx, generated.AddDailySpendParams{
		CampaignID:  campaignID,
		SpendDate:   dateToPgDate(date),
		AmountSpent: decimalToNumeric(amount),
		UpdatedAt:   timeToPgTimestamptz(at),
	})
	if err != nil {
		if pgErrorCode(err) == pgErrForeignKeyViolation {
			return nil, domain.ErrCampaignNotFound
		}

		return nil, err
	}

	return rowToDailySpend(row), nil
}

// AmountOn returns the day's total spend, zero if there is none.
func (r *DailySpendRepository) AmountOn(ctx context.Context, tx usecase.Transaction, campaignID string, date time.Time) (decimal.Decimal, error) {
	amount, err := queriesFor(r.db, tx).GetDailySpend(ctx, generated.GetDailySpendParams{
		CampaignID: campaignID,
		SpendDate:  dateToPgDate(date),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}

		return decimal.Zero, err
	}

	return numericToDecimal(amount), nil
}

// ListRange returns the campaign's records from from to to inclusive,
// oldest first.
func (r *DailySpendRepository) ListRange(ctx context.Context, campaignID string, from, to time.Time) ([]*domain.DailySpendRecord, error) {
	rows, err := generated.New(r.db).ListDailySpend(ctx, generated.ListDailySpendParams{
		CampaignID: campaignID,
		FromDate:   dateToPgDate(from),
		ToDate:     dateToPgDate(to),
	})
	if err != nil {
		return nil, err
	}

	records := make([]*domain.DailySpendRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToDailySpend(row))
	}

	return records, nil
}

func rowToDailySpend(row generated.DailySpend) *domain.DailySpendRecord {
	return &domain.DailySpendRecord{
		CampaignID:  row.CampaignID,
		Date:        row.SpendDate.Time,
		AmountSpent: numericToDecimal(row.AmountSpent),
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
