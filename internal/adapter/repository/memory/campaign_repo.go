package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// CampaignBudgetRepository implements usecase.CampaignBudgetRepository in memory.
type CampaignBudgetRepository struct {
	store *Store
}

// NewCampaignBudgetRepository creates a new CampaignBudgetRepository.
func NewCampaignBudgetRepository(store *Store) *CampaignBudgetRepository {
	return &CampaignBudgetRepository{store: store}
}

// CreateDraft inserts budget unless the campaign already has one.
func (r *CampaignBudgetRepository) CreateDraft(_ context.Context, tx usecase.Transaction, budget *domain.CampaignBudget) (bool, error) {
	created := false

	err := r.store.write(tx, func(st *state) error {
		if _, ok := st.budgets[budget.CampaignID]; ok {
			return nil
		}
		st.budgets[budget.CampaignID] = *budget
		created = true
		return nil
	})

	return created, err
}

// GetByID retrieves a committed budget.
func (r *CampaignBudgetRepository) GetByID(_ context.Context, campaignID string) (*domain.CampaignBudget, error) {
	return r.get(nil, campaignID)
}

// GetByIDForUpdate retrieves the budget as seen by tx.
func (r *CampaignBudgetRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, campaignID string) (*domain.CampaignBudget, error) {
	return r.get(tx, campaignID)
}

func (r *CampaignBudgetRepository) get(tx usecase.Transaction, campaignID string) (*domain.CampaignBudget, error) {
	var budget *domain.CampaignBudget

	err := r.store.read(tx, func(st *state) error {
		b, ok := st.budgets[campaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}
		budget = &b
		return nil
	})

	return budget, err
}

// Update replaces the budget if its version is unchanged.
func (r *CampaignBudgetRepository) Update(_ context.Context, tx usecase.Transaction, budget *domain.CampaignBudget) error {
	return r.store.write(tx, func(st *state) error {
		current, ok := st.budgets[budget.CampaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}

		if current.Version != budget.Version {
			return domain.ErrConcurrencyConflict
		}

		budget.Version++
		st.budgets[budget.CampaignID] = *budget

		return nil
	})
}

// AddSpend grows budget_spent if it stays within budget_total.
func (r *CampaignBudgetRepository) AddSpend(_ context.Context, tx usecase.Transaction, campaignID string, amount decimal.Decimal, at time.Time) (*domain.CampaignBudget, error) {
	var budget *domain.CampaignBudget

	err := r.store.write(tx, func(st *state) error {
		current, ok := st.budgets[campaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}

		if current.IsSettled() || current.CheckSpend(amount) != nil {
			return domain.ErrGuardRejected
		}

		current.BudgetSpent = current.BudgetSpent.Add(amount)
		current.Version++
		current.UpdatedAt = at
		st.budgets[campaignID] = current
		budget = &current

		return nil
	})

	return budget, err
}

// ListByStatus returns committed budgets in status ordered by campaign id.
func (r *CampaignBudgetRepository) ListByStatus(_ context.Context, status domain.CampaignStatus, limit, offset int) ([]*domain.CampaignBudget, error) {
	var budgets []*domain.CampaignBudget

	err := r.store.read(nil, func(st *state) error {
		for _, b := range st.budgets {
			if b.Status == status {
				budgets = append(budgets, &b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(budgets, func(i, j int) bool { return budgets[i].CampaignID < budgets[j].CampaignID })

	return page(budgets, limit, offset), nil
}

// SumUnsettledRemaining totals the unspent budget of the user's unsettled
// campaigns.
func (r *CampaignBudgetRepository) SumUnsettledRemaining(_ context.Context, userID string) (decimal.Decimal, error) {
	total := decimal.Zero

	err := r.store.read(nil, func(st *state) error {
		for _, b := range st.budgets {
			if b.UserID == userID && !b.IsSettled() {
				total = total.Add(b.BudgetTotal.Sub(b.BudgetSpent))
			}
		}
		return nil
	})

	return total, err
}

// DailySpendRepository implements usecase.DailySpendRepository in memory.
type DailySpendRepository struct {
	store *Store
}

// NewDailySpendRepository creates a new DailySpendRepository.
func NewDailySpendRepository(store *Store) *DailySpendRepository {
	return &DailySpendRepository{store: store}
}

func keyFor(campaignID string, date time.Time) dailyKey {
	return dailyKey{campaignID: campaignID, date: date.UTC().Format(time.DateOnly)}
}

// Add adds amount to the day's record, creating it if needed.
func (r *DailySpendRepository) Add(_ context.Context, tx usecase.Transaction, campaignID string, date time.Time, amount decimal.Decimal, at time.Time) (*domain.DailySpendRecord, error) {
	var record *domain.DailySpendRecord

	err := r.store.write(tx, func(st *state) error {
		key := keyFor(campaignID, date)

		current, ok := st.daily[key]
		if !ok {
			current = domain.DailySpendRecord{
				CampaignID:  campaignID,
				Date:        domain.SpendDate(date, time.UTC),
				AmountSpent: decimal.Zero,
			}
		}

		current.AmountSpent = current.AmountSpent.Add(amount)
		current.UpdatedAt = at
		st.daily[key] = current
		record = &current

		return nil
	})

	return record, err
}

// AmountOn returns the day's total spend, zero if there is none.
func (r *DailySpendRepository) AmountOn(_ context.Context, tx usecase.Transaction, campaignID string, date time.Time) (decimal.Decimal, error) {
	amount := decimal.Zero

	err := r.store.read(tx, func(st *state) error {
		if rec, ok := st.daily[keyFor(campaignID, date)]; ok {
			amount = rec.AmountSpent
		}
		return nil
	})

	return amount, err
}

// ListRange returns the campaign's records from from to to inclusive,
// oldest first.
func (r *DailySpendRepository) ListRange(_ context.Context, campaignID string, from, to time.Time) ([]*domain.DailySpendRecord, error) {
	var records []*domain.DailySpendRecord

	err := r.store.read(nil, func(st *state) error {
		for _, rec := range st.daily {
			if rec.CampaignID != campaignID || rec.Date.Before(from) || rec.Date.After(to) {
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })

	return records, err
}
