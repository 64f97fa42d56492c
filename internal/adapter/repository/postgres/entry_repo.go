package postgres

import (
	"context"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/infrastructure/postgres/generated"
	"github.com/iho/adledger/internal/usecase"
)

// EntryRepository implements usecase.LedgerEntryRepository.
type EntryRepository struct {
	db generated.DBTX
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

// Create appends an entry to the journal.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	return queriesFor(r.db, tx).CreateLedgerEntry(ctx, generated.CreateLedgerEntryParams{
		ID:             entry.ID,
		UserID:         entry.UserID,
		CampaignID:     textOrNull(entry.CampaignID),
		TransferID:     textOrNull(entry.TransferID),
		Kind:           string(entry.Kind),
		Amount:         decimalToNumeric(entry.Amount),
		BalanceDelta:   decimalToNumeric(entry.BalanceDelta),
		HoldDelta:      decimalToNumeric(entry.HoldDelta),
		BalanceAfter:   decimalToNumeric(entry.BalanceAfter),
		HoldAfter:      decimalToNumeric(entry.HoldAfter),
		AccountVersion: entry.AccountVersion,
		Reason:         entry.Reason,
		IdempotencyKey: entry.IdempotencyKey,
		CreatedAt:      timeToPgTimestamptz(entry.CreatedAt),
	})
}

// ListByUser lists a user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := generated.New(r.db).ListEntriesByUser(ctx, generated.ListEntriesByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// ListByCampaign lists a campaign's entries, newest first.
func (r *EntryRepository) ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := generated.New(r.db).ListEntriesByCampaign(ctx, generated.ListEntriesByCampaignParams{
		CampaignID: textOrNull(campaignID),
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// Totals sums a user's journal.
func (r *EntryRepository) Totals(ctx context.Context, userID string) (domain.EntryTotals, error) {
	row, err := generated.New(r.db).GetEntryTotals(ctx, userID)
	if err != nil {
		return domain.EntryTotals{}, err
	}

	return domain.EntryTotals{
		Balance:            numericToDecimal(row.Balance),
		OnHold:             numericToDecimal(row.OnHold),
		UnattributedOnHold: numericToDecimal(row.UnattributedOnHold),
	}, nil
}

func rowsToEntries(rows []generated.LedgerEntry) []*domain.LedgerEntry {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.LedgerEntry{
			ID:             row.ID,
			UserID:         row.UserID,
			CampaignID:     row.CampaignID.String,
			TransferID:     row.TransferID.String,
			Kind:           domain.EntryKind(row.Kind),
			Amount:         numericToDecimal(row.Amount),
			BalanceDelta:   numericToDecimal(row.BalanceDelta),
			HoldDelta:      numericToDecimal(row.HoldDelta),
			BalanceAfter:   numericToDecimal(row.BalanceAfter),
			HoldAfter:      numericToDecimal(row.HoldAfter),
			AccountVersion: row.AccountVersion,
			Reason:         row.Reason,
			IdempotencyKey: row.IdempotencyKey,
			CreatedAt:      row.CreatedAt.Time,
		})
	}

	return entries
}
