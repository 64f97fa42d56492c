package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/adledger/internal/adapter/http/dto"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// EntryService lists journal entries.
type EntryService interface {
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
}

// EntryHandler handles journal queries.
type EntryHandler struct {
	entries EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entries EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// ListByAccount lists a user's journal, newest first.
func (h *EntryHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, usecase.ListEntriesInput{UserID: chi.URLParam(r, "userID")})
}

// ListByCampaign lists the journal entries booked against a campaign.
func (h *EntryHandler) ListByCampaign(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, usecase.ListEntriesInput{CampaignID: chi.URLParam(r, "campaignID")})
}

func (h *EntryHandler) list(w http.ResponseWriter, r *http.Request, input usecase.ListEntriesInput) {
	input.Limit = parseIntQuery(r, "limit", 50)
	input.Offset = parseIntQuery(r, "offset", 0)

	entries, err := h.entries.ListEntries(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesResponse{
		Entries: entries,
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
}
