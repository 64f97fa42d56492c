package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/adledger/internal/adapter/http/dto"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	ArchiveAccount(ctx context.Context, userID string) (*domain.Account, error)
	Deposit(ctx context.Context, input usecase.MutationInput) (*domain.Account, error)
	Withdraw(ctx context.Context, input usecase.MutationInput) (*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Open opens an account for a user.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.accounts.OpenAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to open account", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by user ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Archive soft-archives an account with nothing on hold.
func (h *AccountHandler) Archive(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.ArchiveAccount(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, r, "failed to archive account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Deposit credits external funds.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "failed to deposit", h.accounts.Deposit)
}

// Withdraw pays out available funds.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "failed to withdraw", h.accounts.Withdraw)
}

func (h *AccountHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	op func(context.Context, usecase.MutationInput) (*domain.Account, error),
) {
	var req dto.AmountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := op(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "userID"), idempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}
