package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/adledger/internal/adapter/http/dto"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// BudgetService defines the budget custody operations exposed over HTTP.
type BudgetService interface {
	GetBudget(ctx context.Context, campaignID string) (*domain.CampaignBudget, error)
	ReserveBudget(ctx context.Context, input usecase.ReserveBudgetInput) (*domain.CampaignBudget, error)
	AdjustBudget(ctx context.Context, input usecase.AdjustBudgetInput) (*domain.CampaignBudget, error)
	ProcessSpend(ctx context.Context, input usecase.ProcessSpendInput) (*usecase.SpendResult, error)
	Settle(ctx context.Context, userID, campaignID string) (*usecase.SettleResult, error)
	UpdateTerms(ctx context.Context, input usecase.UpdateTermsInput) (*domain.CampaignBudget, error)
	UpdateReadiness(ctx context.Context, input usecase.UpdateReadinessInput) (*domain.CampaignBudget, error)
}

// LifecycleService moves campaigns between statuses.
type LifecycleService interface {
	Transition(ctx context.Context, input usecase.TransitionInput) (*usecase.TransitionResult, error)
}

// ForecastService serves budget forecasts.
type ForecastService interface {
	Forecast(ctx context.Context, campaignID string) (*domain.Forecast, error)
}

// SpendHistoryService reports per-day spend.
type SpendHistoryService interface {
	History(ctx context.Context, campaignID string, from, to time.Time) ([]*domain.DailySpendRecord, error)
}

// CampaignHandler handles campaign budget requests.
type CampaignHandler struct {
	budgets   BudgetService
	lifecycle LifecycleService
	forecasts ForecastService
	history   SpendHistoryService
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(budgets BudgetService, lifecycle LifecycleService, forecasts ForecastService, history SpendHistoryService) *CampaignHandler {
	return &CampaignHandler{
		budgets:   budgets,
		lifecycle: lifecycle,
		forecasts: forecasts,
		history:   history,
	}
}

func campaignID(r *http.Request) string {
	return chi.URLParam(r, "campaignID")
}

// Get returns the campaign budget.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	budget, err := h.budgets.GetBudget(r.Context(), campaignID(r))
	if err != nil {
		writeDomainError(w, r, "failed to get budget", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// Reserve places the campaign budget on hold.
func (h *CampaignHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req dto.ReserveBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, err := h.budgets.ReserveBudget(r.Context(), req.ToUseCaseInput(campaignID(r), idempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to reserve budget", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BudgetFromDomain(budget))
}

// Adjust changes the total budget.
func (h *CampaignHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, err := h.budgets.AdjustBudget(r.Context(), req.ToUseCaseInput(campaignID(r), idempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to adjust budget", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// UpdateTerms changes the schedule, daily cap or currency.
func (h *CampaignHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateTermsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, err := h.budgets.UpdateTerms(r.Context(), req.ToUseCaseInput(campaignID(r)))
	if err != nil {
		writeDomainError(w, r, "failed to update terms", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// UpdateReadiness records approval and setup progress.
func (h *CampaignHandler) UpdateReadiness(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateReadinessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, err := h.budgets.UpdateReadiness(r.Context(), req.ToUseCaseInput(campaignID(r)))
	if err != nil {
		writeDomainError(w, r, "failed to update readiness", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BudgetFromDomain(budget))
}

// Spend books a delivery cost.
func (h *CampaignHandler) Spend(w http.ResponseWriter, r *http.Request) {
	var req dto.SpendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.budgets.ProcessSpend(r.Context(), req.ToUseCaseInput(campaignID(r), idempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to process spend", err)
		return
	}

	resp := dto.SpendResponse{
		Budget:     dto.BudgetFromDomain(result.Budget),
		SpentToday: result.SpentToday,
	}
	if result.Account != nil {
		resp.Account = dto.AccountFromDomain(result.Account)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Transition applies a lifecycle action.
func (h *CampaignHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req dto.TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.lifecycle.Transition(r.Context(), req.ToUseCaseInput(campaignID(r), idempotencyKey(r)))
	if err != nil {
		writeDomainError(w, r, "failed to transition campaign", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransitionResponse{
		Budget:   dto.BudgetFromDomain(result.Budget),
		From:     result.From,
		To:       result.To,
		Released: result.Released,
	})
}

// Settle releases the unspent budget of a closed campaign.
func (h *CampaignHandler) Settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.budgets.Settle(r.Context(), req.UserID, campaignID(r))
	if err != nil {
		writeDomainError(w, r, "failed to settle budget", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettleResponse{
		Budget:   dto.BudgetFromDomain(result.Budget),
		Released: result.Released,
	})
}

// Forecast returns the burn-rate projection.
func (h *CampaignHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.forecasts.Forecast(r.Context(), campaignID(r))
	if err != nil {
		writeDomainError(w, r, "failed to forecast budget", err)
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}

// DailySpend lists per-day spend between ?from and ?to, the last 30 days
// by default.
func (h *CampaignHandler) DailySpend(w http.ResponseWriter, r *http.Request) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}

	id := campaignID(r)
	days, err := h.history.History(r.Context(), id, start, end)
	if err != nil {
		writeDomainError(w, r, "failed to list daily spend", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.DailySpendResponse{CampaignID: id, Days: days})
}
