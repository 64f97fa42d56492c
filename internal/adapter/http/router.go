package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/adledger/internal/adapter/http/handler"
	"github.com/iho/adledger/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler  *handler.AccountHandler
	TransferHandler *handler.TransferHandler
	EntryHandler    *handler.EntryHandler
	CampaignHandler *handler.CampaignHandler
	LedgerHandler   *handler.LedgerHandler
	HealthHandler   *handler.HealthHandler

	Logger zerolog.Logger

	// Optional.
	Idempotency    *middleware.IdempotencyMiddleware
	RateLimiter    *middleware.RateLimiter
	HTTPMetrics    *middleware.HTTPMetrics
	MetricsHandler http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Replays responses for retried mutating requests
		if cfg.Idempotency != nil {
			r.Use(cfg.Idempotency.Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Open)
			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", cfg.AccountHandler.Get)
				r.Delete("/", cfg.AccountHandler.Archive)
				r.Get("/entries", cfg.EntryHandler.ListByAccount)
				r.Post("/deposits", cfg.AccountHandler.Deposit)
				r.Post("/withdrawals", cfg.AccountHandler.Withdraw)
				r.Get("/reconciliation", cfg.LedgerHandler.ReconcileAccount)
			})
		})

		// Transfers
		r.Post("/transfers", cfg.TransferHandler.Create)

		// Campaign budgets
		r.Route("/campaigns/{campaignID}", func(r chi.Router) {
			r.Get("/", cfg.CampaignHandler.Get)
			r.Post("/budget", cfg.CampaignHandler.Reserve)
			r.Put("/budget", cfg.CampaignHandler.Adjust)
			r.Put("/terms", cfg.CampaignHandler.UpdateTerms)
			r.Put("/readiness", cfg.CampaignHandler.UpdateReadiness)
			r.Post("/spend", cfg.CampaignHandler.Spend)
			r.Get("/spend/daily", cfg.CampaignHandler.DailySpend)
			r.Post("/transitions", cfg.CampaignHandler.Transition)
			r.Post("/settle", cfg.CampaignHandler.Settle)
			r.Get("/forecast", cfg.CampaignHandler.Forecast)
			r.Get("/entries", cfg.EntryHandler.ListByCampaign)
		})

		// Ledger-wide checks
		r.Route("/ledger", func(r chi.Router) {
			r.Get("/reconciliation", cfg.LedgerHandler.Report)
			r.Get("/audit", cfg.LedgerHandler.Audit)
		})
	})

	return r
}
