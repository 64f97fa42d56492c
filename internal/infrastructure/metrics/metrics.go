package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger operation metrics
	LedgerOperations *prometheus.CounterVec
	LedgerDuration   *prometheus.HistogramVec
	LedgerAmount     *prometheus.HistogramVec

	// Account metrics
	AccountsOpened   prometheus.Counter
	AccountsArchived prometheus.Counter

	// Campaign budget metrics
	SpendRejections   *prometheus.CounterVec
	BudgetReleased    prometheus.Counter
	Settlements       prometheus.Counter
	Transitions       *prometheus.CounterVec
	IdempotentReplays *prometheus.CounterVec

	// Concurrency metrics
	ConcurrencyConflicts prometheus.Counter
	Retries              prometheus.Counter

	// Forecast metrics
	Forecasts *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_operations_total",
				Help: "Total ledger operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LedgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adledger_operation_duration_seconds",
				Help:    "Duration of ledger operations including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LedgerAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adledger_operation_amount",
				Help:    "Amounts moved by successful ledger operations",
				Buckets: []float64{0.01, 0.1, 1, 10, 100, 1000, 10000, 100000},
			},
			[]string{"operation"},
		),

		AccountsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_accounts_opened_total",
			Help: "Total number of accounts opened",
		}),
		AccountsArchived: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_accounts_archived_total",
			Help: "Total number of accounts archived",
		}),

		SpendRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_spend_rejections_total",
				Help: "Spend events rejected by reason",
			},
			[]string{"reason"},
		),
		BudgetReleased: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_budget_released_amount_total",
			Help: "Sum of unspent budget released by settlements",
		}),
		Settlements: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_settlements_total",
			Help: "Total number of campaign budgets settled",
		}),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_campaign_transitions_total",
				Help: "Campaign lifecycle transitions by action",
			},
			[]string{"action"},
		),
		IdempotentReplays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_idempotent_replays_total",
				Help: "Calls answered from a stored idempotent result",
			},
			[]string{"operation"},
		),

		ConcurrencyConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_concurrency_conflicts_total",
			Help: "Operations that failed after exhausting contention retries",
		}),
		Retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_db_retries_total",
			Help: "Database operations retried after deadlock or serialization failure",
		}),

		Forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_forecasts_total",
				Help: "Budget forecasts served by source",
			},
			[]string{"source"},
		),

		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adledger_outbox_events_total",
				Help: "Outbox events relayed by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "adledger_rate_limit_hits_total",
			Help: "Requests refused by the rate limiter",
		}),
	}
}
