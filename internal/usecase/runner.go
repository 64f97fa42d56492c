package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/infrastructure/metrics"
)

// Stores bundles the repositories the ledger use cases share. Audit may be nil.
type Stores struct {
	TxManager   TransactionManager
	Accounts    AccountRepository
	Budgets     CampaignBudgetRepository
	DailySpend  DailySpendRepository
	Entries     LedgerEntryRepository
	Ledger      LedgerRepository
	Idempotency IdempotencyRepository
	Outbox      OutboxRepository
	Audit       AuditRepository
	IDGen       IDGenerator
}

// Option configures a use case.
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	retrier  Retrier
	clock    func() time.Time
	timeout  time.Duration
	location *time.Location
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics enables operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRetrier re-runs whole transactions that fail on contention.
func WithRetrier(r Retrier) Option {
	return func(o *options) {
		if r != nil {
			o.retrier = r
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithTransactionTimeout bounds each transaction attempt.
func WithTransactionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLocation sets the time zone that defines a spend day.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zerolog.Nop(),
		retrier:  noRetry{},
		clock:    func() time.Time { return time.Now().UTC() },
		timeout:  DefaultTransactionTimeout,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error {
	return operation()
}

// core is embedded by every use case.
type core struct {
	stores Stores
	opts   options
}

func newCore(stores Stores, opts []Option) core {
	return core{stores: stores, opts: buildOptions(opts)}
}

func (c *core) now() time.Time {
	return c.opts.clock()
}

// execute runs fn in a transaction, retrying the whole transaction on
// contention, and records the outcome under op.
func (c *core) execute(ctx context.Context, op, id string, fn func(ctx context.Context, tx Transaction) error) error {
	start := time.Now()

	err := c.opts.retrier.Retry(ctx, func() error {
		return c.once(ctx, fn)
	})

	c.observe(op, start, err)

	if err != nil {
		return c.fail(op, id, err)
	}

	return nil
}

func (c *core) once(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	tx, err := c.stores.TxManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// fail passes business errors through unchanged and wraps the rest with the
// operation context.
func (c *core) fail(op, id string, err error) error {
	if domain.IsBusinessError(err) {
		return err
	}

	c.opts.logger.Error().Err(err).Str("operation", op).Str("id", id).Msg("ledger operation failed")

	return fmt.Errorf("%s %s: %w", op, id, err)
}

func (c *core) observe(op string, start time.Time, err error) {
	m := c.opts.metrics
	if m == nil {
		return
	}

	outcome := "success"
	switch {
	case err == nil:
	case domain.IsBusinessError(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}

	m.LedgerOperations.WithLabelValues(op, outcome).Inc()
	m.LedgerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if errors.Is(err, domain.ErrConcurrencyConflict) {
		m.ConcurrencyConflicts.Inc()
	}
}

func (c *core) observeAmount(op string, amount decimal.Decimal) {
	if c.opts.metrics == nil {
		return
	}
	c.opts.metrics.LedgerAmount.WithLabelValues(op).Observe(amount.InexactFloat64())
}

func (c *core) replayed(op string) {
	if c.opts.metrics != nil {
		c.opts.metrics.IdempotentReplays.WithLabelValues(op).Inc()
	}
}

func (c *core) emit(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload map[string]any, at time.Time) error {
	if c.stores.Outbox == nil {
		return nil
	}

	return c.stores.Outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            c.stores.IDGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     at,
	})
}

func (c *core) audit(ctx context.Context, tx Transaction, action domain.AuditAction, resourceType, resourceID string, before, after any, at time.Time) error {
	if c.stores.Audit == nil {
		return nil
	}

	log := domain.NewAuditLog(ctx, c.stores.IDGen.Generate(), action, resourceType, resourceID, before, after, at)

	return c.stores.Audit.CreateTx(ctx, tx, log)
}

// idempotent runs fn once per (scope, key). A repeated key with the same
// request returns the stored result without running fn; a repeated key with a
// different request fails with domain.ErrIdempotencyKeyReused. Failed calls
// store nothing. An empty key disables the check.
func idempotent[T any](
	ctx context.Context,
	tx Transaction,
	repo IdempotencyRepository,
	scope, key string,
	request any,
	at time.Time,
	fn func() (T, error),
) (T, bool, error) {
	var zero T

	if key == "" {
		result, err := fn()
		return result, false, err
	}

	hash, err := domain.RequestHash(request)
	if err != nil {
		return zero, false, err
	}

	record, err := repo.Acquire(ctx, tx, scope, key)
	if err != nil {
		return zero, false, err
	}

	if record != nil {
		if record.RequestHash != hash {
			return zero, false, domain.ErrIdempotencyKeyReused
		}

		var stored T
		if err := json.Unmarshal(record.Result, &stored); err != nil {
			return zero, false, fmt.Errorf("decode stored result for %s/%s: %w", scope, key, err)
		}

		return stored, true, nil
	}

	result, err := fn()
	if err != nil {
		return zero, false, err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return zero, false, err
	}

	err = repo.Save(ctx, tx, &domain.IdempotencyRecord{
		Scope:       scope,
		Key:         key,
		RequestHash: hash,
		Result:      payload,
		CreatedAt:   at,
	})
	if err != nil {
		return zero, false, err
	}

	return result, false, nil
}
