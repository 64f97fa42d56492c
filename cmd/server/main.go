package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/adledger/internal/adapter/http"
	"github.com/iho/adledger/internal/adapter/http/handler"
	"github.com/iho/adledger/internal/adapter/http/middleware"
	"github.com/iho/adledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/adledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/adledger/internal/adapter/repository/redis"
	"github.com/iho/adledger/internal/infrastructure/config"
	"github.com/iho/adledger/internal/infrastructure/eventpublisher"
	"github.com/iho/adledger/internal/infrastructure/logger"
	"github.com/iho/adledger/internal/infrastructure/metrics"
	"github.com/iho/adledger/internal/infrastructure/postgres"
	"github.com/iho/adledger/internal/infrastructure/redis"
	"github.com/iho/adledger/internal/infrastructure/worker"
	"github.com/iho/adledger/internal/usecase"
)

const (
	limiterIdleTimeout     = 10 * time.Minute
	limiterCleanupInterval = time.Minute
	purgeInterval          = time.Hour
	forecastBatchSize      = 100
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	backend, err := openStorage(ctx, cfg, log, m)
	if err != nil {
		return err
	}
	defer backend.close()

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		backend.pingers["redis"] = redis.NewChecker(redisClient)
		log.Info().Msg("connected to redis")
	}

	a, err := newApp(cfg, backend, redisClient, log, m, reg)
	if err != nil {
		return err
	}

	sink, closeSink, err := newEventSink(cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Warn().Err(err).Msg("failed to close event sink")
		}
	}()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var workers errgroup.Group
	for _, start := range a.backgroundJobs(cfg, backend, sink, log, m) {
		workers.Go(func() error {
			if err := start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	server := newServer(cfg, a.router)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("storage", cfg.StorageDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stopWorkers()
			_ = workers.Wait()
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stopWorkers()
	return workers.Wait()
}

// storage is the selected persistence backend and its side handles.
type storage struct {
	stores  usecase.Stores
	purger  worker.IdempotencyPurger
	retrier usecase.Retrier
	pingers map[string]handler.Pinger
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		log.Warn().Msg("using in-memory storage; balances are lost on restart")

		return &storage{
			stores:  store.Stores(postgresRepo.NewULIDGenerator()),
			purger:  memory.NewIdempotencyRepository(store),
			pingers: map[string]handler.Pinger{"store": store},
			close:   func() {},
		}, nil
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	retrier := postgresRepo.NewRetrierWithConfig(postgresRepo.RetrierConfig{
		MaxRetries:      int(cfg.RetryMaxAttempts),
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	}, log, m)

	return &storage{
		stores:  postgresRepo.NewStores(pool),
		purger:  postgresRepo.NewIdempotencyRepository(pool),
		retrier: retrier,
		pingers: map[string]handler.Pinger{"postgres": pool},
		close:   pool.Close,
	}, nil
}

// app holds the wired services behind the HTTP router.
type app struct {
	router     http.Handler
	forecaster *usecase.BudgetForecaster
	limiter    *middleware.RateLimiter
}

func newApp(cfg *config.Config, backend *storage, redisClient *goredis.Client, log zerolog.Logger, m *metrics.Metrics, reg *prometheus.Registry) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithLogger(log),
		usecase.WithMetrics(m),
		usecase.WithLocation(loc),
		usecase.WithTransactionTimeout(cfg.DatabaseTimeout),
	}
	if backend.retrier != nil {
		opts = append(opts, usecase.WithRetrier(backend.retrier))
	}

	stores := backend.stores
	ledger := usecase.NewAccountLedger(stores, cfg.MinimumWithdrawal, opts...)
	caps := usecase.NewSpendCapEnforcer(stores, opts...)
	budgets := usecase.NewCampaignBudgetController(stores, ledger, caps, opts...)
	gate := usecase.NewCampaignLifecycleGate(stores, budgets, opts...)
	recon := usecase.NewReconciliationUseCase(stores, opts...)

	forecastCfg := usecase.ForecasterConfig{
		CacheTTL:   cfg.ForecastCacheTTL,
		MinSamples: cfg.ForecastMinSamples,
	}

	var idempotency *middleware.IdempotencyMiddleware
	if redisClient != nil {
		forecastCfg.Cache = redisRepo.NewCache(redisClient)
		idempotency = middleware.NewIdempotencyMiddleware(redisRepo.NewIdempotencyStore(redisClient), cfg.IdempotencyTTL)
	}
	forecaster := usecase.NewBudgetForecaster(stores, forecastCfg, opts...)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).WithHitCounter(m.RateLimitHits)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:  handler.NewAccountHandler(ledger),
		TransferHandler: handler.NewTransferHandler(ledger),
		EntryHandler:    handler.NewEntryHandler(ledger),
		CampaignHandler: handler.NewCampaignHandler(budgets, gate, forecaster, caps),
		LedgerHandler:   handler.NewLedgerHandler(recon, stores.Audit),
		HealthHandler:   handler.NewHealthHandler(backend.pingers),
		Logger:          log,
		Idempotency:     idempotency,
		RateLimiter:     limiter,
		HTTPMetrics:     middleware.NewHTTPMetrics(reg),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	return &app{router: router, forecaster: forecaster, limiter: limiter}, nil
}

func (a *app) backgroundJobs(cfg *config.Config, backend *storage, sink eventpublisher.Publisher, log zerolog.Logger, m *metrics.Metrics) []func(context.Context) error {
	relay := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: backend.stores.Outbox,
		Publisher:  sink,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxPollInterval,
		Retention:  cfg.OutboxRetention,
	})

	limiterCleanup := worker.NewJob("rate_limiter_cleanup", limiterCleanupInterval, log, func(context.Context) error {
		if n := a.limiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
			log.Debug().Int("removed", n).Msg("idle rate limiters removed")
		}
		return nil
	})

	return []func(context.Context) error{
		relay.Start,
		worker.NewForecastRefreshJob(a.forecaster, forecastBatchSize, cfg.ForecastRefreshInterval, log).Start,
		worker.NewIdempotencyPurgeJob(backend.purger, cfg.IdempotencyRetention, purgeInterval, log).Start,
		limiterCleanup.Start,
	}
}

func newEventSink(cfg *config.Config, redisClient *goredis.Client, log zerolog.Logger) (eventpublisher.Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.EventSink {
	case config.EventSinkRedis:
		if redisClient == nil {
			return nil, nil, errors.New("redis event sink requires REDIS_URL")
		}
		return eventpublisher.NewRedisStreamPublisher(redisClient, cfg.EventStream), noop, nil
	case config.EventSinkKafka:
		p, err := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return eventpublisher.NewLogPublisher(log), noop, nil
	}
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}
