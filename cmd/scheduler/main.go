package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/packages"
	"leaddesk_backend/internal/scheduler"
	"leaddesk_backend/internal/search"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/db"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/searchindex"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	phone.DefaultRegion = cfg.GetDefaultPhoneRegion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var searchClient *searchindex.Client
	if cfg.IsSearchEnabled() {
		searchClient, err = searchindex.New(searchindex.Config{
			Addresses:     cfg.GetElasticsearchURLs(),
			Username:      cfg.GetElasticsearchUsername(),
			Password:      cfg.GetElasticsearchPassword(),
			PingTimeout:   cfg.GetSearchPingTimeout(),
			BootstrapWait: cfg.GetSearchBootstrapWait(),
		})
		if err != nil {
			log.Error("failed to initialize search client", "error", err)
			panic("failed to initialize search client: " + err.Error())
		}
		defer func() { _ = searchClient.Close() }()
	} else {
		log.Warn("ELASTICSEARCH_URL not configured; search sync tasks will be no-ops")
	}

	// Worker-side wiring only; no HTTP routes are mounted here.
	packagesModule := packages.NewModule(pool, nil, val, cfg.GetBusinessLocation(), log)
	searchModule := search.NewModule(pool, eventBus, val, log, search.Options{
		Client:      searchClient,
		IndexPrefix: cfg.GetSearchIndexPrefix(),
	})

	rdb, err := scheduler.NewRedis(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer func() { _ = rdb.Close() }()

	cleanup := scheduler.NewDiscountCleanup(
		packagesModule.Service(),
		scheduler.NewRedisLocker(rdb),
		log,
		cfg.GetDiscountCleanupInterval(),
	)
	go cleanup.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, searchModule.Synchronizer(), packagesModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
