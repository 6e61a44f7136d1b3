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

	"leaddesk_backend/internal/adapters"
	"leaddesk_backend/internal/enrollments"
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/http/router"
	"leaddesk_backend/internal/leads"
	"leaddesk_backend/internal/packages"
	"leaddesk_backend/internal/scheduler"
	"leaddesk_backend/internal/search"
	"leaddesk_backend/internal/search/indexer"
	"leaddesk_backend/migrations"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/db"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/searchindex"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	decimal.MarshalJSONWithoutQuotes = true
	phone.DefaultRegion = cfg.GetDefaultPhoneRegion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	searchClient, closeSearch := initSearchClient(cfg, log)
	if closeSearch != nil {
		defer closeSearch()
	}

	syncEnqueuer, closeEnqueuer := initSyncEnqueuer(cfg, log)
	if closeEnqueuer != nil {
		defer closeEnqueuer()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	packagesModule := packages.NewModule(pool, eventBus, val, cfg.GetBusinessLocation(), log)

	pricing := adapters.NewPackagePricingAdapter(packagesModule.Service())
	enrollmentsModule := enrollments.NewModule(pool, eventBus, val, pricing)

	leadsModule, err := leads.NewModule(pool, eventBus, val, enrollmentsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	searchModule := search.NewModule(pool, eventBus, val, log, search.Options{
		Client:      searchClient,
		IndexPrefix: cfg.GetSearchIndexPrefix(),
		Queue: indexer.QueueConfig{
			Size:        cfg.GetSearchSyncQueueSize(),
			Workers:     cfg.GetSearchSyncWorkers(),
			MaxAttempts: cfg.GetSearchSyncMaxAttempts(),
			Backoff:     cfg.GetSearchSyncBackoff(),
		},
		Enqueuer: syncEnqueuer,
		Leads:    adapters.NewSearchLeadFallback(leadsModule.ManagementService()),
	})
	searchModule.Start(ctx)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			packagesModule,
			enrollmentsModule,
			searchModule,
		},
	}
	if searchClient != nil {
		app.Search = searchClient
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := searchModule.Stop(shutdownCtx); err != nil {
		log.Warn("search sync queue not drained", "error", err)
	}
	log.Info("server stopped")
}

// initSearchClient returns nil when no index is configured; search then
// runs on the relational fallback and syncing is a no-op.
func initSearchClient(cfg config.SearchConfig, log *logger.Logger) (*searchindex.Client, func()) {
	if !cfg.IsSearchEnabled() {
		log.Warn("ELASTICSEARCH_URL not configured; search index disabled")
		return nil, nil
	}

	client, err := searchindex.New(searchindex.Config{
		Addresses:     cfg.GetElasticsearchURLs(),
		Username:      cfg.GetElasticsearchUsername(),
		Password:      cfg.GetElasticsearchPassword(),
		PingTimeout:   cfg.GetSearchPingTimeout(),
		BootstrapWait: cfg.GetSearchBootstrapWait(),
	})
	if err != nil {
		log.Error("failed to initialize search client", "error", err)
		return nil, nil
	}
	log.Info("search index client initialized", "addresses", cfg.GetElasticsearchURLs(), "prefix", cfg.GetSearchIndexPrefix())

	return client, func() {
		_ = client.Close()
	}
}

// initSyncEnqueuer hands search sync jobs to redis when it is configured.
// Otherwise the search module runs its own in-memory queue.
func initSyncEnqueuer(cfg *config.Config, log *logger.Logger) (indexer.Enqueuer, func()) {
	if !cfg.IsSearchEnabled() || cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg, cfg.GetSearchSyncMaxAttempts())
	if err != nil {
		log.Error("failed to initialize search sync client; using in-memory queue", "error", err)
		return nil, nil
	}
	log.Info("search sync jobs go to redis", "queue", cfg.GetAsynqQueueName())

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
