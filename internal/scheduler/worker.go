package scheduler

import (
	"context"
	"errors"
	"fmt"

	"leaddesk_backend/internal/search/indexer"
	"leaddesk_backend/platform/config"
	"leaddesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// DiscountCleaner removes expired package discounts and reports how many
// were removed.
type DiscountCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sync    indexer.Applier
	cleaner DiscountCleaner
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sync indexer.Applier, cleaner DiscountCleaner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(sync, cleaner, log)
	w.server = server
	return w, nil
}

func newWorker(sync indexer.Applier, cleaner DiscountCleaner, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:     mux,
		sync:    sync,
		cleaner: cleaner,
		log:     log,
	}

	mux.HandleFunc(TaskSearchSync, w.handleSearchSync)
	mux.HandleFunc(TaskDiscountCleanup, w.handleDiscountCleanup)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSearchSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSearchSyncPayload(task)
	if err != nil {
		observeTask(TaskSearchSync, err)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	err = w.sync.Apply(ctx, payload.Job)
	observeTask(TaskSearchSync, err)
	if err == nil {
		return nil
	}

	job := payload.Job
	if errors.Is(err, indexer.ErrIndexUnavailable) {
		w.log.IndexSkipped(string(job.Kind), job.ID.String(), string(job.Op), err)
	} else {
		retried, _ := asynq.GetRetryCount(ctx)
		w.log.IndexFailure(string(job.Kind), job.ID.String(), string(job.Op), retried+1, err)
	}
	return err
}

func (w *Worker) handleDiscountCleanup(ctx context.Context, _ *asynq.Task) error {
	if w.cleaner == nil {
		return nil
	}
	removed, err := w.cleaner.CleanupExpired(ctx)
	observeTask(TaskDiscountCleanup, err)
	discountsRemoved.Add(float64(removed))
	return err
}
