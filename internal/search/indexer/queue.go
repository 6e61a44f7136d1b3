package indexer

import (
	"context"
	"errors"
	"sync"
	"time"

	"leaddesk_backend/platform/logger"
)

var (
	// ErrQueueFull is returned by Enqueue when the buffer is full.
	ErrQueueFull = errors.New("search sync queue full")
	// ErrQueueStopped is returned by Enqueue after Stop.
	ErrQueueStopped = errors.New("search sync queue stopped")
)

// Applier applies one job.
type Applier interface {
	Apply(ctx context.Context, job Job) error
}

// Enqueuer accepts jobs without blocking the caller.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// QueueConfig sizes the in-memory queue.
type QueueConfig struct {
	Size        int
	Workers     int
	MaxAttempts int
	Backoff     time.Duration
}

// ChannelQueue is an in-process Enqueuer: a bounded channel drained by a
// fixed set of workers that retry with linear backoff. Jobs still queued
// when the process exits are lost; the durable alternative is the asynq
// enqueuer in the scheduler package.
type ChannelQueue struct {
	applier Applier
	cfg     QueueConfig
	log     *logger.Logger

	mu      sync.RWMutex
	jobs    chan Job
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewChannelQueue(applier Applier, cfg QueueConfig, log *logger.Logger) *ChannelQueue {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &ChannelQueue{
		applier: applier,
		cfg:     cfg,
		log:     log,
		jobs:    make(chan Job, cfg.Size),
	}
}

// Start launches the workers. They run until Stop.
func (q *ChannelQueue) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue hands job to the workers. It never blocks: a full queue drops the
// job and reports ErrQueueFull.
func (q *ChannelQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		syncDroppedTotal.Inc()
		return ErrQueueStopped
	}

	select {
	case q.jobs <- job:
		syncQueueDepth.Inc()
		return nil
	default:
		syncDroppedTotal.Inc()
		q.log.IndexSkipped(string(job.Kind), job.ID.String(), string(job.Op), ErrQueueFull)
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for the queued ones to drain. When ctx
// ends first the workers are cancelled and the rest is dropped.
func (q *ChannelQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if q.cancel != nil {
			q.cancel()
		}
		return nil
	case <-ctx.Done():
		if q.cancel != nil {
			q.cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (q *ChannelQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for job := range q.jobs {
		syncQueueDepth.Dec()
		if ctx.Err() != nil {
			continue
		}
		q.process(ctx, job)
	}
}

func (q *ChannelQueue) process(ctx context.Context, job Job) {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		if err = q.apply(ctx, job); err == nil {
			return
		}
		if attempt == q.cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(q.cfg.Backoff * time.Duration(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			q.log.IndexSkipped(string(job.Kind), job.ID.String(), string(job.Op), ctx.Err())
			return
		case <-timer.C:
		}
	}

	if errors.Is(err, ErrIndexUnavailable) {
		q.log.IndexSkipped(string(job.Kind), job.ID.String(), string(job.Op), err)
		return
	}
	q.log.IndexFailure(string(job.Kind), job.ID.String(), string(job.Op), q.cfg.MaxAttempts, err)
}

// apply runs one attempt and turns a panic into an error so a bad document
// cannot kill the worker.
func (q *ChannelQueue) apply(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("panic while syncing " + job.String())
		}
	}()
	return q.applier.Apply(ctx, job)
}
