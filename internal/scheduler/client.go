package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"

	"leaddesk_backend/internal/search/indexer"
	"leaddesk_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultSearchSyncRetries = 5

type Client struct {
	client     *asynq.Client
	queue      string
	maxRetries int
}

// NewClient connects an asynq client. maxRetries bounds how often a failed
// search sync task is retried; values below one use the default.
func NewClient(cfg config.SchedulerConfig, maxRetries int) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	if maxRetries < 1 {
		maxRetries = defaultSearchSyncRetries
	}

	return &Client{
		client:     asynq.NewClient(opt),
		queue:      queueName(cfg),
		maxRetries: maxRetries,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Enqueue hands a search sync job to the durable queue. It satisfies
// indexer.Enqueuer so the search module can publish into redis instead of
// its in-memory queue.
func (c *Client) Enqueue(ctx context.Context, job indexer.Job) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSearchSyncTask(job)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(c.maxRetries))
	if err != nil {
		enqueueFailures.WithLabelValues(TaskSearchSync).Inc()
	}
	return err
}

var _ indexer.Enqueuer = (*Client)(nil)

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig(opt.TLSConfig, tlsInsecure),
	}, nil
}

// NewRedis opens a plain go-redis client on the same URL, used for the
// cleanup lock.
func NewRedis(cfg config.SchedulerConfig) (*redis.Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opt.TLSConfig = tlsConfig(opt.TLSConfig, cfg.GetRedisTLSInsecure())
	return redis.NewClient(opt), nil
}

func tlsConfig(base *tls.Config, insecure bool) *tls.Config {
	if base != nil {
		clone := base.Clone()
		if insecure {
			clone.InsecureSkipVerify = true
		}
		return clone
	}
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}
	}
	return nil
}
