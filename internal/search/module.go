// Package search mirrors leads, archived leads and enrolled clients into
// the external index and serves search over it.
package search

import (
	"context"

	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/search/domain"
	"leaddesk_backend/internal/search/handler"
	"leaddesk_backend/internal/search/indexer"
	"leaddesk_backend/internal/search/ports"
	"leaddesk_backend/internal/search/repository"
	"leaddesk_backend/internal/search/service"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/searchindex"
	"leaddesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
	sync    *indexer.Synchronizer
	queue   *indexer.ChannelQueue
}

// Options wires the module. Client is nil when search is disabled.
// Enqueuer overrides the in-memory queue, e.g. with the asynq enqueuer.
type Options struct {
	Client      *searchindex.Client
	IndexPrefix string
	Queue       indexer.QueueConfig
	Enqueuer    indexer.Enqueuer
	Leads       ports.LeadLister
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger, opts Options) *Module {
	repo := repository.New(pool)
	indices := domain.NewIndices(opts.IndexPrefix)

	var (
		index    indexer.Index
		searcher service.Searcher
	)
	if opts.Client != nil {
		index, searcher = opts.Client, opts.Client
	}
	syncer := indexer.NewSynchronizer(index, repo, indices)

	m := &Module{sync: syncer}
	enqueuer := opts.Enqueuer
	if enqueuer == nil {
		m.queue = indexer.NewChannelQueue(syncer, opts.Queue, log)
		enqueuer = m.queue
	}
	if syncer.Enabled() {
		indexer.Subscribe(bus, enqueuer, log)
		indexer.SubscribePackages(bus, repo, enqueuer, log)
	}

	m.service = service.New(searcher, opts.Leads, repo, enqueuer, indices, log)
	m.handler = handler.New(m.service, val)
	return m
}

func (m *Module) Name() string {
	return "search"
}

// Synchronizer is exposed for the asynq worker.
func (m *Module) Synchronizer() *indexer.Synchronizer {
	return m.sync
}

// SetLeadLister attaches the relational fallback.
func (m *Module) SetLeadLister(leads ports.LeadLister) {
	m.service.SetLeadLister(leads)
}

// Start launches the in-memory sync workers, if the module owns them.
func (m *Module) Start(ctx context.Context) {
	if m.queue != nil {
		m.queue.Start(ctx)
	}
}

// Stop drains the in-memory queue.
func (m *Module) Stop(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	return m.queue.Stop(ctx)
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/search"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/search"))
}

var _ apphttp.Module = (*Module)(nil)
