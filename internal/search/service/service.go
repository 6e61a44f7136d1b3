// Package service answers search requests from the index and falls back to
// the relational lead list when the index cannot be reached.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"leaddesk_backend/internal/events"
	leaddomain "leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/search/domain"
	"leaddesk_backend/internal/search/indexer"
	"leaddesk_backend/internal/search/ports"
	"leaddesk_backend/internal/search/transport"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
	"leaddesk_backend/platform/searchindex"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	sourceIndex    = "index"
	sourceDatabase = "database"
	defaultLimit   = 20
)

// Searcher runs a query against one or more comma-separated indices.
type Searcher interface {
	Search(ctx context.Context, index string, body map[string]any) (*searchindex.SearchResult, error)
}

// IDLister lists record ids per kind for a full reindex.
type IDLister interface {
	ListIDs(ctx context.Context, kind events.DocumentKind) ([]uuid.UUID, error)
}

type Service struct {
	index    Searcher
	leads    ports.LeadLister
	ids      IDLister
	enqueuer indexer.Enqueuer
	indices  domain.Indices
	log      *logger.Logger
	now      func() time.Time
}

// New creates the search service. index may be nil when search is not
// configured; every search then uses the relational fallback.
func New(index Searcher, leads ports.LeadLister, ids IDLister, enqueuer indexer.Enqueuer, indices domain.Indices, log *logger.Logger) *Service {
	return &Service{
		index:    index,
		leads:    leads,
		ids:      ids,
		enqueuer: enqueuer,
		indices:  indices,
		log:      log,
		now:      time.Now,
	}
}

// SetLeadLister attaches the relational fallback after the leads module
// exists.
func (s *Service) SetLeadLister(leads ports.LeadLister) {
	s.leads = leads
}

func (s *Service) Search(ctx context.Context, req transport.SearchRequest) (transport.SearchResponse, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}

	group, filtered, err := leaddomain.ParseGroup(req.Tab)
	if err != nil {
		return transport.SearchResponse{}, apperr.ValidationFields([]apperr.FieldError{
			{Field: "tab", Message: "must be one of " + strings.Join(leaddomain.TabNames(), " ")},
		})
	}

	q := domain.Query{
		Text:  req.Query,
		Scope: domain.ScopeLeads,
		From:  (page - 1) * limit,
		Size:  limit,
	}
	if req.Scope == string(domain.ScopeEnrolledClients) {
		q.Scope = domain.ScopeEnrolledClients
	}
	if filtered {
		q.Group = &group
	}

	now := s.now()
	if s.index != nil {
		resp, err := s.searchIndex(ctx, q, now)
		if err == nil {
			resp.Page, resp.Limit = page, limit
			return resp, nil
		}
		if !searchindex.IsUnavailable(err) {
			return transport.SearchResponse{}, apperr.Wrap(apperr.KindInternal, "search failed", err).WithOp("search.Search")
		}
		s.log.WithContext(ctx).Warn("search_index_fallback", "error", err)
	}

	if q.Scope == domain.ScopeEnrolledClients || s.leads == nil {
		return transport.SearchResponse{}, apperr.Unavailable("search index unavailable")
	}

	hits, total, err := s.leads.SearchLeads(ctx, req.Query, req.Tab, page, limit)
	if err != nil {
		return transport.SearchResponse{}, err
	}
	items := make([]transport.SearchResultItem, 0, len(hits))
	for _, h := range hits {
		item := transport.SearchResultItem{
			ID:               h.ID,
			Kind:             string(events.KindLead),
			Name:             h.Name,
			PrimaryEmail:     h.PrimaryEmail,
			ContactNumbers:   h.ContactNumbers,
			Status:           h.Status,
			StatusGroup:      h.StatusGroup,
			FollowUpDateTime: h.FollowUpAt,
		}
		if h.AssignTo != nil {
			item.AssignTo = &domain.Person{ID: *h.AssignTo}
		}
		items = append(items, item)
	}
	return transport.SearchResponse{Items: items, Total: total, Page: page, Limit: limit, Source: sourceDatabase}, nil
}

func (s *Service) searchIndex(ctx context.Context, q domain.Query, now time.Time) (transport.SearchResponse, error) {
	target, err := domain.Build(q, s.indices, now)
	if err != nil {
		return transport.SearchResponse{}, err
	}

	res, err := s.index.Search(ctx, strings.Join(target.Indices, ","), target.Body)
	if err != nil {
		return transport.SearchResponse{}, err
	}

	items := make([]transport.SearchResultItem, 0, len(res.Hits))
	for _, hit := range res.Hits {
		var doc domain.Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			s.log.WithContext(ctx).Warn("search_hit_undecodable", "id", hit.ID, "error", err)
			continue
		}
		items = append(items, toItem(doc, hit.Score, now))
	}
	return transport.SearchResponse{Items: items, Total: res.Total, Source: sourceIndex}, nil
}

// toItem recomputes statusGroup for leads, since the indexed value was
// derived at write time.
func toItem(doc domain.Document, score float64, now time.Time) transport.SearchResultItem {
	group := doc.StatusGroup
	if doc.Kind == events.KindLead {
		group = string(leaddomain.DeriveQueue(doc.Status, doc.FollowUpAt, now))
	}
	return transport.SearchResultItem{
		ID:               doc.ID,
		Kind:             string(doc.Kind),
		Name:             doc.Name,
		PrimaryEmail:     doc.PrimaryEmail,
		ContactNumbers:   doc.ContactNumbers,
		Status:           doc.Status,
		StatusGroup:      group,
		FollowUpDateTime: doc.FollowUpAt,
		AssignTo:         doc.AssignTo,
		ArchiveReason:    doc.ArchiveReason,
		PackageName:      doc.PackageName,
		Score:            score,
	}
}

// Reindex queues an upsert for every lead, archived lead and enrolled
// client. Kinds are listed concurrently; the count is what was accepted by
// the queue.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, apperr.Unavailable("search is not configured")
	}

	var enqueued atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		g.Go(func() error {
			ids, err := s.ids.ListIDs(gctx, kind)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := s.enqueuer.Enqueue(gctx, indexer.Job{Kind: kind, ID: id, Op: events.OpUpsert}); err != nil {
					s.log.WithContext(ctx).Warn("search_reindex_enqueue_failed", "kind", kind, "id", id, "error", err)
					continue
				}
				enqueued.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(enqueued.Load()), err
	}

	s.log.WithContext(ctx).Info("search_reindex_queued", "jobs", enqueued.Load())
	return int(enqueued.Load()), nil
}
