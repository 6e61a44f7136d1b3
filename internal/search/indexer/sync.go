// Package indexer keeps the search index in step with the relational store.
// Mutations are applied asynchronously and the index being unreachable
// never fails the write that triggered the sync.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/search/domain"
	"leaddesk_backend/internal/search/repository"
	"leaddesk_backend/platform/searchindex"

	"github.com/google/uuid"
)

// ErrIndexUnavailable is returned when the index could not be reached. The
// job is safe to retry.
var ErrIndexUnavailable = errors.New("search index unavailable")

// Job asks for one record's document to be brought up to date.
type Job struct {
	Kind events.DocumentKind `json:"kind"`
	ID   uuid.UUID           `json:"id"`
	Op   events.DocumentOp   `json:"op"`
}

func (j Job) String() string {
	return fmt.Sprintf("%s/%s/%s", j.Kind, j.ID, j.Op)
}

// Index is the part of the search client the synchronizer needs.
type Index interface {
	Ping(ctx context.Context) error
	EnsureIndex(ctx context.Context, name string, mapping []byte) error
	Upsert(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
}

// Source loads the current document of a record.
type Source interface {
	Load(ctx context.Context, kind events.DocumentKind, id uuid.UUID) (domain.Document, error)
}

// Synchronizer applies jobs against the index.
type Synchronizer struct {
	index   Index
	source  Source
	indices domain.Indices
	now     func() time.Time
}

// NewSynchronizer creates a synchronizer. A nil index disables syncing:
// Apply then succeeds without doing anything.
func NewSynchronizer(index Index, source Source, indices domain.Indices) *Synchronizer {
	return &Synchronizer{index: index, source: source, indices: indices, now: time.Now}
}

// Enabled reports whether an index is configured.
func (s *Synchronizer) Enabled() bool {
	return s != nil && s.index != nil
}

// Apply pings the index, bootstraps the target index on first use and
// then writes or removes the document. Upserts reload the record, so an
// upsert for a record deleted in the meantime removes its document.
func (s *Synchronizer) Apply(ctx context.Context, job Job) (err error) {
	if !s.Enabled() {
		return nil
	}
	defer func() { observeJob(job, err) }()

	if err := s.index.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	name := s.indices.For(job.Kind)
	if err := s.index.EnsureIndex(ctx, name, domain.Mapping()); err != nil {
		return wrapIndexErr(err)
	}

	if job.Op == events.OpDelete {
		return wrapIndexErr(s.index.Delete(ctx, name, job.ID.String()))
	}

	doc, err := s.source.Load(ctx, job.Kind, job.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return wrapIndexErr(s.index.Delete(ctx, name, job.ID.String()))
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", job, err)
	}

	doc.Finalize(s.now())
	return wrapIndexErr(s.index.Upsert(ctx, name, job.ID.String(), doc))
}

func wrapIndexErr(err error) error {
	if err == nil {
		return nil
	}
	if searchindex.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return err
}
