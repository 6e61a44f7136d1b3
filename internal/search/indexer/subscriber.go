package indexer

import (
	"context"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Subscribe forwards every SearchDocumentChanged event to enqueuer. The
// handler never returns an error: a job that cannot be queued is logged
// and the index catches up on the next change or reindex.
func Subscribe(bus events.Bus, enqueuer Enqueuer, log *logger.Logger) {
	bus.Subscribe(events.SearchDocumentChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		changed, ok := event.(events.SearchDocumentChanged)
		if !ok {
			return nil
		}
		job := Job{Kind: changed.Kind, ID: changed.ID, Op: changed.Op}
		if err := enqueuer.Enqueue(ctx, job); err != nil {
			log.WithContext(ctx).Warn("search_sync_enqueue_failed", "job", job.String(), "error", err)
		}
		return nil
	}))
}

// PackageEnrollments resolves the enrollments priced from a package.
type PackageEnrollments interface {
	EnrolledIDsForPackage(ctx context.Context, packageID uuid.UUID) ([]uuid.UUID, error)
}

// SubscribePackages refreshes every enrolled client document of a renamed
// package. Failures are logged like in Subscribe.
func SubscribePackages(bus events.Bus, lookup PackageEnrollments, enqueuer Enqueuer, log *logger.Logger) {
	bus.Subscribe(events.PackageRenamed{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		renamed, ok := event.(events.PackageRenamed)
		if !ok {
			return nil
		}
		ids, err := lookup.EnrolledIDsForPackage(ctx, renamed.PackageID)
		if err != nil {
			log.IndexSkipped(string(events.KindEnrolledClient), renamed.PackageID.String(), string(events.OpUpsert), err)
			return nil
		}
		for _, id := range ids {
			job := Job{Kind: events.KindEnrolledClient, ID: id, Op: events.OpUpsert}
			if err := enqueuer.Enqueue(ctx, job); err != nil {
				log.WithContext(ctx).Warn("search_sync_enqueue_failed", "job", job.String(), "error", err)
			}
		}
		return nil
	}))
}
