package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, followUpAt *time.Time) (Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ArchiveStore moves leads between the live and archived tables.
type ArchiveStore interface {
	Archive(ctx context.Context, id uuid.UUID, reason string, archivedBy *uuid.UUID) (ArchivedLead, error)
	Restore(ctx context.Context, id uuid.UUID) (Lead, error)
	GetArchivedByID(ctx context.Context, id uuid.UUID) (ArchivedLead, error)
	ListArchived(ctx context.Context, search string, limit, offset int) ([]ArchivedLead, int, error)
	DeleteArchived(ctx context.Context, id uuid.UUID) error
}

// LeadsRepository is everything the leads module needs from storage.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	ArchiveStore
}

var _ LeadsRepository = (*Repository)(nil)
