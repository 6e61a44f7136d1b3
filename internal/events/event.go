// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leaddesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// DocumentKind names a record type mirrored into the search index.
type DocumentKind string

const (
	KindLead           DocumentKind = "lead"
	KindArchivedLead   DocumentKind = "archived_lead"
	KindEnrolledClient DocumentKind = "enrolled_client"
)

// DocumentOp says whether the mirrored document should be written or removed.
type DocumentOp string

const (
	OpUpsert DocumentOp = "upsert"
	OpDelete DocumentOp = "delete"
)

// =============================================================================
// Search Mirror Events
// =============================================================================

// SearchDocumentChanged is published after a lead, archived lead or enrolled
// client mutation has committed. It carries identity only; consumers reload
// the current state from the primary store.
type SearchDocumentChanged struct {
	BaseEvent
	Kind DocumentKind `json:"kind"`
	ID   uuid.UUID    `json:"id"`
	Op   DocumentOp   `json:"op"`
}

func (e SearchDocumentChanged) EventName() string { return "search.document.changed" }

// NewSearchDocumentChanged builds the event with the current timestamp.
func NewSearchDocumentChanged(kind DocumentKind, id uuid.UUID, op DocumentOp) SearchDocumentChanged {
	return SearchDocumentChanged{BaseEvent: NewBaseEvent(), Kind: kind, ID: id, Op: op}
}

// PackageRenamed is published after a package's name changes. Enrolled
// client documents denormalize the package name, so the search mirror
// refreshes every enrollment on the package.
type PackageRenamed struct {
	BaseEvent
	PackageID uuid.UUID `json:"packageId"`
}

func (e PackageRenamed) EventName() string { return "package.renamed" }

func NewPackageRenamed(packageID uuid.UUID) PackageRenamed {
	return PackageRenamed{BaseEvent: NewBaseEvent(), PackageID: packageID}
}
