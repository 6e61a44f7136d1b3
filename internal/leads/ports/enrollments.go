// Package ports defines the interfaces the leads module requires from other
// modules. Implementations are wired in the composition root so leads never
// imports them directly.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Enroller creates the enrollment record that tracks a lead once it is
// enrolled. CreateFromLead must be idempotent per lead.
type Enroller interface {
	CreateFromLead(ctx context.Context, leadID uuid.UUID, packageID *uuid.UUID, actorID uuid.UUID) (uuid.UUID, error)
	// EnrollmentForLead reports the enrollment opened for leadID, if any.
	EnrollmentForLead(ctx context.Context, leadID uuid.UUID) (uuid.UUID, bool, error)
}
