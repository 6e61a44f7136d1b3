// Package ports defines what search needs from other modules.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadHit is one lead found by the relational fallback search.
type LeadHit struct {
	ID             uuid.UUID
	Name           string
	PrimaryEmail   string
	ContactNumbers []string
	Status         string
	StatusGroup    string
	FollowUpAt     *time.Time
	AssignTo       *uuid.UUID
}

// LeadLister searches leads in the relational store. tab takes the same
// values as the search tab filter.
type LeadLister interface {
	SearchLeads(ctx context.Context, text, tab string, page, limit int) ([]LeadHit, int, error)
}
