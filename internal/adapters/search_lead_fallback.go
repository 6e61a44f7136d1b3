package adapters

import (
	"context"

	"leaddesk_backend/internal/leads/management"
	leadtransport "leaddesk_backend/internal/leads/transport"
	searchports "leaddesk_backend/internal/search/ports"
)

// SearchLeadFallback serves search from the leads list when the index is
// down. It implements search/ports.LeadLister.
type SearchLeadFallback struct {
	leads *management.Service
}

func NewSearchLeadFallback(leads *management.Service) *SearchLeadFallback {
	return &SearchLeadFallback{leads: leads}
}

func (a *SearchLeadFallback) SearchLeads(ctx context.Context, text, tab string, page, limit int) ([]searchports.LeadHit, int, error) {
	res, err := a.leads.List(ctx, leadtransport.ListLeadsRequest{
		Tab:       tab,
		Search:    text,
		Page:      page,
		PageSize:  limit,
		SortBy:    "updatedAt",
		SortOrder: "desc",
	})
	if err != nil {
		return nil, 0, err
	}

	hits := make([]searchports.LeadHit, 0, len(res.Items))
	for _, l := range res.Items {
		hits = append(hits, searchports.LeadHit{
			ID:             l.ID,
			Name:           l.Name,
			PrimaryEmail:   l.PrimaryEmail,
			ContactNumbers: l.ContactNumbers,
			Status:         l.Status,
			StatusGroup:    l.StatusGroup,
			FollowUpAt:     l.FollowUpDateTime,
			AssignTo:       l.AssignTo,
		})
	}
	return hits, res.Total, nil
}

var _ searchports.LeadLister = (*SearchLeadFallback)(nil)
