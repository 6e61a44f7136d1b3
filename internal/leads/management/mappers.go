package management

import (
	"time"

	"leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/internal/leads/repository"
	"leaddesk_backend/internal/leads/transport"
)

// ToLeadResponse maps a stored lead to its API shape. statusGroup is
// derived here, at read time, and never persisted.
func ToLeadResponse(lead repository.Lead, now time.Time) transport.LeadResponse {
	primaryNumber := ""
	if len(lead.ContactNumbers) > 0 {
		primaryNumber = lead.ContactNumbers[0]
	}

	return transport.LeadResponse{
		ID:               lead.ID,
		Name:             lead.Name,
		ContactNumbers:   nonNil(lead.ContactNumbers),
		Emails:           nonNil(lead.Emails),
		PrimaryEmail:     lead.PrimaryEmail,
		PrimaryNumber:    primaryNumber,
		Source:           lead.Source,
		Status:           lead.Status,
		StatusGroup:      string(domain.DeriveStatusGroup(lead.Status, lead.FollowUpAt, now)),
		FollowUpDateTime: lead.FollowUpAt,
		Remarks:          lead.Remarks,
		AssignTo:         lead.AssignTo,
		CreatedBy:        lead.CreatedBy,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

// ToArchivedLeadResponse maps an archived lead. Its group is always archived.
func ToArchivedLeadResponse(a repository.ArchivedLead, now time.Time) transport.ArchivedLeadResponse {
	base := ToLeadResponse(a.Lead, now)
	base.StatusGroup = string(domain.GroupArchived)
	return transport.ArchivedLeadResponse{
		LeadResponse:  base,
		ArchiveReason: a.ArchiveReason,
		ArchivedBy:    a.ArchivedBy,
		ArchivedAt:    a.ArchivedAt,
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
