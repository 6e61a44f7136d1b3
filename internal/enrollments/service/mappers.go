package service

import (
	"leaddesk_backend/internal/enrollments/domain"
	"leaddesk_backend/internal/enrollments/repository"
	"leaddesk_backend/internal/enrollments/transport"
)

// ToEnrollmentResponse renders both phases with their approval triples.
func ToEnrollmentResponse(e repository.Enrollment) transport.EnrollmentResponse {
	final := transport.FinalPhaseResponse{
		Live:          e.Final.Live,
		Proposed:      e.Final.Proposal,
		ApprovalState: e.Final.State,
		Agreed:        e.Final.State.Agreed(),
	}
	if final.Live.Installments == nil {
		final.Live.Installments = []domain.Installment{}
	}

	return transport.EnrollmentResponse{
		ID:        e.ID,
		LeadID:    e.LeadID,
		PackageID: e.PackageID,
		Pricing: transport.PricingPhaseResponse{
			Live:            e.Pricing.Live,
			Proposed:        e.Pricing.Proposal,
			FirstYearCharge: e.Pricing.Live.FirstYearCharge(),
			ApprovalState:   e.Pricing.State,
			Agreed:          e.Pricing.State.Agreed(),
		},
		Final:     final,
		Version:   e.Version,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}
