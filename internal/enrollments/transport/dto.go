package transport

import (
	"time"

	"leaddesk_backend/internal/enrollments/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingFields are the pricing-phase amounts a caller may change.
type PricingFields struct {
	EnrollmentCharge     OptionalDecimal `json:"enrollmentCharge"`
	OfferLetterCharge    OptionalDecimal `json:"offerLetterCharge"`
	FirstYearPercentage  OptionalDecimal `json:"firstYearPercentage"`
	FirstYearFixedCharge OptionalDecimal `json:"firstYearFixedCharge"`
	FirstYearSalary      OptionalDecimal `json:"firstYearSalary"`
}

// Patch converts the request fields into a domain patch.
func (f PricingFields) Patch() domain.PricingPatch {
	return domain.PricingPatch{
		EnrollmentCharge:     f.EnrollmentCharge.Patch(),
		OfferLetterCharge:    f.OfferLetterCharge.Patch(),
		FirstYearPercentage:  f.FirstYearPercentage.Patch(),
		FirstYearFixedCharge: f.FirstYearFixedCharge.Patch(),
		FirstYearSalary:      f.FirstYearSalary.Patch(),
	}
}

// EditPricingRequest proposes new pricing. ExpectedVersion, when given,
// must match the stored version.
type EditPricingRequest struct {
	PricingFields
	ExpectedVersion *int `json:"expectedVersion" validate:"omitempty,min=1"`
}

// PricingDecisionRequest approves or rejects the pricing phase. Fields
// supplied alongside an approval are applied as an edit first.
type PricingDecisionRequest struct {
	PricingFields
	Approve         *bool `json:"approve" validate:"required"`
	ExpectedVersion *int  `json:"expectedVersion" validate:"omitempty,min=1"`
}

type InstallmentRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"dueDate" validate:"required"`
}

// FinalTermsFields are the final-phase terms a caller may change.
type FinalTermsFields struct {
	FirstYearCharge OptionalDecimal       `json:"firstYearCharge"`
	Installments    *[]InstallmentRequest `json:"installments" validate:"omitempty,max=24,dive"`
}

// Patch converts the request fields into a domain patch.
func (f FinalTermsFields) Patch() domain.FinalTermsPatch {
	p := domain.FinalTermsPatch{FirstYearCharge: f.FirstYearCharge.Patch()}
	if f.Installments != nil {
		list := make([]domain.Installment, 0, len(*f.Installments))
		for _, inst := range *f.Installments {
			list = append(list, domain.Installment{Amount: inst.Amount, DueDate: inst.DueDate})
		}
		p.Installments = &list
	}
	return p
}

type EditFinalTermsRequest struct {
	FinalTermsFields
	ExpectedVersion *int `json:"expectedVersion" validate:"omitempty,min=1"`
}

type FinalDecisionRequest struct {
	FinalTermsFields
	Approve         *bool `json:"approve" validate:"required"`
	ExpectedVersion *int  `json:"expectedVersion" validate:"omitempty,min=1"`
}

type ListEnrollmentsRequest struct {
	PendingOnly bool `form:"pendingOnly"`
	Page        int  `form:"page" validate:"omitempty,min=1"`
	PageSize    int  `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PricingPhaseResponse echoes the pricing phase: live terms, the pending
// proposal and the approval triple.
type PricingPhaseResponse struct {
	Live            domain.Pricing   `json:"live"`
	Proposed        *domain.Pricing  `json:"proposed,omitempty"`
	FirstYearCharge *decimal.Decimal `json:"firstYearCharge"`
	domain.ApprovalState
	Agreed bool `json:"agreed"`
}

type FinalPhaseResponse struct {
	Live     domain.FinalTerms  `json:"live"`
	Proposed *domain.FinalTerms `json:"proposed,omitempty"`
	domain.ApprovalState
	Agreed bool `json:"agreed"`
}

type EnrollmentResponse struct {
	ID        uuid.UUID            `json:"id"`
	LeadID    uuid.UUID            `json:"leadId"`
	PackageID *uuid.UUID           `json:"packageId,omitempty"`
	Pricing   PricingPhaseResponse `json:"pricing"`
	Final     FinalPhaseResponse   `json:"final"`
	Version   int                  `json:"version"`
	CreatedBy *uuid.UUID           `json:"createdBy,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

type EnrollmentListResponse struct {
	Items      []EnrollmentResponse `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}
