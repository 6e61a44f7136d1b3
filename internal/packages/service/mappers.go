package service

import (
	"time"

	"leaddesk_backend/internal/packages/domain"
	"leaddesk_backend/internal/packages/repository"
	"leaddesk_backend/internal/packages/transport"
)

// ToPackageResponse renders a package with its discounts flagged and quoted
// at now.
func ToPackageResponse(p repository.Package, now time.Time) transport.PackageResponse {
	discounts := make([]transport.DiscountResponse, 0, len(p.Discounts))
	for _, d := range p.Discounts {
		discounts = append(discounts, transport.DiscountResponse{Discount: d, Active: d.Active(now)})
	}

	return transport.PackageResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		EnrollmentCharge:  p.EnrollmentCharge,
		OfferLetterCharge: p.OfferLetterCharge,
		IsActive:          p.IsActive,
		Discounts:         discounts,
		Quote:             domain.QuoteFor(p.EnrollmentCharge, p.Discounts, now),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
