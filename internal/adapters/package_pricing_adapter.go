package adapters

import (
	"context"
	"time"

	enrollmentports "leaddesk_backend/internal/enrollments/ports"
	"leaddesk_backend/internal/packages/service"

	"github.com/google/uuid"
)

// PackagePricingAdapter lets enrollments price a new enrollment from the
// package catalog. It implements enrollments/ports.PackageCatalog.
type PackagePricingAdapter struct {
	packages *service.Service
}

func NewPackagePricingAdapter(packages *service.Service) *PackagePricingAdapter {
	return &PackagePricingAdapter{packages: packages}
}

// PricingFor quotes the package at the given moment. The enrollment charge
// is the discounted final price; the offer letter charge is copied as is.
func (a *PackagePricingAdapter) PricingFor(ctx context.Context, packageID uuid.UUID, at time.Time) (enrollmentports.PackagePricing, error) {
	pkg, quote, err := a.packages.QuoteAt(ctx, packageID, at)
	if err != nil {
		return enrollmentports.PackagePricing{}, err
	}
	return enrollmentports.PackagePricing{
		EnrollmentCharge:  quote.FinalPrice,
		OfferLetterCharge: pkg.OfferLetterCharge,
	}, nil
}

var _ enrollmentports.PackageCatalog = (*PackagePricingAdapter)(nil)
