// Package ports defines what the enrollments module needs from other
// modules, in its own terms.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PackagePricing is the package price an enrollment starts from.
// EnrollmentCharge already has the discounts active at the given time
// applied.
type PackagePricing struct {
	EnrollmentCharge  decimal.Decimal
	OfferLetterCharge decimal.Decimal
}

// PackageCatalog prices a package for a new enrollment. It returns an
// apperr NotFound error for unknown packages.
type PackageCatalog interface {
	PricingFor(ctx context.Context, packageID uuid.UUID, at time.Time) (PackagePricing, error)
}
