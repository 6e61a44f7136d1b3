package transport

import (
	"time"

	"leaddesk_backend/internal/packages/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreatePackageRequest struct {
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Description       *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	EnrollmentCharge  decimal.Decimal `json:"enrollmentCharge"`
	OfferLetterCharge decimal.Decimal `json:"offerLetterCharge"`
	IsActive          *bool           `json:"isActive,omitempty"`
}

type UpdatePackageRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	EnrollmentCharge  *decimal.Decimal `json:"enrollmentCharge,omitempty"`
	OfferLetterCharge *decimal.Decimal `json:"offerLetterCharge,omitempty"`
	IsActive          *bool            `json:"isActive,omitempty"`
}

// DiscountRequest carries a discount window as separate local date and time
// fields, interpreted in the business time zone.
type DiscountRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	Percentage decimal.Decimal `json:"percentage"`
	StartDate  string          `json:"startDate" validate:"required,datetime=2006-01-02"`
	StartTime  string          `json:"startTime" validate:"omitempty"`
	EndDate    string          `json:"endDate" validate:"required,datetime=2006-01-02"`
	EndTime    string          `json:"endTime" validate:"omitempty"`
}

type ListPackagesRequest struct {
	ActiveOnly bool `form:"activeOnly"`
}

type DiscountResponse struct {
	domain.Discount
	Active bool `json:"active"`
}

type PackageResponse struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	Description       *string            `json:"description,omitempty"`
	EnrollmentCharge  decimal.Decimal    `json:"enrollmentCharge"`
	OfferLetterCharge decimal.Decimal    `json:"offerLetterCharge"`
	IsActive          bool               `json:"isActive"`
	Discounts         []DiscountResponse `json:"discounts"`
	Quote             domain.Quote       `json:"quote"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type PackageListResponse struct {
	Items []PackageResponse `json:"items"`
	Total int               `json:"total"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}
