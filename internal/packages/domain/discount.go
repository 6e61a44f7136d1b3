// Package domain computes which discounts on a package apply and what the
// package costs after them.
package domain

import (
	"time"

	"leaddesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is one time-boxed percentage reduction on a package.
type Discount struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Percentage    decimal.Decimal `json:"percentage"`
	StartDateTime time.Time       `json:"startDateTime"`
	EndDateTime   time.Time       `json:"endDateTime"`
}

// Active reports whether the discount counts at now. Only the end is
// checked: a discount whose start lies in the future is already active.
func (d Discount) Active(now time.Time) bool {
	return d.EndDateTime.After(now)
}

// ActiveDiscounts keeps the discounts with EndDateTime > now, preserving
// order.
func ActiveDiscounts(discounts []Discount, now time.Time) []Discount {
	out := make([]Discount, 0, len(discounts))
	for _, d := range discounts {
		if d.Active(now) {
			out = append(out, d)
		}
	}
	return out
}

// CumulativePercentage sums the percentages of the active discounts. The
// result is not clamped and can exceed 100.
func CumulativePercentage(discounts []Discount, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, d := range discounts {
		if d.Active(now) {
			total = total.Add(d.Percentage)
		}
	}
	return total
}

// DisplayPercentage clamps a cumulative percentage to [0, 100].
func DisplayPercentage(cumulative decimal.Decimal) decimal.Decimal {
	switch {
	case cumulative.IsNegative():
		return decimal.Zero
	case cumulative.GreaterThan(hundred):
		return hundred
	default:
		return cumulative
	}
}

// FinalPrice applies a cumulative percentage to charge:
// charge * (1 - cumulative/100), rounded to cents. The percentage is clamped
// to [0, 100] first, so the price never drops below zero.
func FinalPrice(charge, cumulative decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(DisplayPercentage(cumulative).Div(hundred))
	return charge.Mul(factor).Round(2)
}

// NearestEndDate is the earliest end among active discounts, nil when none
// is active.
func NearestEndDate(discounts []Discount, now time.Time) *time.Time {
	var nearest *time.Time
	for _, d := range discounts {
		if !d.Active(now) {
			continue
		}
		if nearest == nil || d.EndDateTime.Before(*nearest) {
			end := d.EndDateTime
			nearest = &end
		}
	}
	return nearest
}

// PurgeExpired splits discounts into those still active and the count of
// expired ones (EndDateTime <= now).
func PurgeExpired(discounts []Discount, now time.Time) (kept []Discount, removed int) {
	kept = ActiveDiscounts(discounts, now)
	return kept, len(discounts) - len(kept)
}

// Quote is the priced view of a package at a point in time.
type Quote struct {
	EnrollmentCharge     decimal.Decimal `json:"enrollmentCharge"`
	ActiveDiscounts      []Discount      `json:"activeDiscounts"`
	CumulativePercentage decimal.Decimal `json:"cumulativeDiscountPercentage"`
	DisplayPercentage    decimal.Decimal `json:"displayDiscountPercentage"`
	FinalPrice           decimal.Decimal `json:"finalPrice"`
	NearestEndDate       *time.Time      `json:"nearestEndDate"`
}

// QuoteFor evaluates every discount function against one clock reading.
func QuoteFor(charge decimal.Decimal, discounts []Discount, now time.Time) Quote {
	active := ActiveDiscounts(discounts, now)
	cumulative := CumulativePercentage(active, now)
	display := DisplayPercentage(cumulative)
	return Quote{
		EnrollmentCharge:     charge,
		ActiveDiscounts:      active,
		CumulativePercentage: cumulative,
		DisplayPercentage:    display,
		FinalPrice:           FinalPrice(charge, display),
		NearestEndDate:       NearestEndDate(active, now),
	}
}

// ValidateDiscount checks name, percentage range and that the window ends
// after it starts.
func ValidateDiscount(d Discount) []apperr.FieldError {
	var errs []apperr.FieldError
	if d.Name == "" {
		errs = append(errs, apperr.FieldError{Field: "name", Message: "is required"})
	}
	if d.Percentage.IsNegative() || d.Percentage.GreaterThan(hundred) {
		errs = append(errs, apperr.FieldError{Field: "percentage", Message: "must be between 0 and 100"})
	}
	if !d.EndDateTime.After(d.StartDateTime) {
		errs = append(errs, apperr.FieldError{Field: "endDate", Message: "must be after the start"})
	}
	return errs
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CombineDateTime joins a YYYY-MM-DD date and an HH:MM (or HH:MM:SS) time in
// loc. An empty time means midnight.
func CombineDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if clock == "" {
		return time.ParseInLocation(dateLayout, date, loc)
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, loc)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout+" "+timeLayout+":05", date+" "+clock, loc)
}
