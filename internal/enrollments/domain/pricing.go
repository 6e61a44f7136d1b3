package domain

import (
	"strconv"
	"time"

	"leaddesk_backend/platform/apperr"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricing is the set of charges negotiated in the pricing phase. The first
// year is billed either as a percentage of salary or as a fixed charge.
type Pricing struct {
	EnrollmentCharge     *decimal.Decimal `json:"enrollmentCharge"`
	OfferLetterCharge    *decimal.Decimal `json:"offerLetterCharge"`
	FirstYearPercentage  *decimal.Decimal `json:"firstYearPercentage"`
	FirstYearFixedCharge *decimal.Decimal `json:"firstYearFixedCharge"`
	FirstYearSalary      *decimal.Decimal `json:"firstYearSalary"`
}

// FirstYearCharge is the amount owed for the first year, or nil when
// neither mode is set.
func (p Pricing) FirstYearCharge() *decimal.Decimal {
	switch {
	case p.FirstYearFixedCharge != nil:
		v := *p.FirstYearFixedCharge
		return &v
	case p.FirstYearPercentage != nil && p.FirstYearSalary != nil:
		v := p.FirstYearSalary.Mul(*p.FirstYearPercentage).Div(hundred).Round(2)
		return &v
	default:
		return nil
	}
}

// DecimalPatch is one optional field of a patch. Set with a nil Value
// clears the field.
type DecimalPatch struct {
	Set   bool
	Value *decimal.Decimal
}

func (p DecimalPatch) apply(current *decimal.Decimal) *decimal.Decimal {
	if !p.Set {
		return current
	}
	return p.Value
}

// PricingPatch carries the fields a caller wants to change.
type PricingPatch struct {
	EnrollmentCharge     DecimalPatch
	OfferLetterCharge    DecimalPatch
	FirstYearPercentage  DecimalPatch
	FirstYearFixedCharge DecimalPatch
	FirstYearSalary      DecimalPatch
}

// Empty reports whether the patch changes nothing.
func (p PricingPatch) Empty() bool {
	return !p.EnrollmentCharge.Set && !p.OfferLetterCharge.Set && !p.FirstYearPercentage.Set &&
		!p.FirstYearFixedCharge.Set && !p.FirstYearSalary.Set
}

// Apply overlays the patch on base.
func (p PricingPatch) Apply(base Pricing) Pricing {
	return Pricing{
		EnrollmentCharge:     p.EnrollmentCharge.apply(base.EnrollmentCharge),
		OfferLetterCharge:    p.OfferLetterCharge.apply(base.OfferLetterCharge),
		FirstYearPercentage:  p.FirstYearPercentage.apply(base.FirstYearPercentage),
		FirstYearFixedCharge: p.FirstYearFixedCharge.apply(base.FirstYearFixedCharge),
		FirstYearSalary:      p.FirstYearSalary.apply(base.FirstYearSalary),
	}
}

// ValidatePricing checks the pricing invariants and returns one entry per
// offending field.
func ValidatePricing(p Pricing) []apperr.FieldError {
	var errs []apperr.FieldError

	nonNegative := func(field string, v *decimal.Decimal) {
		if v != nil && v.IsNegative() {
			errs = append(errs, apperr.FieldError{Field: field, Message: "must not be negative"})
		}
	}
	nonNegative("enrollmentCharge", p.EnrollmentCharge)
	nonNegative("offerLetterCharge", p.OfferLetterCharge)
	nonNegative("firstYearFixedCharge", p.FirstYearFixedCharge)
	nonNegative("firstYearSalary", p.FirstYearSalary)

	if p.FirstYearPercentage != nil && p.FirstYearFixedCharge != nil {
		errs = append(errs, apperr.FieldError{
			Field:   "firstYearFixedCharge",
			Message: "cannot be set together with firstYearPercentage",
		})
	}
	if p.FirstYearPercentage != nil {
		if p.FirstYearPercentage.IsNegative() || p.FirstYearPercentage.GreaterThan(hundred) {
			errs = append(errs, apperr.FieldError{Field: "firstYearPercentage", Message: "must be between 0 and 100"})
		}
		if p.FirstYearSalary == nil {
			errs = append(errs, apperr.FieldError{Field: "firstYearSalary", Message: "is required when firstYearPercentage is set"})
		}
	}

	return errs
}

// Installment is one scheduled payment of the first-year charge.
type Installment struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"dueDate"`
}

// FinalTerms is what the final phase negotiates.
type FinalTerms struct {
	FirstYearCharge *decimal.Decimal `json:"firstYearCharge"`
	Installments    []Installment    `json:"installments"`
}

// FinalTermsPatch carries the final-phase fields a caller wants to change.
type FinalTermsPatch struct {
	FirstYearCharge DecimalPatch
	Installments    *[]Installment
}

// Empty reports whether the patch changes nothing.
func (p FinalTermsPatch) Empty() bool {
	return !p.FirstYearCharge.Set && p.Installments == nil
}

// Apply overlays the patch on base.
func (p FinalTermsPatch) Apply(base FinalTerms) FinalTerms {
	out := FinalTerms{
		FirstYearCharge: p.FirstYearCharge.apply(base.FirstYearCharge),
		Installments:    base.Installments,
	}
	if p.Installments != nil {
		out.Installments = *p.Installments
	}
	if out.Installments == nil {
		out.Installments = []Installment{}
	}
	return out
}

const dateLayout = "2006-01-02"

// ValidateFinalTerms checks installment amounts and dates, and that the
// schedule adds up to the first-year charge when both are given.
func ValidateFinalTerms(t FinalTerms) []apperr.FieldError {
	var errs []apperr.FieldError

	if t.FirstYearCharge != nil && t.FirstYearCharge.IsNegative() {
		errs = append(errs, apperr.FieldError{Field: "firstYearCharge", Message: "must not be negative"})
	}

	total := decimal.Zero
	var prev time.Time
	for i, inst := range t.Installments {
		field := "installments[" + strconv.Itoa(i) + "]"
		if !inst.Amount.IsPositive() {
			errs = append(errs, apperr.FieldError{Field: field + ".amount", Message: "must be positive"})
		}
		due, err := time.Parse(dateLayout, inst.DueDate)
		if err != nil {
			errs = append(errs, apperr.FieldError{Field: field + ".dueDate", Message: "must be a YYYY-MM-DD date"})
			continue
		}
		if i > 0 && !prev.IsZero() && !due.After(prev) {
			errs = append(errs, apperr.FieldError{Field: field + ".dueDate", Message: "must be after the previous installment"})
		}
		prev = due
		total = total.Add(inst.Amount)
	}

	if t.FirstYearCharge != nil && len(t.Installments) > 0 && !total.Equal(*t.FirstYearCharge) {
		errs = append(errs, apperr.FieldError{Field: "installments", Message: "must add up to firstYearCharge"})
	}

	return errs
}
