package domain

import (
	"testing"

	"leaddesk_backend/platform/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fields(errs []apperr.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidatePricingRejectsPercentageAndFixedTogether(t *testing.T) {
	errs := ValidatePricing(Pricing{
		FirstYearPercentage:  dec("12"),
		FirstYearFixedCharge: dec("5000"),
		FirstYearSalary:      dec("600000"),
	})
	assert.Equal(t, []string{"firstYearFixedCharge"}, fields(errs))
}

func TestValidatePricingRequiresSalaryWithPercentage(t *testing.T) {
	errs := ValidatePricing(Pricing{FirstYearPercentage: dec("8.5")})
	assert.Equal(t, []string{"firstYearSalary"}, fields(errs))
}

func TestValidatePricingBounds(t *testing.T) {
	errs := ValidatePricing(Pricing{
		EnrollmentCharge:    dec("-1"),
		FirstYearPercentage: dec("100.01"),
		FirstYearSalary:     dec("100"),
	})
	assert.ElementsMatch(t, []string{"enrollmentCharge", "firstYearPercentage"}, fields(errs))

	assert.Empty(t, ValidatePricing(Pricing{
		EnrollmentCharge:    dec("0"),
		FirstYearPercentage: dec("100"),
		FirstYearSalary:     dec("1"),
	}))
}

func TestPricingPatchSwitchesFirstYearMode(t *testing.T) {
	base := Pricing{EnrollmentCharge: dec("1000"), FirstYearFixedCharge: dec("5000")}

	// Setting a percentage without clearing the fixed charge is invalid.
	bad := PricingPatch{
		FirstYearPercentage: DecimalPatch{Set: true, Value: dec("10")},
		FirstYearSalary:     DecimalPatch{Set: true, Value: dec("400000")},
	}.Apply(base)
	assert.NotEmpty(t, ValidatePricing(bad))

	good := PricingPatch{
		FirstYearPercentage:  DecimalPatch{Set: true, Value: dec("10")},
		FirstYearSalary:      DecimalPatch{Set: true, Value: dec("400000")},
		FirstYearFixedCharge: DecimalPatch{Set: true},
	}.Apply(base)
	require.Empty(t, ValidatePricing(good))
	assert.Nil(t, good.FirstYearFixedCharge)
	assert.True(t, good.EnrollmentCharge.Equal(decimal.NewFromInt(1000)))
	assert.True(t, good.FirstYearCharge().Equal(decimal.NewFromInt(40000)))
}

func TestPricingPatchEmpty(t *testing.T) {
	assert.True(t, PricingPatch{}.Empty())
	assert.False(t, PricingPatch{OfferLetterCharge: DecimalPatch{Set: true}}.Empty())
}

func TestValidateFinalTerms(t *testing.T) {
	ok := FinalTerms{
		FirstYearCharge: dec("30000"),
		Installments: []Installment{
			{Amount: decimal.NewFromInt(10000), DueDate: "2026-04-01"},
			{Amount: decimal.NewFromInt(20000), DueDate: "2026-05-01"},
		},
	}
	assert.Empty(t, ValidateFinalTerms(ok))

	bad := FinalTerms{
		FirstYearCharge: dec("30000"),
		Installments: []Installment{
			{Amount: decimal.NewFromInt(10000), DueDate: "2026-05-01"},
			{Amount: decimal.Zero, DueDate: "2026-04-01"},
			{Amount: decimal.NewFromInt(5), DueDate: "tomorrow"},
		},
	}
	assert.ElementsMatch(t, []string{
		"installments[1].amount",
		"installments[1].dueDate",
		"installments[2].dueDate",
		"installments",
	}, fields(ValidateFinalTerms(bad)))
}

func TestFinalTermsPatchApply(t *testing.T) {
	base := FinalTerms{FirstYearCharge: dec("100")}
	out := FinalTermsPatch{}.Apply(base)
	assert.NotNil(t, out.Installments)
	assert.True(t, out.FirstYearCharge.Equal(decimal.NewFromInt(100)))

	schedule := []Installment{{Amount: decimal.NewFromInt(100), DueDate: "2026-01-01"}}
	out = FinalTermsPatch{Installments: &schedule}.Apply(base)
	assert.Len(t, out.Installments, 1)
}
