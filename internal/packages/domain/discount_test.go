package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func discount(name string, pct int64, start, end time.Duration) Discount {
	return Discount{
		ID:            uuid.New(),
		Name:          name,
		Percentage:    decimal.NewFromInt(pct),
		StartDateTime: now.Add(start),
		EndDateTime:   now.Add(end),
	}
}

func TestQuoteWithOneExpiredDiscount(t *testing.T) {
	a := discount("A", 20, -time.Hour, time.Hour)
	b := discount("B", 10, -48*time.Hour, -time.Minute)
	list := []Discount{a, b}

	active := ActiveDiscounts(list, now)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	cumulative := CumulativePercentage(list, now)
	assert.True(t, cumulative.Equal(decimal.NewFromInt(20)), "cumulative = %s", cumulative)
	assert.True(t, FinalPrice(decimal.NewFromInt(1000), cumulative).Equal(decimal.NewFromInt(800)))

	kept, removed := PurgeExpired(list, now)
	assert.Equal(t, 1, removed)
	require.Len(t, kept, 1)
	assert.Equal(t, "A", kept[0].Name)
}

// A discount that has not started yet already counts. Changing this must be
// a deliberate decision.
func TestFutureStartCountsAsActive(t *testing.T) {
	future := discount("launch", 15, 24*time.Hour, 72*time.Hour)

	assert.True(t, future.Active(now))
	assert.Len(t, ActiveDiscounts([]Discount{future}, now), 1)
	assert.True(t, CumulativePercentage([]Discount{future}, now).Equal(decimal.NewFromInt(15)))
}

func TestEndBoundaryIsExclusive(t *testing.T) {
	endsNow := discount("edge", 5, -time.Hour, 0)
	assert.False(t, endsNow.Active(now))

	_, removed := PurgeExpired([]Discount{endsNow}, now)
	assert.Equal(t, 1, removed)
}

func TestCumulativeIsSummedAndUnclamped(t *testing.T) {
	list := []Discount{
		discount("a", 60, 0, time.Hour),
		discount("b", 50, 0, 2*time.Hour),
	}
	cumulative := CumulativePercentage(list, now)
	assert.True(t, cumulative.Equal(decimal.NewFromInt(110)))
	assert.True(t, DisplayPercentage(cumulative).Equal(decimal.NewFromInt(100)))
	assert.True(t, DisplayPercentage(decimal.NewFromInt(-3)).IsZero())

	q := QuoteFor(decimal.NewFromInt(500), list, now)
	assert.True(t, q.FinalPrice.IsZero(), "final price = %s", q.FinalPrice)
	assert.True(t, q.CumulativePercentage.Equal(decimal.NewFromInt(110)))
}

func TestFinalPriceNeverNegative(t *testing.T) {
	list := []Discount{
		discount("festive", 70, -time.Hour, time.Hour),
		discount("referral", 50, -time.Hour, 3*time.Hour),
	}
	q := QuoteFor(decimal.NewFromInt(1000), list, now)
	assert.True(t, q.CumulativePercentage.Equal(decimal.NewFromInt(120)))
	assert.True(t, q.DisplayPercentage.Equal(decimal.NewFromInt(100)))
	assert.True(t, q.FinalPrice.IsZero(), "final price = %s", q.FinalPrice)

	assert.True(t, FinalPrice(decimal.NewFromInt(1000), decimal.NewFromInt(120)).IsZero())
	assert.True(t, FinalPrice(decimal.NewFromInt(1000), decimal.NewFromInt(-5)).Equal(decimal.NewFromInt(1000)))
	assert.True(t, FinalPrice(decimal.RequireFromString("999.99"), decimal.NewFromInt(15)).Equal(decimal.RequireFromString("849.99")))
}

func TestNearestEndDate(t *testing.T) {
	list := []Discount{
		discount("late", 5, 0, 5*time.Hour),
		discount("soon", 5, 0, 90*time.Minute),
		discount("gone", 5, -2*time.Hour, -time.Hour),
	}
	got := NearestEndDate(list, now)
	require.NotNil(t, got)
	assert.True(t, got.Equal(now.Add(90*time.Minute)))

	assert.Nil(t, NearestEndDate(list[2:], now))
}

func TestValidateDiscount(t *testing.T) {
	ok := discount("ok", 100, 0, time.Hour)
	assert.Empty(t, ValidateDiscount(ok))

	bad := Discount{Percentage: decimal.NewFromFloat(100.5), StartDateTime: now, EndDateTime: now}
	errs := ValidateDiscount(bad)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"name", "percentage", "endDate"}, fields)
}

func TestCombineDateTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	got, err := CombineDateTime("2026-03-10", "18:30", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)))

	got, err = CombineDateTime("2026-03-10", "18:30:15", nil)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Second())

	got, err = CombineDateTime("2026-03-10", "", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Hour())

	_, err = CombineDateTime("10/03/2026", "10:00", time.UTC)
	assert.Error(t, err)
}
