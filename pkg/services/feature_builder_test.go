package services

import (
	"testing"
	"time"

	"sales-forecast-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureBuilderBuild(t *testing.T) {
	builder := NewFeatureBuilder(NewHolidayCalendar(date("2025-07-04")))
	product := models.Product{ID: "p100", Price: 100}
	history := []models.Order{
		order("p100", "s1", "2025-07-03", 2, 200),
		order("p100", "s1", "2025-07-03", 2, 200),
		order("p100", "s1", "2025-06-27", 6, 600),
		order("p100", "s1", "2025-06-04", 9, 900),
		order("p100", "s1", "2025-06-05", 1, 100),
	}

	salePrice := 80.0
	fv := builder.Build(product, "s1", &salePrice, date("2025-07-04"), history)

	assert.Equal(t, models.FeatureVector{
		ProductID:     "p100",
		SellerID:      "s1",
		SalePrice:     80,
		OriginalPrice: 100,
		IsHoliday:     1,
		IsWeekend:     0,
		DayOfWeek:     4,
		DayOfMonth:    4,
		Month:         7,
		Lag1:          4,
		Lag7:          6,
		Lag30:         9,
	}, fv)
}

func TestFeatureBuilderLagsUseUTCDays(t *testing.T) {
	builder := NewFeatureBuilder(NewHolidayCalendar())
	product := models.Product{ID: "p1", Price: 10}

	tokyo := order("p1", "s1", "2025-07-03", 3, 30)
	tokyo.Timestamp = time.Date(2025, 7, 4, 7, 0, 0, 0, time.FixedZone("JST", 9*3600))
	newYork := order("p1", "s1", "2025-07-03", 5, 50)
	newYork.Timestamp = time.Date(2025, 7, 3, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	vectors := builder.BuildRange(product, "s1", nil, date("2025-07-04"), date("2025-07-05"), []models.Order{tokyo, newYork})
	require.Len(t, vectors, 2)
	// 07-04 07:00 JST は UTC で 07-03、07-03 23:30 EST は UTC で 07-04
	assert.Equal(t, 3, vectors[0].Lag1)
	assert.Equal(t, 5, vectors[1].Lag1)
}

func TestFeatureBuilderSalePriceFallback(t *testing.T) {
	builder := NewFeatureBuilder(NewHolidayCalendar())
	product := models.Product{ID: "p1", Price: 42}
	zero := 0.0

	testCases := []struct {
		name      string
		salePrice *float64
	}{
		{name: "nil", salePrice: nil},
		{name: "zero", salePrice: &zero},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fv := builder.Build(product, "s1", tc.salePrice, date("2025-06-07"), nil)
			assert.Equal(t, 42.0, fv.SalePrice)
			assert.Equal(t, 42.0, fv.OriginalPrice)
			assert.Equal(t, 1, fv.IsWeekend)
			assert.Equal(t, 5, fv.DayOfWeek)
			assert.Zero(t, fv.Lag1+fv.Lag7+fv.Lag30)
		})
	}
}

func TestFeatureBuilderBuildRange(t *testing.T) {
	builder := NewFeatureBuilder(NewHolidayCalendar())
	product := models.Product{ID: "p1", Price: 10}
	history := []models.Order{order("p1", "s1", "2025-05-31", 3, 30)}

	vectors := builder.BuildRange(product, "s1", nil, date("2025-06-01"), date("2025-06-08"), history)

	require.Len(t, vectors, 8)
	assert.Equal(t, 1, vectors[0].DayOfMonth)
	assert.Equal(t, 3, vectors[0].Lag1)
	assert.Equal(t, 0, vectors[1].Lag1)
	assert.Equal(t, 3, vectors[6].Lag7)
	assert.Equal(t, 8, vectors[7].DayOfMonth)
}

func TestInclusiveDays(t *testing.T) {
	assert.Equal(t, 1, InclusiveDays(date("2025-06-01"), date("2025-06-01")))
	assert.Equal(t, 30, InclusiveDays(date("2025-06-01"), date("2025-06-30")))
	assert.Equal(t, 366, InclusiveDays(date("2024-01-01"), date("2024-12-31")))
}
