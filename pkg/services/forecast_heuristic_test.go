package services

import (
	"math"
	"testing"

	"sales-forecast-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		fv       models.FeatureVector
		expected int
	}{
		{
			name:     "weekend discount with lags",
			fv:       models.FeatureVector{SalePrice: 80, OriginalPrice: 100, IsWeekend: 1, Lag1: 4, Lag7: 6},
			expected: 8, // 7 -> 9.1 -> 7.87
		},
		{
			name:     "no signals",
			fv:       models.FeatureVector{SalePrice: 100, OriginalPrice: 100},
			expected: 5,
		},
		{
			name:     "price increase is not a discount",
			fv:       models.FeatureVector{SalePrice: 150, OriginalPrice: 100},
			expected: 5,
		},
		{
			name:     "zero original price",
			fv:       models.FeatureVector{SalePrice: 10, OriginalPrice: 0},
			expected: 5,
		},
		{
			name:     "weekend holiday",
			fv:       models.FeatureVector{SalePrice: 50, OriginalPrice: 100, IsWeekend: 1, IsHoliday: 1},
			expected: 20, // 10 * 1.3 * 1.5 = 19.5
		},
		{
			name:     "strong lags",
			fv:       models.FeatureVector{SalePrice: 100, OriginalPrice: 100, Lag1: 40, Lag7: 30},
			expected: 14, // 3.5 + 10.5
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HeuristicQuantity(tc.fv))
			// 純粋関数であること
			assert.Equal(t, HeuristicQuantity(tc.fv), HeuristicQuantity(tc.fv))
		})
	}
}

func TestHeuristicQuantityNeverBelowOne(t *testing.T) {
	fv := models.FeatureVector{SalePrice: 100, OriginalPrice: 100}
	assert.GreaterOrEqual(t, HeuristicQuantity(fv), 1)
}

func TestClampPrediction(t *testing.T) {
	assert.Equal(t, 0, clampPrediction(-3.7))
	assert.Equal(t, 0, clampPrediction(0.4))
	assert.Equal(t, 3, clampPrediction(2.5))
	assert.Equal(t, 13, clampPrediction(12.6))
	assert.Equal(t, 0, clampPrediction(math.NaN()))
}
