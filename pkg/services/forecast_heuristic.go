package services

import (
	"math"

	"sales-forecast-api/pkg/models"
)

const (
	heuristicBase            = 5.0
	heuristicDiscountWeight  = 10.0
	heuristicWeekendFactor   = 1.3
	heuristicHolidayFactor   = 1.5
	heuristicBaseWeight      = 0.7
	heuristicLagWeight       = 0.3
	heuristicMinimumQuantity = 1
)

// HeuristicQuantity 予測サービスが使えない日の簡易予測。同じ入力には常に同じ値を返す。
func HeuristicQuantity(fv models.FeatureVector) int {
	base := heuristicBase

	discount := 0.0
	if fv.OriginalPrice > 0 {
		discount = math.Max(0, (fv.OriginalPrice-fv.SalePrice)/fv.OriginalPrice)
	}
	base += discount * heuristicDiscountWeight

	if fv.IsWeekend == 1 {
		base *= heuristicWeekendFactor
	}
	if fv.IsHoliday == 1 {
		base *= heuristicHolidayFactor
	}

	avgLag := float64(fv.Lag1+fv.Lag7) / 2
	if avgLag > 0 {
		base = base*heuristicBaseWeight + avgLag*heuristicLagWeight
	}

	return max(heuristicMinimumQuantity, int(math.Round(base)))
}

// clampPrediction 予測サービスの値を0以上の整数に丸める
func clampPrediction(value float64) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return max(0, int(math.Round(value)))
}
