package services

import (
	"math"
	"sort"
	"time"

	"sales-forecast-api/pkg/models"
)

// 統計モデル用のパラメータ
const (
	minTrendSaleDays      = 14
	flatTrendRatio        = 1.0
	emergingTrendRatio    = 1.5
	trendExponentPerWeek  = 0.5
	trendDirectionEpsilon = 0.05
)

// calculateMean パッケージ内部用のヘルパー関数：平均値を計算
func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// dailyTotal 販売のあった1日分の合計
type dailyTotal struct {
	day      time.Time
	quantity float64
}

// aggregateDailyTotals 注文を日ごとに合計し、日付の昇順で返す
func aggregateDailyTotals(orders []models.Order) []dailyTotal {
	byDay := make(map[string]*dailyTotal)
	for _, o := range orders {
		if o.Quantity <= 0 || o.Timestamp.IsZero() {
			continue
		}
		day := truncateDay(o.Timestamp.UTC())
		key := day.Format(models.DateLayout)
		if dt, ok := byDay[key]; ok {
			dt.quantity += float64(o.Quantity)
			continue
		}
		byDay[key] = &dailyTotal{day: day, quantity: float64(o.Quantity)}
	}

	totals := make([]dailyTotal, 0, len(byDay))
	for _, dt := range byDay {
		totals = append(totals, *dt)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].day.Before(totals[j].day)
	})
	return totals
}

// seasonalFactors キーごとの日次合計平均 / 全体平均
func seasonalFactors[K comparable](totals []dailyTotal, average float64, keyOf func(time.Time) K) map[K]float64 {
	groups := make(map[K][]float64)
	for _, dt := range totals {
		k := keyOf(dt.day)
		groups[k] = append(groups[k], dt.quantity)
	}
	factors := make(map[K]float64, len(groups))
	if average <= 0 {
		return factors
	}
	for k, values := range groups {
		factors[k] = calculateMean(values) / average
	}
	return factors
}

// calculateTrendRatio 後半の日次平均 / 前半の日次平均。販売日が14日未満なら1.0。
func calculateTrendRatio(totals []dailyTotal) float64 {
	if len(totals) < minTrendSaleDays {
		return flatTrendRatio
	}
	mid := len(totals) / 2
	first := make([]float64, 0, mid)
	second := make([]float64, 0, len(totals)-mid)
	for i, dt := range totals {
		if i < mid {
			first = append(first, dt.quantity)
		} else {
			second = append(second, dt.quantity)
		}
	}

	firstMean := calculateMean(first)
	secondMean := calculateMean(second)
	if firstMean == 0 {
		if secondMean > 0 {
			return emergingTrendRatio
		}
		return flatTrendRatio
	}
	return secondMean / firstMean
}

// trendDirection 最初の週と最後の週を比較して up / down / steady を返す
func trendDirection(first, last float64) string {
	switch {
	case last > first*(1+trendDirectionEpsilon):
		return "up"
	case last < first*(1-trendDirectionEpsilon):
		return "down"
	default:
		return "steady"
	}
}

func roundTo(value float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(value*p) / p
}
