package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"sales-forecast-api/pkg/models"
)

const (
	defaultProjectionWeeks = 4
	defaultOutlookWeeks    = 12
	maxProjectionWeeks     = 104
	outlookHistoryMonths   = 6
	mockWeeklyBaseline     = 100.0
	mockWeeklyGrowth       = 0.05
)

// StatisticalForecaster 予測サービスを使わず、販売履歴の曜日・日付パターンとトレンドから予測します。
type StatisticalForecaster struct {
	orders   OrderStore
	recorder ForecastRecorder
}

// NewStatisticalForecaster 新しい統計予測器を作成
func NewStatisticalForecaster(orders OrderStore) *StatisticalForecaster {
	return &StatisticalForecaster{orders: orders}
}

// SetRecorder 予測値の生成元を記録するレコーダーを設定
func (f *StatisticalForecaster) SetRecorder(recorder ForecastRecorder) {
	f.recorder = recorder
}

// Name 予測器の名前
func (f *StatisticalForecaster) Name() string {
	return "statistical"
}

// statisticalModel 履歴から求めた係数
type statisticalModel struct {
	averageDaily    float64
	weekdayFactors  map[time.Weekday]float64
	monthDayFactors map[int]float64
	trendRatio      float64
	saleDays        int
}

func fitStatisticalModel(history []models.Order) statisticalModel {
	totals := aggregateDailyTotals(history)
	values := make([]float64, len(totals))
	for i, dt := range totals {
		values[i] = dt.quantity
	}
	average := calculateMean(values)

	return statisticalModel{
		averageDaily:    average,
		weekdayFactors:  seasonalFactors(totals, average, func(t time.Time) time.Weekday { return t.Weekday() }),
		monthDayFactors: seasonalFactors(totals, average, func(t time.Time) int { return t.Day() }),
		trendRatio:      calculateTrendRatio(totals),
		saleDays:        len(totals),
	}
}

func (m statisticalModel) isEmpty() bool {
	return m.saleDays == 0
}

// daily weekAhead週目（1始まり）の日の予測値
func (m statisticalModel) daily(day time.Time, weekAhead int) float64 {
	if m.isEmpty() {
		return mockWeeklyBaseline * (1 + mockWeeklyGrowth*float64(weekAhead-1)) / 7
	}
	wf, ok := m.weekdayFactors[day.Weekday()]
	if !ok {
		wf = 1.0
	}
	mf, ok := m.monthDayFactors[day.Day()]
	if !ok {
		mf = 1.0
	}
	trend := math.Pow(m.trendRatio, float64(weekAhead)*trendExponentPerWeek)
	return math.Max(0, m.averageDaily*wf*mf*trend)
}

func weekAheadOf(from, day time.Time) int {
	return (InclusiveDays(from, day)-1)/7 + 1
}

// history start より前の全履歴
func (f *StatisticalForecaster) history(ctx context.Context, sellerID, productID string, before time.Time) ([]models.Order, error) {
	orders, err := f.orders.FindOrdersAfter(ctx, sellerID, productID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("販売履歴の取得に失敗: %w", err)
	}
	filtered := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Timestamp.Before(before) {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// Forecast start〜endの各日について予測します。履歴がない場合は固定のベースライン値を返します。
func (f *StatisticalForecaster) Forecast(ctx context.Context, product models.Product, input ForecastInput) (*models.Predications, error) {
	history, err := f.history(ctx, input.SellerID, product.ID, input.Start)
	if err != nil {
		return nil, err
	}
	model := fitStatisticalModel(history)

	source := models.SourceStatistical
	if model.isEmpty() {
		source = models.SourceMockBaseline
		log.Printf("⚠️ [統計予測] 商品 %s / 出品者 %s の販売履歴がないためベースライン値を使用します", product.ID, input.SellerID)
	}

	days := make([]dayPrediction, 0, InclusiveDays(input.Start, input.End))
	for d := input.Start; !d.After(input.End); d = d.AddDate(0, 0, 1) {
		days = append(days, dayPrediction{
			quantity: clampPrediction(model.daily(d, weekAheadOf(input.Start, d))),
			source:   source,
			resolved: true,
		})
	}

	result := assemblePredications(product.ID, input.Start, input.End, days, f.Name())
	result.Mock = model.isEmpty()
	if f.recorder != nil {
		f.recorder.RecordForecast(source, len(days))
	}
	return result, nil
}

// ProjectWeekly from から weeksAhead 週分の週次合計を予測します。weeksAhead < 1 の場合は4週、上限は104週。
func (f *StatisticalForecaster) ProjectWeekly(ctx context.Context, productID, sellerID string, from time.Time, weeksAhead int) ([]models.WeeklyProjection, bool, error) {
	if weeksAhead < 1 {
		weeksAhead = defaultProjectionWeeks
	}
	weeksAhead = min(weeksAhead, maxProjectionWeeks)
	from = truncateDay(from)

	history, err := f.history(ctx, sellerID, productID, from)
	if err != nil {
		return nil, false, err
	}
	model := fitStatisticalModel(history)

	weeks := make([]models.WeeklyProjection, 0, weeksAhead)
	for week := 1; week <= weeksAhead; week++ {
		weekStart := from.AddDate(0, 0, (week-1)*7)
		total := 0.0
		for day := 0; day < 7; day++ {
			total += model.daily(weekStart.AddDate(0, 0, day), week)
		}
		weeks = append(weeks, models.WeeklyProjection{
			Week:      week,
			StartDate: weekStart.Format(models.DateLayout),
			EndDate:   weekStart.AddDate(0, 0, 6).Format(models.DateLayout),
			Quantity:  roundTo(total, 2),
		})
	}
	return weeks, model.isEmpty(), nil
}

// SalesOutlook 週次予測に合計・トレンド方向・月次集計・直近6か月の実績を加えた見通しを返します。
func (f *StatisticalForecaster) SalesOutlook(ctx context.Context, productID, sellerID string, from time.Time, weeks int) (*models.SalesOutlook, error) {
	if weeks < 1 {
		weeks = defaultOutlookWeeks
	}
	weeks = min(weeks, maxProjectionWeeks)
	from = truncateDay(from)

	projection, mock, err := f.ProjectWeekly(ctx, productID, sellerID, from, weeks)
	if err != nil {
		return nil, err
	}

	recent, err := f.orders.FindOrdersBetween(ctx, sellerID, productID, from.AddDate(0, -outlookHistoryMonths, 0), from)
	if err != nil {
		return nil, fmt.Errorf("直近の販売実績の取得に失敗: %w", err)
	}
	historical := 0
	for _, o := range recent {
		historical += o.Quantity
	}

	total := 0.0
	monthly := make(map[string]float64)
	for _, w := range projection {
		total += w.Quantity
		monthly[w.StartDate[:7]] += w.Quantity
	}
	months := make([]models.MonthlyProjection, 0, len(monthly))
	for month, qty := range monthly {
		months = append(months, models.MonthlyProjection{Month: month, Quantity: roundTo(qty, 2)})
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month < months[j].Month
	})

	return &models.SalesOutlook{
		ProductID:              productID,
		SellerID:               sellerID,
		Weeks:                  projection,
		TotalPredictedQuantity: roundTo(total, 2),
		TrendDirection:         trendDirection(projection[0].Quantity, projection[len(projection)-1].Quantity),
		MonthlyPredictions:     months,
		HistoricalQuantity:     historical,
		Mock:                   mock,
	}, nil
}
