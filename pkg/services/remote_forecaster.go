package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"sales-forecast-api/pkg/models"
)

// DefaultHistoryWindowDays 特徴量計算に使う過去データの日数
const DefaultHistoryWindowDays = 60

// RemoteForecaster 予測サービスを使う予測器。
// バッチ → 日ごとの単発呼び出し → ヒューリスティックの順にフォールバックします。
type RemoteForecaster struct {
	backend           PredictionBackend
	orders            OrderStore
	features          *FeatureBuilder
	historyWindowDays int
	recorder          ForecastRecorder
}

// NewRemoteForecaster 新しいRemoteForecasterを作成
func NewRemoteForecaster(backend PredictionBackend, orders OrderStore, features *FeatureBuilder, historyWindowDays int) *RemoteForecaster {
	if historyWindowDays <= 0 {
		historyWindowDays = DefaultHistoryWindowDays
	}
	return &RemoteForecaster{
		backend:           backend,
		orders:            orders,
		features:          features,
		historyWindowDays: historyWindowDays,
	}
}

// SetRecorder 予測値の生成元を記録するレコーダーを設定
func (f *RemoteForecaster) SetRecorder(recorder ForecastRecorder) {
	f.recorder = recorder
}

// Name 予測器の名前
func (f *RemoteForecaster) Name() string {
	return "remote"
}

// Forecast start〜endの各日について販売数を予測します。
// 予測サービスの失敗はフォールバックで吸収し、エラーとしては返しません。
func (f *RemoteForecaster) Forecast(ctx context.Context, product models.Product, input ForecastInput) (*models.Predications, error) {
	windowStart := input.Start.AddDate(0, 0, -f.historyWindowDays)
	history, err := f.orders.FindOrdersBetween(ctx, input.SellerID, product.ID, windowStart, input.Start)
	if err != nil {
		return nil, fmt.Errorf("販売履歴の取得に失敗: %w", err)
	}

	vectors := f.features.BuildRange(product, input.SellerID, input.SalePrice, input.Start, input.End, history)
	days := make([]dayPrediction, len(vectors))

	for _, stage := range f.stages(len(vectors)) {
		if allResolved(days) {
			break
		}
		stage(ctx, vectors, days)
	}

	result := assemblePredications(product.ID, input.Start, input.End, days, f.Name())
	f.record(days)
	return result, nil
}

// dayPrediction 1日分の予測結果。resolved が false の日は次の段階に回される。
type dayPrediction struct {
	quantity int
	source   models.ForecastSource
	resolved bool
}

func allResolved(days []dayPrediction) bool {
	for _, d := range days {
		if !d.resolved {
			return false
		}
	}
	return true
}

// forecastStage 未確定の日だけを埋める
type forecastStage func(ctx context.Context, vectors []models.FeatureVector, days []dayPrediction)

func (f *RemoteForecaster) stages(totalDays int) []forecastStage {
	if totalDays == 1 {
		return []forecastStage{f.singleStage, heuristicStage}
	}
	return []forecastStage{f.batchStage, f.singleStage, heuristicStage}
}

func (f *RemoteForecaster) batchStage(ctx context.Context, vectors []models.FeatureVector, days []dayPrediction) {
	values, err := f.backend.PredictBatch(ctx, vectors)
	if err != nil {
		log.Printf("⚠️ [予測] バッチ予測に失敗しました。日ごとの予測に切り替えます: %v", err)
		f.recordFailure("predict_batch")
		return
	}
	if len(values) != len(vectors) {
		log.Printf("⚠️ [予測] バッチ予測の件数が一致しません (要求 %d 件 / 応答 %d 件)。日ごとの予測に切り替えます", len(vectors), len(values))
		f.recordFailure("predict_batch")
		return
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			log.Printf("⚠️ [予測] バッチ予測の %d 件目が数値ではありません。日ごとの予測に切り替えます", i+1)
			f.recordFailure("predict_batch")
			return
		}
	}
	for i, v := range values {
		days[i] = dayPrediction{quantity: clampPrediction(v), source: models.SourceRemoteBatch, resolved: true}
	}
}

func (f *RemoteForecaster) singleStage(ctx context.Context, vectors []models.FeatureVector, days []dayPrediction) {
	for i, fv := range vectors {
		if days[i].resolved {
			continue
		}
		value, err := f.backend.PredictSingle(ctx, fv)
		if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
			err = fmt.Errorf("予測値が数値ではありません: %v", value)
		}
		if err != nil {
			log.Printf("⚠️ [予測] %s の単日予測に失敗しました。簡易予測を使用します: %v", describeDay(fv), err)
			f.recordFailure("predict")
			continue
		}
		days[i] = dayPrediction{quantity: clampPrediction(value), source: models.SourceRemoteSingle, resolved: true}
	}
}

func heuristicStage(_ context.Context, vectors []models.FeatureVector, days []dayPrediction) {
	for i, fv := range vectors {
		if days[i].resolved {
			continue
		}
		days[i] = dayPrediction{quantity: HeuristicQuantity(fv), source: models.SourceHeuristic, resolved: true}
	}
}

func describeDay(fv models.FeatureVector) string {
	return fmt.Sprintf("%s (%02d/%02d)", fv.ProductID, fv.Month, fv.DayOfMonth)
}

func (f *RemoteForecaster) record(days []dayPrediction) {
	if f.recorder == nil {
		return
	}
	counts := make(map[models.ForecastSource]int)
	for _, d := range days {
		counts[d.source]++
	}
	for source, n := range counts {
		f.recorder.RecordForecast(source, n)
	}
}

func (f *RemoteForecaster) recordFailure(op string) {
	if r, ok := f.recorder.(BackendFailureRecorder); ok {
		r.RecordBackendFailure(op)
	}
}

// BackendFailureRecorder 予測サービス呼び出しの失敗を記録する
type BackendFailureRecorder interface {
	RecordBackendFailure(op string)
}

func assemblePredications(productID string, start, end time.Time, days []dayPrediction, strategy string) *models.Predications {
	result := &models.Predications{
		ProductID:       productID,
		PredicationList: make([]models.Predication, 0, len(days)),
		StartDate:       start.Format(models.DateLayout),
		EndDate:         end.Format(models.DateLayout),
		TotalDays:       InclusiveDays(start, end),
		Strategy:        strategy,
	}
	for i, d := range days {
		result.PredicationList = append(result.PredicationList, models.Predication{
			Date:     start.AddDate(0, 0, i).Format(models.DateLayout),
			Quantity: d.quantity,
			Source:   d.source,
		})
		result.TotalQuantity += d.quantity
	}
	return result
}
