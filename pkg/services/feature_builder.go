package services

import (
	"time"

	"sales-forecast-api/pkg/models"
)

var lagDays = [...]int{1, 7, 30}

// FeatureBuilder 予測サービスに渡す特徴量を組み立てる
type FeatureBuilder struct {
	holidays *HolidayCalendar
}

// NewFeatureBuilder 祝日カレンダーを受け取って作成
func NewFeatureBuilder(holidays *HolidayCalendar) *FeatureBuilder {
	return &FeatureBuilder{holidays: holidays}
}

// dailyQuantities 日付 (yyyy-MM-dd) ごとの販売数
type dailyQuantities map[string]int

func indexDailyQuantities(history []models.Order) dailyQuantities {
	index := make(dailyQuantities)
	for _, o := range history {
		index[o.Timestamp.UTC().Format(models.DateLayout)] += o.Quantity
	}
	return index
}

func (q dailyQuantities) lag(target time.Time, days int) int {
	return q[target.AddDate(0, 0, -days).Format(models.DateLayout)]
}

// Build 1日分の特徴量を作成します。
// salePrice が nil または 0 の場合はカタログ価格を使います。
func (b *FeatureBuilder) Build(product models.Product, sellerID string, salePrice *float64, target time.Time, history []models.Order) models.FeatureVector {
	return b.build(product, sellerID, salePrice, target, indexDailyQuantities(history))
}

// BuildRange start〜end（両端含む）の各日について特徴量を日付順に作成します。
func (b *FeatureBuilder) BuildRange(product models.Product, sellerID string, salePrice *float64, start, end time.Time, history []models.Order) []models.FeatureVector {
	index := indexDailyQuantities(history)
	vectors := make([]models.FeatureVector, 0, InclusiveDays(start, end))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		vectors = append(vectors, b.build(product, sellerID, salePrice, d, index))
	}
	return vectors
}

func (b *FeatureBuilder) build(product models.Product, sellerID string, salePrice *float64, target time.Time, index dailyQuantities) models.FeatureVector {
	price := product.Price
	if salePrice != nil && *salePrice != 0 {
		price = *salePrice
	}

	fv := models.FeatureVector{
		ProductID:     product.ID,
		SellerID:      sellerID,
		SalePrice:     price,
		OriginalPrice: product.Price,
		DayOfWeek:     DayOfWeekIndex(target),
		DayOfMonth:    target.Day(),
		Month:         int(target.Month()),
		Lag1:          index.lag(target, lagDays[0]),
		Lag7:          index.lag(target, lagDays[1]),
		Lag30:         index.lag(target, lagDays[2]),
	}
	if b.holidays.IsHoliday(target) {
		fv.IsHoliday = 1
	}
	if IsWeekend(target) {
		fv.IsWeekend = 1
	}
	return fv
}

// InclusiveDays start〜endの日数（両端含む）
func InclusiveDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}
