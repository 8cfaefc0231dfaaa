package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"sales-forecast-api/pkg/models"

	"golang.org/x/sync/errgroup"
)

// DefaultTopNConcurrency カテゴリ上位予測で同時に実行する商品数
const DefaultTopNConcurrency = 4

// Forecaster 販売予測の戦略
type Forecaster interface {
	Name() string
	Forecast(ctx context.Context, product models.Product, input ForecastInput) (*models.Predications, error)
}

// ForecastInput 正規化済みの予測条件
type ForecastInput struct {
	SellerID  string
	SalePrice *float64
	Start     time.Time
	End       time.Time
}

// MaxForecastDays 1回の予測で扱う最大日数
const MaxForecastDays = 366

// NormalizeRange endがnilならstartと同日にし、日付部分だけに揃えます。
// endがstartより前の場合は *InvalidRangeError、MaxForecastDays を超える場合は *RangeTooLongError を返します。
func NormalizeRange(start time.Time, end *time.Time) (time.Time, time.Time, error) {
	s := truncateDay(start)
	e := s
	if end != nil {
		e = truncateDay(*end)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, &InvalidRangeError{Start: s, End: e}
	}
	if days := InclusiveDays(s, e); days > MaxForecastDays {
		return time.Time{}, time.Time{}, &RangeTooLongError{Days: days, Max: MaxForecastDays}
	}
	return s, e, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SalesForecastService 販売予測サービス
type SalesForecastService struct {
	catalog     ProductCatalog
	forecaster  Forecaster
	concurrency int
}

// NewSalesForecastService 新しい販売予測サービスを作成
func NewSalesForecastService(catalog ProductCatalog, forecaster Forecaster, concurrency int) *SalesForecastService {
	if concurrency <= 0 {
		concurrency = DefaultTopNConcurrency
	}
	return &SalesForecastService{
		catalog:     catalog,
		forecaster:  forecaster,
		concurrency: concurrency,
	}
}

// Strategy 使用中の予測器の名前
func (s *SalesForecastService) Strategy() string {
	return s.forecaster.Name()
}

// Forecast 商品の販売数を日ごとに予測します。
func (s *SalesForecastService) Forecast(ctx context.Context, productID, sellerID string, salePrice *float64, start time.Time, end *time.Time) (*models.Predications, error) {
	from, to, err := NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	log.Printf("🔮 [予測] 商品 %s / 出品者 %s: %s〜%s (%s)", productID, sellerID,
		from.Format(models.DateLayout), to.Format(models.DateLayout), s.forecaster.Name())

	return s.forecaster.Forecast(ctx, *product, ForecastInput{
		SellerID:  sellerID,
		SalePrice: salePrice,
		Start:     from,
		End:       to,
	})
}

// ForecastTopN カテゴリ内の全商品を予測し、予測合計の多い順に上位N件を返します。
// topN <= 0 の場合は全件を返します。
func (s *SalesForecastService) ForecastTopN(ctx context.Context, sellerID, category string, start time.Time, end *time.Time, topN int) ([]models.Predications, error) {
	from, to, err := NormalizeRange(start, end)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.ListProductsBySellerAndCategory(ctx, sellerID, category)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗: %w", err)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].ID < products[j].ID
	})

	log.Printf("🔮 [予測] 出品者 %s / カテゴリ %s: %d商品を予測します", sellerID, category, len(products))

	input := ForecastInput{SellerID: sellerID, Start: from, End: to}
	results := make([]*models.Predications, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, product := range products {
		g.Go(func() error {
			p, err := s.forecaster.Forecast(gctx, product, input)
			if err != nil {
				return fmt.Errorf("商品 %s の予測に失敗: %w", product.ID, err)
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]models.Predications, 0, len(results))
	for _, p := range results {
		ranked = append(ranked, *p)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalQuantity > ranked[j].TotalQuantity
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked, nil
}
