package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"sales-forecast-api/pkg/models"

	"github.com/shopspring/decimal"
)

// AggregationService 注文データの集計サービス
type AggregationService struct {
	orders  OrderStore
	catalog ProductCatalog
}

// NewAggregationService 新しい集計サービスを作成
func NewAggregationService(orders OrderStore, catalog ProductCatalog) *AggregationService {
	return &AggregationService{
		orders:  orders,
		catalog: catalog,
	}
}

type salesAccumulator struct {
	productID string
	date      string
	quantity  int
	revenue   decimal.Decimal
}

func (a *salesAccumulator) summary() models.ProductSalesSummary {
	return models.ProductSalesSummary{
		ProductID:    a.productID,
		Quantity:     a.quantity,
		Date:         a.date,
		TotalRevenue: a.revenue.InexactFloat64(),
	}
}

// Aggregate 注文を商品×日と商品合計に集計します。
// 日次は日付の降順、合計は数量の降順で並べ、同順位は入力で先に現れた順を保ちます。
// topN > 0 の場合は上位N商品に絞り込みます。
func (s *AggregationService) Aggregate(orders []models.Order, topN int) models.SalesAggregation {
	return AggregateOrders(orders, topN)
}

// AggregateOrders は Aggregate のステートレス版です。
func AggregateOrders(orders []models.Order, topN int) models.SalesAggregation {
	dailyIndex := make(map[string]*salesAccumulator)
	totalIndex := make(map[string]*salesAccumulator)
	daily := make([]*salesAccumulator, 0)
	totals := make([]*salesAccumulator, 0)
	skipped := 0

	for i, order := range orders {
		if err := validateOrder(order); err != nil {
			skipped++
			log.Printf("⚠️ [集計] 注文 #%d (%s) をスキップ: %v", i, order.OrderID, err)
			continue
		}

		revenue := decimal.NewFromFloat(order.TotalPrice)
		dayKey := order.Timestamp.UTC().Format(models.DayKeyLayout)

		key := order.ProductID + "|" + dayKey
		acc, ok := dailyIndex[key]
		if !ok {
			acc = &salesAccumulator{productID: order.ProductID, date: dayKey}
			dailyIndex[key] = acc
			daily = append(daily, acc)
		}
		acc.quantity += order.Quantity
		acc.revenue = acc.revenue.Add(revenue)

		total, ok := totalIndex[order.ProductID]
		if !ok {
			total = &salesAccumulator{productID: order.ProductID, date: models.TotalDateKey}
			totalIndex[order.ProductID] = total
			totals = append(totals, total)
		}
		total.quantity += order.Quantity
		total.revenue = total.revenue.Add(revenue)
	}

	if skipped > 0 {
		log.Printf("📊 [集計] %d件中%d件の注文をスキップしました", len(orders), skipped)
	}

	// yyyy/MM/dd は文字列比較で日付順になる
	sort.SliceStable(daily, func(i, j int) bool {
		return daily[i].date > daily[j].date
	})
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].quantity > totals[j].quantity
	})

	var keep map[string]bool
	if topN > 0 {
		if len(totals) > topN {
			totals = totals[:topN]
		}
		keep = make(map[string]bool, len(totals))
		for _, t := range totals {
			keep[t.productID] = true
		}
	}

	result := models.SalesAggregation{
		DailyProductSales: make([]models.ProductSalesSummary, 0, len(daily)),
		TotalSummary:      make([]models.ProductSalesSummary, 0, len(totals)),
	}
	for _, d := range daily {
		if keep != nil && !keep[d.productID] {
			continue
		}
		result.DailyProductSales = append(result.DailyProductSales, d.summary())
	}
	for _, t := range totals {
		result.TotalSummary = append(result.TotalSummary, t.summary())
	}
	return result
}

func validateOrder(order models.Order) error {
	switch {
	case order.ProductID == "":
		return errors.New("product_id が空です")
	case order.Quantity <= 0:
		return fmt.Errorf("数量が不正です: %d", order.Quantity)
	case order.Timestamp.IsZero():
		return errors.New("注文日時がありません")
	}
	return nil
}

// SearchAndAggregate 条件で注文を検索し、その結果を集計します。
func (s *AggregationService) SearchAndAggregate(ctx context.Context, filter models.OrderFilter, topN int) (*models.OrderSearchResponse, error) {
	orders, err := s.orders.SearchOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("注文の検索に失敗: %w", err)
	}
	return &models.OrderSearchResponse{
		Orders:      orders,
		Aggregation: AggregateOrders(orders, topN),
	}, nil
}

// TopSellingProducts 売れ筋上位N商品をカタログ情報付きで返します。
// includeRevenue が false の場合、売上金額は含めません。
func (s *AggregationService) TopSellingProducts(ctx context.Context, filter models.OrderFilter, topN int, includeRevenue bool) ([]models.TopSellingProduct, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("top_n は1以上を指定してください: %d", topN)
	}

	orders, err := s.orders.SearchOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("注文の検索に失敗: %w", err)
	}
	aggregation := AggregateOrders(orders, topN)

	products := make([]models.TopSellingProduct, 0, len(aggregation.TotalSummary))
	for _, total := range aggregation.TotalSummary {
		item := models.TopSellingProduct{
			ProductID:     total.ProductID,
			TotalQuantity: total.Quantity,
		}

		product, err := s.catalog.GetProduct(ctx, total.ProductID)
		var notFound *ProductNotFoundError
		switch {
		case errors.As(err, &notFound):
			log.Printf("⚠️ [集計] 商品 %s がカタログに見つかりません", total.ProductID)
		case err != nil:
			return nil, fmt.Errorf("商品情報の取得に失敗 (%s): %w", total.ProductID, err)
		default:
			item.Name = product.Name
			item.Category = product.Category
			item.Brand = product.Brand
			item.Price = product.Price
		}

		if includeRevenue {
			revenue := total.TotalRevenue
			item.TotalRevenue = &revenue
		}
		products = append(products, item)
	}
	return products, nil
}
