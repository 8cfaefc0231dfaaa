package services

import (
	"context"
	"time"

	"sales-forecast-api/pkg/models"
)

// OrderStore 注文データの読み取り
type OrderStore interface {
	// FindOrdersBetween は [start, end) の注文を返します。
	FindOrdersBetween(ctx context.Context, sellerID, productID string, start, end time.Time) ([]models.Order, error)
	// FindOrdersAfter は after 以降の注文を返します。
	FindOrdersAfter(ctx context.Context, sellerID, productID string, after time.Time) ([]models.Order, error)
	SearchOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
}

// ProductCatalog 商品カタログの参照。存在しない商品は *ProductNotFoundError を返す。
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	ListProductsBySellerAndCategory(ctx context.Context, sellerID, category string) ([]models.Product, error)
}

// PredictionBackend 外部の予測サービス
type PredictionBackend interface {
	PredictSingle(ctx context.Context, fv models.FeatureVector) (float64, error)
	PredictBatch(ctx context.Context, fvs []models.FeatureVector) ([]float64, error)
	Health(ctx context.Context) error
}

// OrderImporter 注文の一括登録
type OrderImporter interface {
	ImportOrders(ctx context.Context, orders []models.Order) (int, error)
}

// ProductImporter 商品の一括登録
type ProductImporter interface {
	UpsertProducts(ctx context.Context, products []models.Product) error
}

// ForecastRecorder 予測値の生成元を記録する（モニタリング用）
type ForecastRecorder interface {
	RecordForecast(source models.ForecastSource, count int)
}
