package models

import "time"

const (
	// TotalDateKey 商品ごとの合計行に使う日付キー
	TotalDateKey = "total"
	// DayKeyLayout 日次集計の日付キー (yyyy/MM/dd)
	DayKeyLayout = "2006/01/02"
	// DateLayout APIの入出力で使う日付形式 (yyyy-MM-dd)
	DateLayout = "2006-01-02"
)

// Order 注文（取り込み後は変更されない）
type Order struct {
	OrderID    string    `json:"order_id" db:"order_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	BuyerID    string    `json:"buyer_id" db:"buyer_id"`
	SellerID   string    `json:"seller_id" db:"seller_id"`
	UnitPrice  float64   `json:"unit_price" db:"unit_price"`
	Quantity   int       `json:"quantity" db:"quantity"`
	TotalPrice float64   `json:"total_price" db:"total_price"`
	Timestamp  time.Time `json:"timestamp" db:"order_time"`
}

// Product 商品カタログのエントリ
type Product struct {
	ID          string    `json:"id" db:"product_id"`
	Name        string    `json:"name" db:"name"`
	Category    string    `json:"category" db:"category"`
	Brand       string    `json:"brand" db:"brand"`
	Price       float64   `json:"price" db:"price"`
	SellerID    string    `json:"seller_id" db:"seller_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Description string    `json:"description,omitempty" db:"description"`
}

// ProductSalesSummary 商品×日（または合計）単位の販売集計
type ProductSalesSummary struct {
	ProductID    string  `json:"product_id"`
	Quantity     int     `json:"quantity"`
	Date         string  `json:"date"`
	TotalRevenue float64 `json:"total_revenue"`
}

// SalesAggregation 集計結果
type SalesAggregation struct {
	DailyProductSales []ProductSalesSummary `json:"daily_product_sales"`
	TotalSummary      []ProductSalesSummary `json:"total_summary"`
}

// OrderFilter 注文検索条件。空のフィールドは条件に含めない。
type OrderFilter struct {
	SellerID  string
	ProductID string
	Category  string
	Start     *time.Time // この時刻以降
	End       *time.Time // この時刻より前
}

// ForecastSource 予測値を生成した段階
type ForecastSource string

const (
	SourceRemoteBatch  ForecastSource = "remote_batch"
	SourceRemoteSingle ForecastSource = "remote_single"
	SourceHeuristic    ForecastSource = "heuristic"
	SourceStatistical  ForecastSource = "statistical"
	SourceMockBaseline ForecastSource = "mock_baseline"
)

// Predication 1日分の予測
type Predication struct {
	Date     string         `json:"date"`
	Quantity int            `json:"quantity"`
	Source   ForecastSource `json:"source"`
}

// Predications 期間全体の予測結果
type Predications struct {
	ProductID       string        `json:"product_id"`
	PredicationList []Predication `json:"predication_list"`
	StartDate       string        `json:"start_date"`
	EndDate         string        `json:"end_date"`
	TotalQuantity   int           `json:"total_quantity"`
	TotalDays       int           `json:"total_days"`
	Strategy        string        `json:"strategy"`
	Mock            bool          `json:"mock,omitempty"`
}

// FeatureVector 予測バックエンドに渡す特徴量（1商品・1日分）
type FeatureVector struct {
	ProductID     string  `json:"product_id"`
	SellerID      string  `json:"seller_id"`
	SalePrice     float64 `json:"sale_price"`
	OriginalPrice float64 `json:"original_price"`
	IsHoliday     int     `json:"is_holiday"`
	IsWeekend     int     `json:"is_weekend"`
	DayOfWeek     int     `json:"day_of_week"`
	DayOfMonth    int     `json:"day_of_month"`
	Month         int     `json:"month"`
	Lag1          int     `json:"lag_1"`
	Lag7          int     `json:"lag_7"`
	Lag30         int     `json:"lag_30"`
}

// TopSellingProduct 売れ筋商品（カタログ情報付き）
type TopSellingProduct struct {
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Brand         string   `json:"brand"`
	Price         float64  `json:"price"`
	TotalQuantity int      `json:"total_quantity"`
	TotalRevenue  *float64 `json:"total_revenue,omitempty"`
}

// WeeklyProjection 統計モデルによる週次予測
type WeeklyProjection struct {
	Week      int     `json:"week"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Quantity  float64 `json:"quantity"`
}

// MonthlyProjection 月単位にまとめた予測
type MonthlyProjection struct {
	Month    string  `json:"month"`
	Quantity float64 `json:"quantity"`
}

// SalesOutlook 週次予測・トレンド・月次集計をまとめた見通し
type SalesOutlook struct {
	ProductID              string              `json:"product_id"`
	SellerID               string              `json:"seller_id"`
	Weeks                  []WeeklyProjection  `json:"weeks"`
	TotalPredictedQuantity float64             `json:"total_predicted_quantity"`
	TrendDirection         string              `json:"trend_direction"`
	MonthlyPredictions     []MonthlyProjection `json:"monthly_predictions"`
	HistoricalQuantity     int                 `json:"historical_quantity"`
	Mock                   bool                `json:"mock,omitempty"`
}
