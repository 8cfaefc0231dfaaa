package models

// AggregateRequest 集計APIのリクエスト
type AggregateRequest struct {
	Orders []Order `json:"orders"`
	TopN   int     `json:"top_n"`
}

// OrderSearchRequest 注文検索＋集計APIのリクエスト
type OrderSearchRequest struct {
	SellerID  string `json:"seller_id"`
	ProductID string `json:"product_id"`
	Category  string `json:"category"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	TopN      int    `json:"top_n"`
}

// OrderSearchResponse 注文検索＋集計APIのレスポンス
type OrderSearchResponse struct {
	Orders      []Order          `json:"orders"`
	Aggregation SalesAggregation `json:"aggregation"`
}

// TopProductsRequest 売れ筋商品APIのリクエスト
type TopProductsRequest struct {
	SellerID       string `json:"seller_id"`
	Category       string `json:"category"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	TopN           int    `json:"top_n" binding:"required,min=1"`
	IncludeRevenue bool   `json:"include_revenue"`
}

// ForecastRequest 販売予測APIのリクエスト
type ForecastRequest struct {
	ProductID string   `json:"product_id" binding:"required"`
	SellerID  string   `json:"seller_id" binding:"required"`
	SalePrice *float64 `json:"sale_price"`
	StartDate string   `json:"start_date" binding:"required"`
	EndDate   string   `json:"end_date"`
}

// TopForecastRequest カテゴリ内上位N商品の予測リクエスト
type TopForecastRequest struct {
	SellerID  string `json:"seller_id" binding:"required"`
	Category  string `json:"category" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"`
	TopN      int    `json:"top_n" binding:"required,min=1"`
}

// OutlookRequest 週次見通しAPIのリクエスト
type OutlookRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	SellerID  string `json:"seller_id" binding:"required"`
	StartDate string `json:"start_date"`
	Weeks     int    `json:"weeks" binding:"omitempty,min=1,max=104"`
}
