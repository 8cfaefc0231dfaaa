package handlers

import (
	"log"
	"net/http"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/services"
	"sales-forecast-api/pkg/storage"

	"github.com/gin-gonic/gin"
)

// 取り込みファイルの上限 (32MB)
const maxImportFileSize = 32 << 20

// SalesHandler 注文集計ハンドラー
type SalesHandler struct {
	aggregation *services.AggregationService
	importer    services.OrderImporter
}

// NewSalesHandler 新しい注文集計ハンドラーを作成
func NewSalesHandler(aggregation *services.AggregationService, importer services.OrderImporter) *SalesHandler {
	return &SalesHandler{
		aggregation: aggregation,
		importer:    importer,
	}
}

// Aggregate リクエストに含まれる注文を集計
func (h *SalesHandler) Aggregate(c *gin.Context) {
	var request models.AggregateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	respondOK(c, h.aggregation.Aggregate(request.Orders, request.TopN))
}

// SearchOrders ストアから注文を検索して集計
func (h *SalesHandler) SearchOrders(c *gin.Context) {
	var request models.OrderSearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	filter, err := orderFilter(request.SellerID, request.ProductID, request.Category, request.StartDate, request.EndDate)
	if err != nil {
		respondError(c, "検索条件が不正です", err)
		return
	}

	result, err := h.aggregation.SearchAndAggregate(c.Request.Context(), filter, request.TopN)
	if err != nil {
		respondError(c, "注文の検索に失敗しました", err)
		return
	}
	respondOK(c, result)
}

// TopProducts 売れ筋商品ランキング
func (h *SalesHandler) TopProducts(c *gin.Context) {
	var request models.TopProductsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	filter, err := orderFilter(request.SellerID, "", request.Category, request.StartDate, request.EndDate)
	if err != nil {
		respondError(c, "検索条件が不正です", err)
		return
	}

	products, err := h.aggregation.TopSellingProducts(c.Request.Context(), filter, request.TopN, request.IncludeRevenue)
	if err != nil {
		respondError(c, "売れ筋商品の取得に失敗しました", err)
		return
	}
	respondOK(c, products)
}

// ImportOrders CSV / XLSX の注文ファイルを取り込みます。
func (h *SalesHandler) ImportOrders(c *gin.Context) {
	if h.importer == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"success": false, "error": "注文の取り込みは無効です"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "ファイルを指定してください: "+err.Error())
		return
	}
	if fileHeader.Size > maxImportFileSize {
		badRequest(c, "ファイルサイズが大きすぎます")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, "ファイルを開けませんでした", err)
		return
	}
	defer file.Close()

	rows, err := storage.ReadRows(fileHeader.Filename, file)
	if err != nil {
		badRequest(c, "ファイルの読み込みに失敗しました: "+err.Error())
		return
	}
	orders, err := storage.ParseOrders(rows)
	if err != nil {
		badRequest(c, "注文データの解析に失敗しました: "+err.Error())
		return
	}

	imported, err := h.importer.ImportOrders(c.Request.Context(), orders)
	if err != nil {
		respondError(c, "注文の登録に失敗しました", err)
		return
	}
	log.Printf("📥 [取り込み] %s: %d行中 %d件を登録", fileHeader.Filename, len(rows)-1, imported)

	respondOK(c, gin.H{
		"file_name": fileHeader.Filename,
		"rows":      len(rows) - 1,
		"parsed":    len(orders),
		"imported":  imported,
	})
}
