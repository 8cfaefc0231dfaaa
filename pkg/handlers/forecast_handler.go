package handlers

import (
	"context"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// OutlookProvider 週次の販売見通しを返す
type OutlookProvider interface {
	SalesOutlook(ctx context.Context, productID, sellerID string, from time.Time, weeks int) (*models.SalesOutlook, error)
}

// ForecastHandler 販売予測ハンドラー
type ForecastHandler struct {
	forecasts *services.SalesForecastService
	outlook   OutlookProvider
	now       func() time.Time
}

// NewForecastHandler 新しい販売予測ハンドラーを作成
func NewForecastHandler(forecasts *services.SalesForecastService, outlook OutlookProvider) *ForecastHandler {
	return &ForecastHandler{
		forecasts: forecasts,
		outlook:   outlook,
		now:       time.Now,
	}
}

// Predict 単一商品の日別販売数を予測
func (h *ForecastHandler) Predict(c *gin.Context) {
	var request models.ForecastRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	start, err := parseDate("start_date", request.StartDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	end, err := parseOptionalDate("end_date", request.EndDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.forecasts.Forecast(c.Request.Context(), request.ProductID, request.SellerID, request.SalePrice, start, end)
	if err != nil {
		respondError(c, "販売予測に失敗しました", err)
		return
	}
	respondOK(c, result)
}

// PredictTop カテゴリ内の商品を予測し、予測合計の上位N件を返します。
func (h *ForecastHandler) PredictTop(c *gin.Context) {
	var request models.TopForecastRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	start, err := parseDate("start_date", request.StartDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	end, err := parseOptionalDate("end_date", request.EndDate)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	results, err := h.forecasts.ForecastTopN(c.Request.Context(), request.SellerID, request.Category, start, end, request.TopN)
	if err != nil {
		respondError(c, "上位商品の販売予測に失敗しました", err)
		return
	}
	respondOK(c, results)
}

// Outlook 統計モデルによる週次見通し（開始日省略時は今日から）
func (h *ForecastHandler) Outlook(c *gin.Context) {
	var request models.OutlookRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "リクエストの解析に失敗しました: "+err.Error())
		return
	}

	from := h.now().UTC()
	if request.StartDate != "" {
		start, err := parseDate("start_date", request.StartDate)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		from = start
	}

	outlook, err := h.outlook.SalesOutlook(c.Request.Context(), request.ProductID, request.SellerID, from, request.Weeks)
	if err != nil {
		respondError(c, "販売見通しの作成に失敗しました", err)
		return
	}
	respondOK(c, outlook)
}
