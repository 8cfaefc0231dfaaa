package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	config "sales-forecast-api/configs"
	"sales-forecast-api/pkg/app"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// テスト環境の設定
	gin.SetMode(gin.TestMode)

	// .envファイルを読み込み（存在しなくてもよい）
	_ = godotenv.Load("../../.env")

	os.Exit(m.Run())
}

func TestApplicationSetup(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PREDICTION_SERVICE_URL", "")
	t.Setenv("FORECAST_STRATEGY", "statistical")
	t.Setenv("ORDERS_FILE", "")
	t.Setenv("PRODUCTS_FILE", "")
	t.Setenv("HOLIDAY_FILE", "")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_KEY", "")

	cfg := config.LoadConfig()
	assert.NotNil(t, cfg, "Config should not be nil")

	application, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	defer application.Close()

	assert.Equal(t, "statistical", application.Forecasts.Strategy())

	// ヘルスチェックのテスト
	req, _ := http.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	application.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	// 未登録の商品は404
	req, _ = http.NewRequest("POST", "/api/v1/sales/predict",
		strings.NewReader(`{"product_id": "nope", "seller_id": "s1", "start_date": "2025-06-01"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	application.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
