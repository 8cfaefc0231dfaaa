package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "sales-forecast-api/configs"
	"sales-forecast-api/pkg/app"
)

var (
	router  http.Handler
	initErr error
	once    sync.Once
)

// setupApp はアプリケーションを一度だけ初期化します。
// 環境変数はホスティング側の設定から読み込まれるため、godotenvは使用しません。
func setupApp() (http.Handler, error) {
	once.Do(func() {
		log.Printf("🟢 [setupApp] Initializing sales forecast API")

		cfg := config.LoadConfig()
		application, err := app.New(context.Background(), cfg)
		if err != nil {
			initErr = err
			log.Printf("❌ [setupApp] 初期化に失敗: %v", err)
			return
		}
		router = application.Router
	})
	return router, initErr
}

// Handler はサーバーレス関数のエントリーポイントです。
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := setupApp()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":"service initialization failed"}`))
		return
	}
	h.ServeHTTP(w, r)
}
