package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	config "sales-forecast-api/configs"
	"sales-forecast-api/pkg/handlers"
	"sales-forecast-api/pkg/prediction"
	"sales-forecast-api/pkg/services"
	"sales-forecast-api/pkg/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Store 注文・商品の読み書きをまとめたストア
type Store interface {
	services.OrderStore
	services.ProductCatalog
	services.OrderImporter
	services.ProductImporter
}

// App 初期化済みのルーターと依存関係
type App struct {
	Config     *config.Config
	Router     *gin.Engine
	Monitoring *services.MonitoringService
	Forecasts  *services.SalesForecastService

	store   Store
	closers []func() error
}

// New 設定からストア・予測器・ハンドラーを組み立てます。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	if err := a.loadFiles(ctx); err != nil {
		a.Close()
		return nil, err
	}

	holidays, err := services.LoadHolidayCalendar(cfg.HolidayFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("祝日カレンダーの読み込みに失敗: %w", err)
	}
	log.Printf("📅 [起動] 祝日 %d 件を読み込みました", holidays.Len())

	a.Monitoring = services.NewMonitoringService()

	statistical := services.NewStatisticalForecaster(store)
	statistical.SetRecorder(a.Monitoring)

	var forecaster services.Forecaster = statistical
	var prober handlers.HealthProber
	if cfg.ResolvedStrategy() == config.StrategyRemote {
		if cfg.PredictionServiceURL == "" {
			log.Printf("⚠️ [起動] PREDICTION_SERVICE_URL が未設定です。全ての日がヒューリスティック予測になります")
		}
		client := prediction.NewClient(cfg.PredictionServiceURL,
			prediction.WithTimeouts(cfg.PredictionSingleTimeout, cfg.PredictionBatchTimeout, cfg.PredictionHealthTimeout))
		remote := services.NewRemoteForecaster(client, store, services.NewFeatureBuilder(holidays), cfg.HistoryWindowDays)
		remote.SetRecorder(a.Monitoring)
		forecaster = remote
		prober = client
	}
	a.Forecasts = services.NewSalesForecastService(store, forecaster, cfg.TopNConcurrency)
	log.Printf("🔮 [起動] 予測戦略: %s", a.Forecasts.Strategy())

	a.Router = a.buildRouter(statistical, prober)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (Store, error) {
	if a.Config.DatabaseURL == "" {
		log.Printf("🗄️ [起動] DATABASE_URL が未設定のためメモリストアを使用します")
		return storage.NewMemoryStore(), nil
	}

	pg, err := storage.NewPostgresStore(ctx, a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)
	if err := pg.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}
	log.Printf("🗄️ [起動] PostgreSQLに接続しました")
	return pg, nil
}

// loadFiles 商品・注文ファイルが指定されていればストアに登録します。
func (a *App) loadFiles(ctx context.Context) error {
	if a.Config.ProductsFile != "" {
		products, err := storage.LoadProductsFile(a.Config.ProductsFile)
		if err != nil {
			return err
		}
		if err := a.store.UpsertProducts(ctx, products); err != nil {
			return err
		}
		log.Printf("📥 [起動] 商品 %d 件を登録しました (%s)", len(products), a.Config.ProductsFile)
	}
	if a.Config.OrdersFile != "" {
		orders, err := storage.LoadOrdersFile(a.Config.OrdersFile)
		if err != nil {
			return err
		}
		n, err := a.store.ImportOrders(ctx, orders)
		if err != nil {
			return err
		}
		log.Printf("📥 [起動] 注文 %d 件を登録しました (%s)", n, a.Config.OrdersFile)
	}
	return nil
}

func (a *App) buildRouter(outlook handlers.OutlookProvider, prober handlers.HealthProber) *gin.Engine {
	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	salesHandler := handlers.NewSalesHandler(services.NewAggregationService(a.store, a.store), a.store)
	forecastHandler := handlers.NewForecastHandler(a.Forecasts, outlook)
	adminHandler := handlers.NewAdminHandler(a.Config, prober)
	monitoringHandler := handlers.NewMonitoringHandler(a.Monitoring)

	r.Use(a.Monitoring.LoggingMiddleware())
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("X-API-KEY")
	r.Use(cors.New(corsConfig))

	r.GET("/health", handlers.HealthCheck)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(a.Config.APIKey))
	{
		sales := v1.Group("/sales")
		{
			sales.POST("/aggregate", salesHandler.Aggregate)
			sales.POST("/orders/search", salesHandler.SearchOrders)
			sales.POST("/orders/import", salesHandler.ImportOrders)
			sales.POST("/top-products", salesHandler.TopProducts)
			sales.POST("/predict", forecastHandler.Predict)
			sales.POST("/predict/top", forecastHandler.PredictTop)
			sales.POST("/predict/outlook", forecastHandler.Outlook)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
			monitoring.GET("/forecasts", monitoringHandler.GetForecastStats)
		}
	}
	return r
}

// authMiddleware X-API-KEY ヘッダーを検証します。キー未設定なら素通し。
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-KEY") != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// Close ストアの接続を閉じます。
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
