package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"sales-forecast-api/pkg/models"
	"sales-forecast-api/pkg/prediction"
	"sales-forecast-api/pkg/services"
	"sales-forecast-api/pkg/storage"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	ordersFlag := &cli.StringFlag{Name: "orders", Usage: "注文ファイル (.csv / .xlsx)", Required: true}
	productsFlag := &cli.StringFlag{Name: "products", Usage: "商品ファイル (.csv / .xlsx)", Required: true}
	productFlag := &cli.StringFlag{Name: "product", Usage: "商品ID", Required: true}
	sellerFlag := &cli.StringFlag{Name: "seller", Usage: "出品者ID", Required: true}

	return &cli.App{
		Name:   "salesctl",
		Usage:  "注文ファイルの集計と販売予測",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:  "aggregate",
				Usage: "注文を商品×日と商品合計に集計",
				Flags: []cli.Flag{
					ordersFlag,
					&cli.IntFlag{Name: "top", Usage: "上位N商品に絞り込む（0で全件）"},
				},
				Action: runAggregate,
			},
			{
				Name:  "forecast",
				Usage: "商品の日別販売数を予測",
				Flags: []cli.Flag{
					ordersFlag, productsFlag, productFlag, sellerFlag,
					&cli.StringFlag{Name: "start", Usage: "開始日 (yyyy-MM-dd)", Required: true},
					&cli.StringFlag{Name: "end", Usage: "終了日 (yyyy-MM-dd、省略時は開始日)"},
					&cli.Float64Flag{Name: "price", Usage: "販売価格（省略時はカタログ価格）"},
					&cli.StringFlag{Name: "predictor", Usage: "予測サービスのURL（省略時は統計モデル）", EnvVars: []string{"PREDICTION_SERVICE_URL"}},
					&cli.StringFlag{Name: "holidays", Usage: "祝日CSV（省略時は同梱の米国連邦祝日）"},
				},
				Action: runForecast,
			},
			{
				Name:  "outlook",
				Usage: "統計モデルによる週次の販売見通し",
				Flags: []cli.Flag{
					ordersFlag, productFlag, sellerFlag,
					&cli.StringFlag{Name: "start", Usage: "開始日 (yyyy-MM-dd、省略時は今日)"},
					&cli.IntFlag{Name: "weeks", Usage: "週数", Value: 12},
				},
				Action: runOutlook,
			},
		},
	}
}

func runAggregate(c *cli.Context) error {
	orders, err := storage.LoadOrdersFile(c.String("orders"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, services.AggregateOrders(orders, c.Int("top")))
}

func runForecast(c *cli.Context) error {
	store, err := loadStore(c.Context, c.String("orders"), c.String("products"))
	if err != nil {
		return err
	}

	start, err := time.Parse(models.DateLayout, c.String("start"))
	if err != nil {
		return fmt.Errorf("開始日が不正です: %w", err)
	}
	var end *time.Time
	if c.IsSet("end") {
		e, err := time.Parse(models.DateLayout, c.String("end"))
		if err != nil {
			return fmt.Errorf("終了日が不正です: %w", err)
		}
		end = &e
	}
	var salePrice *float64
	if c.IsSet("price") {
		price := c.Float64("price")
		salePrice = &price
	}

	var forecaster services.Forecaster = services.NewStatisticalForecaster(store)
	if url := c.String("predictor"); url != "" {
		holidays, err := services.LoadHolidayCalendar(c.String("holidays"))
		if err != nil {
			return err
		}
		forecaster = services.NewRemoteForecaster(prediction.NewClient(url), store, services.NewFeatureBuilder(holidays), services.DefaultHistoryWindowDays)
	}

	result, err := services.NewSalesForecastService(store, forecaster, 1).
		Forecast(c.Context, c.String("product"), c.String("seller"), salePrice, start, end)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, result)
}

func runOutlook(c *cli.Context) error {
	orders, err := storage.LoadOrdersFile(c.String("orders"))
	if err != nil {
		return err
	}
	store := storage.NewMemoryStore()
	if _, err := store.ImportOrders(c.Context, orders); err != nil {
		return err
	}

	from := time.Now().UTC()
	if c.IsSet("start") {
		if from, err = time.Parse(models.DateLayout, c.String("start")); err != nil {
			return fmt.Errorf("開始日が不正です: %w", err)
		}
	}

	outlook, err := services.NewStatisticalForecaster(store).
		SalesOutlook(c.Context, c.String("product"), c.String("seller"), from, c.Int("weeks"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, outlook)
}

func loadStore(ctx context.Context, ordersPath, productsPath string) (*storage.MemoryStore, error) {
	products, err := storage.LoadProductsFile(productsPath)
	if err != nil {
		return nil, err
	}
	orders, err := storage.LoadOrdersFile(ordersPath)
	if err != nil {
		return nil, err
	}
	store := storage.NewMemoryStore()
	store.AddProducts(products...)
	if _, err := store.ImportOrders(ctx, orders); err != nil {
		return nil, err
	}
	return store, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
