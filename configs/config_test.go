package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configVars = []string{
	"CONFIG_FILE", "PORT", "ENVIRONMENT", "API_KEY", "ADMIN_USERNAME", "ADMIN_PASSWORD",
	"PREDICTION_SERVICE_URL", "PREDICTION_SINGLE_TIMEOUT", "PREDICTION_BATCH_TIMEOUT", "PREDICTION_HEALTH_TIMEOUT",
	"FORECAST_STRATEGY", "HISTORY_WINDOW_DAYS", "TOP_N_CONCURRENCY",
	"DATABASE_URL", "ORDERS_FILE", "PRODUCTS_FILE", "HOLIDAY_FILE",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range configVars {
		t.Setenv(v, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearConfigEnv(t)

	// テスト用の環境変数を設定
	testCases := map[string]string{
		"PORT":                      "9090",
		"ENVIRONMENT":               "test",
		"PREDICTION_SERVICE_URL":    "http://localhost:8000",
		"PREDICTION_BATCH_TIMEOUT":  "45s",
		"PREDICTION_SINGLE_TIMEOUT": "3",
		"FORECAST_STRATEGY":         "remote",
		"HISTORY_WINDOW_DAYS":       "90",
	}
	for key, value := range testCases {
		t.Setenv(key, value)
	}

	cfg := LoadConfig()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}
	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}
	if cfg.PredictionServiceURL != "http://localhost:8000" {
		t.Errorf("Expected PredictionServiceURL to be 'http://localhost:8000', got '%s'", cfg.PredictionServiceURL)
	}
	if cfg.PredictionBatchTimeout != 45*time.Second {
		t.Errorf("Expected PredictionBatchTimeout to be 45s, got %s", cfg.PredictionBatchTimeout)
	}
	if cfg.PredictionSingleTimeout != 3*time.Second {
		t.Errorf("Expected PredictionSingleTimeout to be 3s, got %s", cfg.PredictionSingleTimeout)
	}
	if cfg.HistoryWindowDays != 90 {
		t.Errorf("Expected HistoryWindowDays to be 90, got %d", cfg.HistoryWindowDays)
	}
	if cfg.ResolvedStrategy() != StrategyRemote {
		t.Errorf("Expected strategy 'remote', got '%s'", cfg.ResolvedStrategy())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg := LoadConfig()

	// デフォルト値の検証
	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}
	if cfg.PredictionSingleTimeout != 10*time.Second || cfg.PredictionBatchTimeout != 30*time.Second || cfg.PredictionHealthTimeout != 5*time.Second {
		t.Errorf("Unexpected default timeouts: %s / %s / %s", cfg.PredictionSingleTimeout, cfg.PredictionBatchTimeout, cfg.PredictionHealthTimeout)
	}
	if cfg.HistoryWindowDays != 60 || cfg.TopNConcurrency != 4 {
		t.Errorf("Unexpected defaults: window=%d concurrency=%d", cfg.HistoryWindowDays, cfg.TopNConcurrency)
	}
	if cfg.ResolvedStrategy() != StrategyStatistical {
		t.Errorf("Expected auto to resolve to 'statistical' without a prediction URL, got '%s'", cfg.ResolvedStrategy())
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FORECAST_STRATEGY", "magic")
	t.Setenv("TOP_N_CONCURRENCY", "-2")
	t.Setenv("PREDICTION_HEALTH_TIMEOUT", "soon")

	cfg := LoadConfig()

	if cfg.ForecastStrategy != StrategyAuto {
		t.Errorf("Expected invalid strategy to fall back to 'auto', got '%s'", cfg.ForecastStrategy)
	}
	if cfg.TopNConcurrency != 4 {
		t.Errorf("Expected invalid concurrency to fall back to 4, got %d", cfg.TopNConcurrency)
	}
	if cfg.PredictionHealthTimeout != 5*time.Second {
		t.Errorf("Expected invalid timeout to fall back to 5s, got %s", cfg.PredictionHealthTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"7070\"\n" +
		"prediction_service_url: http://predictor:8000\n" +
		"prediction_batch_timeout: 1m\n" +
		"orders_file: data/orders.csv\n" +
		"top_n_concurrency: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	// 環境変数が設定ファイルより優先される
	t.Setenv("PORT", "6060")

	cfg := LoadConfig()

	if cfg.Port != "6060" {
		t.Errorf("Expected env PORT to win, got '%s'", cfg.Port)
	}
	if cfg.PredictionServiceURL != "http://predictor:8000" {
		t.Errorf("Expected PredictionServiceURL from file, got '%s'", cfg.PredictionServiceURL)
	}
	if cfg.PredictionBatchTimeout != time.Minute {
		t.Errorf("Expected PredictionBatchTimeout 1m from file, got %s", cfg.PredictionBatchTimeout)
	}
	if cfg.OrdersFile != "data/orders.csv" {
		t.Errorf("Expected OrdersFile from file, got '%s'", cfg.OrdersFile)
	}
	if cfg.TopNConcurrency != 8 {
		t.Errorf("Expected TopNConcurrency 8 from file, got %d", cfg.TopNConcurrency)
	}
	if cfg.ResolvedStrategy() != StrategyRemote {
		t.Errorf("Expected auto to resolve to 'remote', got '%s'", cfg.ResolvedStrategy())
	}
}
