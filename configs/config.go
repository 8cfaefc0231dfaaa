package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// 予測戦略
const (
	StrategyAuto        = "auto"
	StrategyRemote      = "remote"
	StrategyStatistical = "statistical"
)

// Config holds the application configuration
type Config struct {
	Port          string `yaml:"port"`
	Environment   string `yaml:"environment"`
	APIKey        string `yaml:"api_key"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`

	// 予測サービス
	PredictionServiceURL    string        `yaml:"prediction_service_url"`
	PredictionSingleTimeout time.Duration `yaml:"prediction_single_timeout"`
	PredictionBatchTimeout  time.Duration `yaml:"prediction_batch_timeout"`
	PredictionHealthTimeout time.Duration `yaml:"prediction_health_timeout"`

	// 予測
	ForecastStrategy  string `yaml:"forecast_strategy"`
	HistoryWindowDays int    `yaml:"history_window_days"`
	TopNConcurrency   int    `yaml:"top_n_concurrency"`

	// データソース
	DatabaseURL  string `yaml:"database_url"`
	OrdersFile   string `yaml:"orders_file"`
	ProductsFile string `yaml:"products_file"`
	HolidayFile  string `yaml:"holiday_file"`
}

// defaultConfig 環境変数・設定ファイルがない場合の値
func defaultConfig() *Config {
	return &Config{
		Port:                    "8080",
		Environment:             "development",
		AdminUsername:           "admin",
		PredictionSingleTimeout: 10 * time.Second,
		PredictionBatchTimeout:  30 * time.Second,
		PredictionHealthTimeout: 5 * time.Second,
		ForecastStrategy:        StrategyAuto,
		HistoryWindowDays:       60,
		TopNConcurrency:         4,
	}
}

// LoadConfig loads configuration from CONFIG_FILE (optional) and environment variables.
// Environment variables take precedence over the file.
func LoadConfig() *Config {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			log.Printf("⚠️ [設定] %v", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.APIKey = getEnv("API_KEY", cfg.APIKey)
	cfg.AdminUsername = getEnv("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)

	cfg.PredictionServiceURL = getEnv("PREDICTION_SERVICE_URL", cfg.PredictionServiceURL)
	cfg.PredictionSingleTimeout = getEnvDuration("PREDICTION_SINGLE_TIMEOUT", cfg.PredictionSingleTimeout)
	cfg.PredictionBatchTimeout = getEnvDuration("PREDICTION_BATCH_TIMEOUT", cfg.PredictionBatchTimeout)
	cfg.PredictionHealthTimeout = getEnvDuration("PREDICTION_HEALTH_TIMEOUT", cfg.PredictionHealthTimeout)

	cfg.ForecastStrategy = getEnv("FORECAST_STRATEGY", cfg.ForecastStrategy)
	cfg.HistoryWindowDays = getEnvInt("HISTORY_WINDOW_DAYS", cfg.HistoryWindowDays)
	cfg.TopNConcurrency = getEnvInt("TOP_N_CONCURRENCY", cfg.TopNConcurrency)

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.OrdersFile = getEnv("ORDERS_FILE", cfg.OrdersFile)
	cfg.ProductsFile = getEnv("PRODUCTS_FILE", cfg.ProductsFile)
	cfg.HolidayFile = getEnv("HOLIDAY_FILE", cfg.HolidayFile)

	switch cfg.ForecastStrategy {
	case StrategyAuto, StrategyRemote, StrategyStatistical:
	default:
		log.Printf("⚠️ [設定] 不明な予測戦略 %q のため auto を使用します", cfg.ForecastStrategy)
		cfg.ForecastStrategy = StrategyAuto
	}
	return cfg
}

// ResolvedStrategy auto を実際の戦略に解決します。
func (c *Config) ResolvedStrategy() string {
	if c.ForecastStrategy != StrategyAuto {
		return c.ForecastStrategy
	}
	if c.PredictionServiceURL != "" {
		return StrategyRemote
	}
	return StrategyStatistical
}

// IsProduction 本番環境かどうか
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("⚠️ [設定] %s=%q は正の整数ではありません。既定値 %d を使用します", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvDuration "30s" 形式、または秒数の整数を受け付けます。
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("⚠️ [設定] %s=%q は不正な時間です。既定値 %s を使用します", key, value, defaultValue)
	return defaultValue
}
