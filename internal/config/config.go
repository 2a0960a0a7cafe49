// Package config содержит логику чтения конфигурации бэк-офиса партнёрской программы.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	ContentDir  string `env:"CONTENT_DIR"`

	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE"`
	SSOSecret     string `env:"SSO_SECRET"`
	JWTSecret     string `env:"JWT_SECRET"`
	CronSecret    string `env:"CRON_SECRET"`

	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	ShopifyShopDomain    string `env:"SHOPIFY_SHOP_DOMAIN"`
	ShopifyAccessToken   string `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPIVersion    string `env:"SHOPIFY_API_VERSION" envDefault:"2024-10"`
	ShopifyWebhookSecret string `env:"SHOPIFY_WEBHOOK_SECRET"`

	SyncInterval time.Duration `env:"SYNC_INTERVAL"`

	GoogleCredentials   string `env:"GOOGLE_CREDENTIALS"`
	BigQueryProject     string `env:"BIGQUERY_PROJECT"`
	BigQueryDataset     string `env:"BIGQUERY_DATASET"`
	SheetsSpreadsheetID string `env:"SHEETS_SPREADSHEET_ID"`
	SheetsRange         string `env:"SHEETS_RANGE" envDefault:"Afiliados!A1:Z"`
}

// ShopifyEnabled сообщает, заданы ли параметры Admin API магазина.
func (c *Config) ShopifyEnabled() bool {
	return c.ShopifyShopDomain != "" && c.ShopifyAccessToken != ""
}

// ReportingEnabled сообщает, настроены ли отчёты BigQuery.
func (c *Config) ReportingEnabled() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}

// SheetsEnabled сообщает, настроен ли доступ к таблице устаревших профилей.
func (c *Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != ""
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envContentDir := cfg.ContentDir
	envSyncInterval := cfg.SyncInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.ContentDir, "c", "data", "directory with banners.json and news.json")
	flag.DurationVar(&cfg.SyncInterval, "s", 0, "storefront sync interval, 0 disables background sync")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envContentDir != "" {
		cfg.ContentDir = envContentDir
	}
	if envSyncInterval != 0 {
		cfg.SyncInterval = envSyncInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
