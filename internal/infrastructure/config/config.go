package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Scraper   ScraperConfig
	Database  DatabaseConfig
	Export    ExportConfig
	Warehouse WarehouseConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig limits inbound API traffic per client IP.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	// Shared across clients for routes that sweep upstream.
	SweepsPerSecond int `envconfig:"RATE_LIMIT_SWEEP_RPS" default:"1"`
	SweepBurst      int `envconfig:"RATE_LIMIT_SWEEP_BURST" default:"5"`
}

// ScraperConfig controls how the upstream report site is fetched.
type ScraperConfig struct {
	BaseURL           string        `envconfig:"VITI_BASE_URL" default:"http://vitibrasil.cnpuv.embrapa.br/index.php"`
	UserAgent         string        `envconfig:"SCRAPER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"`
	Timeout           time.Duration `envconfig:"SCRAPER_TIMEOUT" default:"30s"`
	InsecureTLS       bool          `envconfig:"SCRAPER_INSECURE_TLS" default:"true"`
	Workers           int           `envconfig:"SCRAPER_WORKERS" default:"4"`
	RequestsPerSecond float64       `envconfig:"SCRAPER_RPS" default:"2"`
	Burst             int           `envconfig:"SCRAPER_BURST" default:"2"`
	MaxRetries        int           `envconfig:"SCRAPER_MAX_RETRIES" default:"2"`
	RetryMinWait      time.Duration `envconfig:"SCRAPER_RETRY_MIN_WAIT" default:"1s"`
	RetryMaxWait      time.Duration `envconfig:"SCRAPER_RETRY_MAX_WAIT" default:"10s"`
	GroupPolicy       string        `envconfig:"SCRAPER_GROUP_POLICY" default:"lookahead"`
}

// DatabaseConfig selects the optional persistence backend.
type DatabaseConfig struct {
	Enabled bool   `envconfig:"DB_ENABLED" default:"true"`
	Driver  string `envconfig:"DB_DRIVER" default:"sqlite"`
	URL     string `envconfig:"DATABASE_URL" default:"file:vitibrasil.db?_pragma=busy_timeout(5000)"`
}

// ExportConfig controls bulk export files.
type ExportConfig struct {
	Dir         string `envconfig:"EXPORT_DIR" default:"export"`
	Format      string `envconfig:"EXPORT_FORMAT" default:"ndjson"`
	Compression string `envconfig:"EXPORT_COMPRESSION" default:"gzip"`
}

// WarehouseConfig addresses the optional ClickHouse load of bulk sweeps.
// An empty address disables it.
type WarehouseConfig struct {
	Addr     string `envconfig:"CLICKHOUSE_ADDR" default:""`
	Database string `envconfig:"CLICKHOUSE_DATABASE" default:"vitibrasil"`
	Username string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	Table    string `envconfig:"CLICKHOUSE_TABLE" default:"viti_records"`
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the rest of the service cannot work with.
func (c *Config) Validate() error {
	switch c.Scraper.GroupPolicy {
	case "lookahead", "always":
	default:
		return fmt.Errorf("invalid SCRAPER_GROUP_POLICY %q (lookahead|always)", c.Scraper.GroupPolicy)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q (sqlite|postgres)", c.Database.Driver)
	}
	switch c.Export.Format {
	case "ndjson", "csv":
	default:
		return fmt.Errorf("invalid EXPORT_FORMAT %q (ndjson|csv)", c.Export.Format)
	}
	switch c.Export.Compression {
	case "none", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid EXPORT_COMPRESSION %q (none|gzip|zstd)", c.Export.Compression)
	}
	if c.Scraper.Workers < 1 {
		return fmt.Errorf("SCRAPER_WORKERS must be positive, got %d", c.Scraper.Workers)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
			SweepsPerSecond:   1,
			SweepBurst:        5,
		},
		Scraper: ScraperConfig{
			BaseURL:           "http://vitibrasil.cnpuv.embrapa.br/index.php",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			Timeout:           30 * time.Second,
			InsecureTLS:       true,
			Workers:           4,
			RequestsPerSecond: 2,
			Burst:             2,
			MaxRetries:        2,
			RetryMinWait:      time.Second,
			RetryMaxWait:      10 * time.Second,
			GroupPolicy:       "lookahead",
		},
		Database: DatabaseConfig{
			Enabled: true,
			Driver:  "sqlite",
			URL:     "file:vitibrasil.db?_pragma=busy_timeout(5000)",
		},
		Export: ExportConfig{
			Dir:         "export",
			Format:      "ndjson",
			Compression: "gzip",
		},
		Warehouse: WarehouseConfig{
			Database: "vitibrasil",
			Username: "default",
			Table:    "viti_records",
		},
	}
}
