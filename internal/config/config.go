// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Storage StorageConfig `mapstructure:"storage"`
	Index   IndexConfig   `mapstructure:"index"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs fetch behavior during the crawl phases.
type ScraperConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ShowProgress   bool   `mapstructure:"show_progress"`
	// RequestsPerSecond caps the fetch rate; zero disables throttling.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// StorageConfig selects where the raw-page archives live.
type StorageConfig struct {
	// Backend is "local" or "gcs".
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// IndexConfig configures the search index connection and write retries.
type IndexConfig struct {
	Addresses      []string `mapstructure:"addresses"`
	Name           string   `mapstructure:"name"`
	RetryInitialMs int      `mapstructure:"retry_initial_ms"`
	RetryMaxMs     int      `mapstructure:"retry_max_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REVIEWHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36")
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("scraper.show_progress", true)
	v.SetDefault("scraper.requests_per_second", 2.0)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("index.addresses", []string{"http://localhost:9200"})
	v.SetDefault("index.name", "tabelog_comments")
	v.SetDefault("index.retry_initial_ms", 250)
	v.SetDefault("index.retry_max_ms", 30000)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.UserAgent == "" {
		return fmt.Errorf("scraper.user_agent must be set")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.RequestsPerSecond < 0 {
		return fmt.Errorf("scraper.requests_per_second must not be negative")
	}
	switch c.Storage.Backend {
	case "local":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend must be local or gcs")
	}
	if len(c.Index.Addresses) == 0 {
		return fmt.Errorf("index.addresses must not be empty")
	}
	if c.Index.Name == "" {
		return fmt.Errorf("index.name must be set")
	}
	if c.Index.RetryInitialMs <= 0 || c.Index.RetryMaxMs < c.Index.RetryInitialMs {
		return fmt.Errorf("index retry delays must be positive and ordered")
	}
	return nil
}

// FetchTimeout converts the scraper timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// RetryDelays converts the index retry config into durations.
func (c Config) RetryDelays() (initial, max time.Duration) {
	return time.Duration(c.Index.RetryInitialMs) * time.Millisecond,
		time.Duration(c.Index.RetryMaxMs) * time.Millisecond
}
