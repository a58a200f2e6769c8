// Package config loads facegate settings from built-in defaults, an optional
// YAML file and FACEGATE_* environment variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"env"` // "dev" | "prod"
	HTTPAddr string `mapstructure:"http_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`

	Store     StoreConfig     `mapstructure:"store"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Evidence  EvidenceConfig  `mapstructure:"evidence"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
}

type StoreConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite | postgres | memory
	SQLitePath   string `mapstructure:"sqlite_path"`
	PostgresURL  string `mapstructure:"postgres_url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type MatcherConfig struct {
	Dimension      int           `mapstructure:"dimension"`
	Tolerance      float64       `mapstructure:"tolerance"`
	MinAccessLevel int           `mapstructure:"min_access_level"`
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`
}

type EmbeddingConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EvidenceConfig struct {
	Dir                string `mapstructure:"dir"` // empty disables evidence storage
	RetentionDays      int    `mapstructure:"retention_days"`
	PruneIntervalHours int    `mapstructure:"prune_interval_hours"`
}

type AuthConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/facegate.db")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.max_open_conns", 10)

	v.SetDefault("matcher.dimension", 128)
	v.SetDefault("matcher.tolerance", 0.6)
	v.SetDefault("matcher.min_access_level", 3)
	v.SetDefault("matcher.scan_timeout", "5s")

	v.SetDefault("embedding.url", "http://localhost:8000")
	v.SetDefault("embedding.timeout", "10s")

	v.SetDefault("evidence.dir", "./data/evidence")
	v.SetDefault("evidence.retention_days", 30)
	v.SetDefault("evidence.prune_interval_hours", 6)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "facegate")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}

// Load reads configuration. path may be empty; a missing file is not an
// error. The result is not validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FACEGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case "postgres":
		if strings.TrimSpace(c.Store.PostgresURL) == "" {
			errs = append(errs, errors.New("store.postgres_url is required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be sqlite, postgres or memory", c.Store.Driver))
	}

	if c.Matcher.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("matcher.dimension must be > 0, got %d", c.Matcher.Dimension))
	}
	if t := c.Matcher.Tolerance; math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		errs = append(errs, fmt.Errorf("matcher.tolerance must be finite and >= 0, got %v", t))
	}
	if c.Matcher.MinAccessLevel < 0 {
		errs = append(errs, errors.New("matcher.min_access_level must be >= 0"))
	}
	if c.Matcher.ScanTimeout < 0 {
		errs = append(errs, errors.New("matcher.scan_timeout must be >= 0"))
	}

	if c.Evidence.RetentionDays < 0 {
		errs = append(errs, errors.New("evidence.retention_days must be >= 0"))
	}

	if c.Auth.Enabled && strings.TrimSpace(c.Auth.SigningKey) == "" {
		errs = append(errs, errors.New("auth.signing_key is required when auth is enabled"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	return errors.Join(errs...)
}
