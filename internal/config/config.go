package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type ChainConfig struct {
	Wallet   string        `yaml:"wallet"`    // receiving TRC20 address
	APIURL   string        `yaml:"api_url"`   // transaction-history provider base URL
	Timeout  time.Duration `yaml:"timeout"`   // per-request bound
	Lookback time.Duration `yaml:"lookback"`  // default window when since is unset
	PageSize int           `yaml:"page_size"` // provider count parameter
}

type PaymentConfig struct {
	Window        time.Duration `yaml:"window"`         // how long a pending order waits for a transfer
	CheckInterval time.Duration `yaml:"check_interval"` // monitor tick
	RetryDelay    time.Duration `yaml:"retry_delay"`    // backoff after a failed tick
}

type SweeperConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RateLimitConfig struct {
	StatusPollLimit  int           `yaml:"status_poll_limit"`
	StatusPollWindow time.Duration `yaml:"status_poll_window"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Chain     ChainConfig     `yaml:"chain"`
	Payment   PaymentConfig   `yaml:"payment"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, applies defaults and validates the
// handful of settings without sane fallbacks.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Auth.SessionTTL <= 0 {
		cfg.Auth.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Chain.APIURL == "" {
		cfg.Chain.APIURL = "https://apilist.tronscanapi.com/api"
	}
	if cfg.Chain.Timeout <= 0 {
		cfg.Chain.Timeout = 10 * time.Second
	}
	if cfg.Chain.Lookback <= 0 {
		cfg.Chain.Lookback = time.Hour
	}
	if cfg.Chain.PageSize <= 0 {
		cfg.Chain.PageSize = 50
	}
	if cfg.Payment.Window <= 0 {
		cfg.Payment.Window = 30 * time.Minute
	}
	if cfg.Payment.CheckInterval <= 0 {
		cfg.Payment.CheckInterval = 30 * time.Second
	}
	if cfg.Payment.RetryDelay <= 0 {
		cfg.Payment.RetryDelay = 30 * time.Second
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Hour
	}
	if cfg.RateLimit.StatusPollLimit <= 0 {
		cfg.RateLimit.StatusPollLimit = 10
	}
	if cfg.RateLimit.StatusPollWindow <= 0 {
		cfg.RateLimit.StatusPollWindow = time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Chain.Wallet == "" {
		return nil, errors.New("chain.wallet is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
