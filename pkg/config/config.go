package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "LEVELUP"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv     = "LEVELUP_APP_ENV"
	EnvLogLevel   = "LEVELUP_LOG_LEVEL"
	EnvAPIBaseURL = "LEVELUP_API_BASE_URL"
	EnvRedisURL   = "LEVELUP_REDIS_URL"
	EnvClientID   = "LEVELUP_CLIENT_ID"
)

type Config struct {
	App       AppConfig
	API       APIConfig
	Redis     RedisConfig
	Broadcast BroadcastConfig
	Store     StoreConfig
	Pricing   PricingConfig
	Password  PasswordConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEVELUP_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"LEVELUP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEVELUP_LOG_WARN_STACK" default:"false"`
	// ClientID identifies this storefront instance (the "tab"); one is
	// generated at startup when empty.
	ClientID string `envconfig:"LEVELUP_CLIENT_ID"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL        string        `envconfig:"LEVELUP_API_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"LEVELUP_API_REQUEST_TIMEOUT" default:"10s"`
	RetryAttempts  uint64        `envconfig:"LEVELUP_API_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"LEVELUP_API_RETRY_BACKOFF" default:"200ms"`
	RetryMaxDelay  time.Duration `envconfig:"LEVELUP_API_RETRY_MAX_DELAY" default:"2s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(a.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LEVELUP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEVELUP_REDIS_ADDR"`
	Password     string        `envconfig:"LEVELUP_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEVELUP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEVELUP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEVELUP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEVELUP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEVELUP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEVELUP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type BroadcastConfig struct {
	Enabled   bool          `envconfig:"LEVELUP_BROADCAST_ENABLED" default:"true"`
	Channel   string        `envconfig:"LEVELUP_BROADCAST_CHANNEL" default:"levelup:tabs"`
	DedupeTTL time.Duration `envconfig:"LEVELUP_BROADCAST_DEDUPE_TTL" default:"1h"`
}

type StoreConfig struct {
	// SessionTTL bounds the lifetime of the session identity key, the
	// moral equivalent of sessionStorage ending with the tab.
	SessionTTL time.Duration `envconfig:"LEVELUP_STORE_SESSION_TTL" default:"12h"`
}

type PricingConfig struct {
	DiscountPercent int64 `envconfig:"LEVELUP_PRICING_DISCOUNT_PERCENT" default:"20"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LEVELUP_PASSWORD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LEVELUP_PASSWORD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LEVELUP_PASSWORD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LEVELUP_PASSWORD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LEVELUP_PASSWORD_ARGON_KEY_LEN" default:"32"`
}
