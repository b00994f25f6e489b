package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App         `json:"app"         toml:"app"`
		HTTP        `json:"http"        toml:"http"`
		DB          `json:"db"          toml:"db"`
		Cache       `json:"cache"       toml:"cache"`
		NowPayments `json:"nowpayments" toml:"nowpayments"`
		Workers     `json:"workers"     toml:"workers"`
		Log         `json:"logger"      toml:"logger"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port           string   `json:"port"            toml:"port"            env:"HTTP_PORT" env-default:"8080"`
		AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-default:"*"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL" env-required:"true"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
		MigrationsPath    string `json:"migrations_path"     toml:"migrations_path"     env:"MIGRATIONS_PATH" env-default:"./migrations"`
	}

	// Cache is optional; an empty RedisAddr disables estimate caching.
	Cache struct {
		RedisAddr   string        `json:"redis_addr"   toml:"redis_addr"   env:"REDIS_ADDR"`
		EstimateTTL time.Duration `json:"estimate_ttl" toml:"estimate_ttl" env:"ESTIMATE_CACHE_TTL" env-default:"60s"`
	}

	NowPayments struct {
		APIKey      string        `json:"api_key"      toml:"api_key"      env:"NOWPAYMENTS_APIKEY"     env-required:"true"`
		SecretKey   string        `json:"secret_key"   toml:"secret_key"   env:"NOWPAYMENTS_SECRET_KEY" env-required:"true"`
		APIURL      string        `json:"api_url"      toml:"api_url"      env:"NOWPAYMENTS_API_URL"    env-default:"https://api.nowpayments.io/v1"`
		Timeout     time.Duration `json:"timeout"      toml:"timeout"      env:"NOWPAYMENTS_TIMEOUT"    env-default:"10s"`
		Retries     int           `json:"retries"      toml:"retries"      env:"NOWPAYMENTS_RETRIES"    env-default:"3"`
		RetryDelay  time.Duration `json:"retry_delay"  toml:"retry_delay"  env:"NOWPAYMENTS_RETRY_DELAY" env-default:"2s"`
		CallbackURL string        `json:"callback_url" toml:"callback_url" env:"NOWPAYMENTS_CALLBACK_URL" env-default:"https://api.lky8.win/lky8/webhook/check-payment-status/"`
		SuccessURL  string        `json:"success_url"  toml:"success_url"  env:"NOWPAYMENTS_SUCCESS_URL" env-default:"https://lky8.win/payment/success/"`
		CancelURL   string        `json:"cancel_url"   toml:"cancel_url"   env:"NOWPAYMENTS_CANCEL_URL"  env-default:"https://lky8.win/payment/failure/"`
	}

	Workers struct {
		// PriceRefreshInterval of zero disables the package price refresher.
		PriceRefreshInterval time.Duration `json:"price_refresh_interval" toml:"price_refresh_interval" env:"PRICE_REFRESH_INTERVAL" env-default:"0s"`
	}

	Log struct {
		// Level is one of debug, info, warn, error. App.Debug forces debug.
		Level string `json:"level" toml:"level" env:"LOG_LEVEL" env-default:"info"`
	}
)

// SlogLevel parses Level, falling back to info.
func (l Log) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			// No file at all is fine, everything can come from the environment.
			err = cleanenv.ReadEnv(cfg)
			if err != nil {
				return nil, fmt.Errorf("env read error: %w", err)
			}
			return cfg, nil
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
