package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Backend BackendConfig `yaml:"backend"`
	Batch   BatchConfig   `yaml:"batch"`
	History HistoryConfig `yaml:"history"`
	Storage StorageConfig `yaml:"storage"`
	Relay   RelayConfig   `yaml:"relay"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address" validate:"required"`
	ReadTimeout    time.Duration   `yaml:"readTimeout" validate:"gte=0"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout" validate:"gte=0"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for POST requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// BackendConfig describes how to reach the remote classifier.
type BackendConfig struct {
	Mode              string        `yaml:"mode" validate:"oneof=dev relay direct"`
	BaseURL           string        `yaml:"baseUrl" validate:"omitempty,url"`
	DevProxyURL       string        `yaml:"devProxyUrl" validate:"omitempty,url"`
	RelayURL          string        `yaml:"relayUrl" validate:"omitempty,url"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	WarmUpTimeout     time.Duration `yaml:"warmUpTimeout" validate:"gt=0"`
	KeepAliveEnabled  bool          `yaml:"keepAliveEnabled"`
	KeepAliveInterval time.Duration `yaml:"keepAliveInterval" validate:"gt=0"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the backend circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"maxRequests"`
	Interval            time.Duration `yaml:"interval" validate:"gte=0"`
	OpenTimeout         time.Duration `yaml:"openTimeout" validate:"gte=0"`
	ConsecutiveFailures uint32        `yaml:"consecutiveFailures"`
}

// BatchConfig controls CSV batch processing.
type BatchConfig struct {
	Strategy     string        `yaml:"strategy" validate:"oneof=per_row upload"`
	ChunkSize    int           `yaml:"chunkSize" validate:"gte=1,lte=100"`
	ChunkDelay   time.Duration `yaml:"chunkDelay" validate:"gte=0"`
	MaxFileBytes int64         `yaml:"maxFileBytes" validate:"gt=0"`
	JobTTL       time.Duration `yaml:"jobTtl" validate:"gte=0"`
	QueueKey     string        `yaml:"queueKey"`
}

// HistoryConfig selects where prediction history lives.
type HistoryConfig struct {
	Limit    int            `yaml:"limit" validate:"gte=1"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig contains connection information for Valkey/Redis.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns" validate:"gte=0"`
	MinConns int32  `yaml:"minConns" validate:"gte=0"`
}

// StorageConfig configures the S3-compatible archive.
type StorageConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	AccessKey      string `yaml:"accessKey"`
	SecretKey      string `yaml:"secretKey"`
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	ArchiveUploads bool   `yaml:"archiveUploads"`
	ArchiveExports bool   `yaml:"archiveExports"`
}

// RelayConfig enables the relay endpoint that forwards to the backend.
type RelayConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Upstream string        `yaml:"upstream" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Load reads .env, a YAML file and environment variables, in that order.
func Load() (*Config, error) {
	// A missing .env file is fine; existing variables are never overridden.
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.HTTP.Address, "HTTP_ADDRESS")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")
	setBool(&cfg.HTTP.Retry.Enabled, "HTTP_RETRY_ENABLED")
	setInt(&cfg.HTTP.Retry.MaxAttempts, "HTTP_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.HTTP.Retry.BaseBackoff, "HTTP_RETRY_BASE_BACKOFF")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.File, "LOG_FILE")

	setString(&cfg.Backend.Mode, "BACKEND_MODE")
	setString(&cfg.Backend.BaseURL, "BACKEND_BASE_URL")
	setString(&cfg.Backend.DevProxyURL, "BACKEND_DEV_PROXY_URL")
	setString(&cfg.Backend.RelayURL, "BACKEND_RELAY_URL")
	setDuration(&cfg.Backend.Timeout, "BACKEND_TIMEOUT")
	setDuration(&cfg.Backend.WarmUpTimeout, "BACKEND_WARMUP_TIMEOUT")
	setBool(&cfg.Backend.KeepAliveEnabled, "BACKEND_KEEPALIVE_ENABLED")
	setDuration(&cfg.Backend.KeepAliveInterval, "BACKEND_KEEPALIVE_INTERVAL")

	setString(&cfg.Batch.Strategy, "BATCH_STRATEGY")
	setInt(&cfg.Batch.ChunkSize, "BATCH_CHUNK_SIZE")
	setDuration(&cfg.Batch.ChunkDelay, "BATCH_CHUNK_DELAY")
	if v := os.Getenv("BATCH_MAX_FILE_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Batch.MaxFileBytes = parsed
		}
	}

	setInt(&cfg.History.Limit, "HISTORY_LIMIT")
	setBool(&cfg.History.Redis.Enabled, "REDIS_ENABLED")
	setString(&cfg.History.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.History.Postgres.DSN, "POSTGRES_DSN")
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}

	setBool(&cfg.Storage.Enabled, "S3_ENABLED")
	setString(&cfg.Storage.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.Region, "S3_REGION")

	setBool(&cfg.Relay.Enabled, "RELAY_ENABLED")
	setString(&cfg.Relay.Upstream, "RELAY_UPSTREAM")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             40,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 250 * time.Millisecond,
				Exclude: []string{
					"/api/v1/batches",
					"/api/v1/batches/jobs",
					"/api/proxy",
				},
			},
		},
		Log: LogConfig{Level: "info"},
		Backend: BackendConfig{
			Mode:              "direct",
			BaseURL:           "https://exoplanet-classifier-backend-api.onrender.com",
			DevProxyURL:       "http://localhost:5173/api",
			RelayURL:          "http://localhost:8080/api/proxy",
			Timeout:           60 * time.Second,
			WarmUpTimeout:     30 * time.Second,
			KeepAliveEnabled:  true,
			KeepAliveInterval: 10 * time.Minute,
			Breaker: BreakerConfig{
				MaxRequests:         1,
				Interval:            60 * time.Second,
				OpenTimeout:         30 * time.Second,
				ConsecutiveFailures: 5,
			},
		},
		Batch: BatchConfig{
			Strategy:     "per_row",
			ChunkSize:    10,
			ChunkDelay:   500 * time.Millisecond,
			MaxFileBytes: 5 << 20,
			JobTTL:       24 * time.Hour,
			QueueKey:     "exoplanet:jobs",
		},
		History: HistoryConfig{
			Limit: 5,
			Redis: RedisConfig{Prefix: "exoplanet"},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Storage: StorageConfig{
			Bucket:         "exoplanet-classifier",
			Region:         "auto",
			ArchiveUploads: true,
			ArchiveExports: true,
		},
		Relay: RelayConfig{
			Enabled:  true,
			Upstream: "https://exoplanet-classifier-backend-api.onrender.com",
			Timeout:  60 * time.Second,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Backend.Mode {
	case "direct":
		if strings.TrimSpace(c.Backend.BaseURL) == "" {
			return errors.New("backend.baseUrl cannot be empty in direct mode")
		}
	case "dev":
		if strings.TrimSpace(c.Backend.DevProxyURL) == "" {
			return errors.New("backend.devProxyUrl cannot be empty in dev mode")
		}
	case "relay":
		if strings.TrimSpace(c.Backend.RelayURL) == "" {
			return errors.New("backend.relayUrl cannot be empty in relay mode")
		}
	}
	if c.Relay.Enabled && strings.TrimSpace(c.Relay.Upstream) == "" {
		return errors.New("relay.upstream cannot be empty when the relay is enabled")
	}
	if c.History.Redis.Enabled && strings.TrimSpace(c.History.Redis.Addr) == "" {
		return errors.New("history.redis.addr cannot be empty when redis is enabled")
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return errors.New("storage.endpoint and storage.bucket are required when storage is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
