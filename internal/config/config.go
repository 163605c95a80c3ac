// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, the state store backend, the Telegram
// delivery channel, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreSQLite  = "sqlite"
	StoreUpstash = "upstash"
	StoreMemory  = "memory"
)

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "annualbot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// StoreConfig selects and configures the key/value backend for the state document.
type StoreConfig struct {
	Backend      string        // STORE_BACKEND: sqlite|upstash|memory
	DBPath       string        // DB_PATH (sqlite)
	UpstashURL   string        // UPSTASH_REDIS_REST_URL
	UpstashToken string        // UPSTASH_REDIS_REST_TOKEN
	Timeout      time.Duration // STORE_TIMEOUT, per request to a remote backend
	StateKey     string        // STATE_KEY
}

// TelegramConfig configures the outbound delivery channel.
type TelegramConfig struct {
	Token         string        // TELEGRAM_TOKEN
	APIURL        string        // TELEGRAM_API_URL
	Timeout       time.Duration // TELEGRAM_TIMEOUT
	RPS           float64       // TELEGRAM_RPS
	Burst         int           // TELEGRAM_BURST
	WebhookSecret string        // TELEGRAM_WEBHOOK_SECRET, optional
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	WebhookTimeout      time.Duration // budget for handling one update
	DispatchConcurrency int           // parallel reminder deliveries

	Store    StoreConfig
	Telegram TelegramConfig

	// Rate limiting
	RateRPS   float64 // daily-check tokens per second (> 0)
	RateBurst int     // daily-check bucket size (>= 1)

	// Web protection
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		WebhookTimeout:      getdur("WEBHOOK_TIMEOUT", 8*time.Second),
		DispatchConcurrency: getint("DISPATCH_CONCURRENCY", 8),

		Store: StoreConfig{
			Backend:      strings.ToLower(strings.TrimSpace(getenv("STORE_BACKEND", StoreSQLite))),
			DBPath:       getenv("DB_PATH", "annuals.db"),
			UpstashURL:   getenv("UPSTASH_REDIS_REST_URL", ""),
			UpstashToken: getenv("UPSTASH_REDIS_REST_TOKEN", ""),
			Timeout:      getdur("STORE_TIMEOUT", 10*time.Second),
			StateKey:     getenv("STATE_KEY", "annuals_state_v1"),
		},
		Telegram: TelegramConfig{
			Token:   getenv("TELEGRAM_TOKEN", ""),
			APIURL:  strings.TrimRight(getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
			Timeout: getdur("TELEGRAM_TIMEOUT", 10*time.Second),
			RPS:     getfloat("TELEGRAM_RPS", 25),
			Burst:   getint("TELEGRAM_BURST", 5),

			WebhookSecret: strings.TrimSpace(getenv("TELEGRAM_WEBHOOK_SECRET", "")),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 0.1),
		RateBurst: getint("RATE_BURST", 3),

		// Web protection
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "annualbot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return cfg, errors.New("TELEGRAM_TOKEN must not be empty")
	}
	if cfg.Telegram.Timeout <= 0 {
		return cfg, errors.New("TELEGRAM_TIMEOUT must be > 0")
	}
	if cfg.Telegram.RPS <= 0 {
		return cfg, errors.New("TELEGRAM_RPS must be > 0")
	}
	if cfg.Telegram.Burst < 1 {
		return cfg, errors.New("TELEGRAM_BURST must be >= 1")
	}
	switch cfg.Store.Backend {
	case StoreSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case StoreUpstash:
		if cfg.Store.UpstashURL == "" || cfg.Store.UpstashToken == "" {
			return cfg, errors.New("UPSTASH_REDIS_REST_URL and UPSTASH_REDIS_REST_TOKEN are required for STORE_BACKEND=upstash")
		}
	case StoreMemory:
	default:
		return cfg, errors.New("STORE_BACKEND must be one of: sqlite, upstash, memory")
	}
	if strings.TrimSpace(cfg.Store.StateKey) == "" {
		return cfg, errors.New("STATE_KEY must not be empty")
	}
	if cfg.Store.Timeout <= 0 {
		return cfg, errors.New("STORE_TIMEOUT must be > 0")
	}
	if cfg.WebhookTimeout <= 0 {
		return cfg, errors.New("WEBHOOK_TIMEOUT must be > 0")
	}
	if cfg.DispatchConcurrency < 1 {
		return cfg, errors.New("DISPATCH_CONCURRENCY must be >= 1")
	}
	if cfg.RateRPS <= 0 {
		return cfg, errors.New("RATE_RPS must be > 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
