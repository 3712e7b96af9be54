// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes bot settings such as
// the Telegram token and delivery mode, the scrape gateway endpoint, the
// document store backend, HTTP server timeouts, logging, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreBackendFile   = "file"
	StoreBackendSQLite = "sqlite"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "html-downloader-bot")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TelegramConfig holds the chat transport settings.
type TelegramConfig struct {
	Token         string        // BOT_TOKEN
	APIURL        string        // TELEGRAM_API_URL
	WebhookURL    string        // WEBHOOK_URL; non-empty selects webhook mode
	WebhookSecret string        // WEBHOOK_SECRET; checked against X-Telegram-Bot-Api-Secret-Token
	PollTimeout   time.Duration // POLL_TIMEOUT, long-poll server timeout
	QueueSize     int           // QUEUE_SIZE, dispatcher capacity
}

// ScraperConfig holds the scrape gateway settings.
type ScraperConfig struct {
	BaseURL string        // SCRAPER_BASE_URL
	Timeout time.Duration // SCRAPER_TIMEOUT
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Backend  string // file|sqlite
	DataDir  string // directory for the file backend
	DBPath   string // SQLite path for the sqlite backend
	Timezone string // IANA name or "Local"; defines the calendar day for usage counters
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

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for the stats API

	// Bot
	Telegram TelegramConfig
	Scraper  ScraperConfig
	Store    StoreConfig

	// Rate limiting (webhook)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// WebhookMode reports whether updates are delivered by webhook (an external
// base URL is configured) rather than long polling.
func (c Config) WebhookMode() bool {
	return strings.TrimSpace(c.Telegram.WebhookURL) != ""
}

// Location resolves the configured timezone. Unknown names fall back to
// time.Local.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Store.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
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
//
// BOT_TOKEN is not validated here: read-only commands (e.g. "stats") run
// without it. Use RequireToken before talking to Telegram.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "5000"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Bot
		Telegram: TelegramConfig{
			Token:         strings.TrimSpace(getenv("BOT_TOKEN", "")),
			APIURL:        strings.TrimRight(getenv("TELEGRAM_API_URL", "https://api.telegram.org"), "/"),
			WebhookURL:    strings.TrimRight(strings.TrimSpace(getenv("WEBHOOK_URL", "")), "/"),
			WebhookSecret: getenv("WEBHOOK_SECRET", ""),
			PollTimeout:   getdur("POLL_TIMEOUT", 30*time.Second),
			QueueSize:     getint("QUEUE_SIZE", 100),
		},
		Scraper: ScraperConfig{
			BaseURL: getenv("SCRAPER_BASE_URL", "https://app.scrapingbee.com/api/v1/"),
			Timeout: getdur("SCRAPER_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(strings.TrimSpace(getenv("STORE_BACKEND", StoreBackendFile))),
			DataDir:  getenv("DATA_DIR", "data"),
			DBPath:   getenv("DB_PATH", "data/bot.db"),
			Timezone: getenv("TIMEZONE", "Local"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "html-downloader-bot"),
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
	switch cfg.Store.Backend {
	case StoreBackendFile:
		if strings.TrimSpace(cfg.Store.DataDir) == "" {
			return cfg, errors.New("DATA_DIR must not be empty")
		}
	case StoreBackendSQLite:
		if strings.TrimSpace(cfg.Store.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	default:
		return cfg, errors.New("STORE_BACKEND must be one of: file, sqlite")
	}
	if strings.TrimSpace(cfg.Scraper.BaseURL) == "" {
		return cfg, errors.New("SCRAPER_BASE_URL must not be empty")
	}
	if cfg.Scraper.Timeout <= 0 {
		return cfg, errors.New("SCRAPER_TIMEOUT must be > 0")
	}
	if cfg.Telegram.PollTimeout <= 0 {
		return cfg, errors.New("POLL_TIMEOUT must be > 0")
	}
	if cfg.Telegram.QueueSize < 1 {
		return cfg, errors.New("QUEUE_SIZE must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
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

// RequireToken returns an error when no bot token is configured.
func (c Config) RequireToken() error {
	if c.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is not set")
	}
	return nil
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

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
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
