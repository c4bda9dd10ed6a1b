// Package config handles application configuration from environment variables
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	BaseURL        string   `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	RedisAddr      string   `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SessionSecret  string   `env:"SESSION_SECRET"`
	SecureCookies  bool     `env:"SECURE_COOKIES" envDefault:"false"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	MigrateOnStart bool     `env:"MIGRATE_ON_START" envDefault:"false"`
	// TrustProxy takes the client address from X-Forwarded-For and X-Real-IP.
	TrustProxy     bool     `env:"TRUST_PROXY" envDefault:"false"`

	OMDb      OMDbConfig      `envPrefix:"OMDB_"`
	YouTube   YouTubeConfig   `envPrefix:"YOUTUBE_"`
	Google    GoogleConfig    `envPrefix:"GOOGLE_"`
	Search    SearchConfig    `envPrefix:"SEARCH_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	SMTP      SMTPConfig      `envPrefix:"SMTP_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

type OMDbConfig struct {
	APIKey  string        `env:"API_KEY"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://www.omdbapi.com/"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// YouTubeConfig is optional; without a key trailers are disabled.
type YouTubeConfig struct {
	APIKey string `env:"API_KEY"`
}

type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

type SearchConfig struct {
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	Debounce    time.Duration `env:"DEBOUNCE" envDefault:"500ms"`
	PageSize    int           `env:"PAGE_SIZE" envDefault:"10"`
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"30m"`
}

// CacheConfig selects the upstream response cache backend.
type CacheConfig struct {
	Backend    string        `env:"BACKEND" envDefault:"file"`
	Dir        string        `env:"DIR"`
	DetailTTL  time.Duration `env:"DETAIL_TTL" envDefault:"1h"`
	TrailerTTL time.Duration `env:"TRAILER_TTL" envDefault:"24h"`
	LatestTTL  time.Duration `env:"LATEST_TTL" envDefault:"15m"`
}

// SMTPConfig configures the worker's mail sender. Addr "stdout" logs mail
// instead of sending it.
type SMTPConfig struct {
	Addr       string `env:"ADDR" envDefault:"localhost:1025"`
	From       string `env:"FROM" envDefault:"no-reply@moviefinder.local"`
	AdminInbox string `env:"ADMIN_INBOX" envDefault:"admin@moviefinder.local"`
}

type RateLimitConfig struct {
	PerSecond float64 `env:"PER_SECOND" envDefault:"5"`
	Burst     int     `env:"BURST" envDefault:"10"`
}

// Load reads a .env file when present and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	return cfg, nil
}

// HasGoogle returns true if Google sign-in is configured
func (c *Config) HasGoogle() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// HasYouTube returns true if trailer lookups are configured
func (c *Config) HasYouTube() bool {
	return c.YouTube.APIKey != ""
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 16 characters"))
	}
	if c.OMDb.APIKey == "" {
		errs = append(errs, errors.New("OMDB_API_KEY is required"))
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together"))
	}
	switch c.Cache.Backend {
	case "redis", "file", "none":
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be redis, file or none, got %q", c.Cache.Backend))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("SEARCH_PAGE_SIZE must be positive, got %d", c.Search.PageSize))
	}
	return errors.Join(errs...)
}
