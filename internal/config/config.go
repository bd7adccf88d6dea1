// Package config loads service settings from the environment. A .env file in
// the working directory is read first; real environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second

	DefaultCatalogPort = 5000
	DefaultIDScheme    = IDSchemeTime

	DefaultStorefrontPort = 3000
	DefaultCatalogURL     = "http://localhost:5000"
	DefaultImageUploadURL = "https://api.imgbb.com/1/upload"
	DefaultDemoEmail      = "test@example.com"
	DefaultDemoPassword   = "123456"
	DefaultSessionSecret  = "dev-session-secret"
	DefaultSessionTTL     = 7 * 24 * time.Hour
	DefaultListTTL        = 30 * time.Minute
	DefaultItemTTL        = time.Hour
)

const (
	IDSchemeTime    = "time"
	IDSchemeCounter = "counter"
)

const (
	EnvLogLevel        = "LOG_LEVEL"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "METRICS_ENABLED"
	EnvMetricsToken    = "METRICS_TOKEN" //nolint:gosec // env var name

	EnvCatalogPort        = "CATALOG_PORT"
	EnvCatalogDatabaseURL = "CATALOG_DATABASE_URL"
	EnvCatalogIDScheme    = "CATALOG_ID_SCHEME"
	EnvCORSOrigins        = "CORS_ORIGINS"

	EnvStorefrontPort = "STOREFRONT_PORT"
	EnvCatalogURL     = "CATALOG_URL"
	EnvImageUploadURL = "IMGBB_UPLOAD_URL"
	EnvImageAPIKey    = "IMGBB_API_KEY" //nolint:gosec // env var name
	EnvRedisAddr      = "REDIS_ADDR"
	EnvTrustProxy     = "TRUST_PROXY"
	EnvDemoEmail      = "DEMO_EMAIL"
	EnvDemoPassword   = "DEMO_PASSWORD" //nolint:gosec // env var name
	EnvSessionSecret  = "SESSION_SECRET" //nolint:gosec // env var name
	EnvSessionTTL     = "SESSION_TTL"
	EnvListTTL        = "CATALOG_LIST_TTL"
	EnvItemTTL        = "CATALOG_ITEM_TTL"
)

var (
	ErrInvalidPort            = errors.New("port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidIDScheme        = errors.New("id scheme must be one of: time, counter")
	ErrInvalidCatalogURL      = errors.New("catalog url must be an absolute http(s) url")
	ErrInvalidTTL             = errors.New("cache and session ttl values must be positive")
	ErrMissingDemoCredentials = errors.New("demo email and password must be set")
)

type Config struct {
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	MetricsToken    string

	Catalog    Catalog
	Storefront Storefront
}

// Catalog configures cmd/catalog.
type Catalog struct {
	Port        int
	DatabaseURL string // empty keeps the in-memory store
	IDScheme    string
	CORSOrigins []string
}

// Storefront configures cmd/storefront.
type Storefront struct {
	Port           int
	CatalogURL     string
	ImageUploadURL string
	ImageAPIKey    string
	RedisAddr      string // empty keeps the in-process cache

	// TrustProxy keys the login throttle on X-Forwarded-For.
	TrustProxy bool

	DemoEmail     string
	DemoPassword  string
	SessionSecret string
	SessionTTL    time.Duration

	ListTTL time.Duration
	ItemTTL time.Duration
}

// Load reads configuration from .env and the environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  true,
		Catalog: Catalog{
			Port:        DefaultCatalogPort,
			IDScheme:    DefaultIDScheme,
			CORSOrigins: []string{"*"},
		},
		Storefront: Storefront{
			Port:           DefaultStorefrontPort,
			CatalogURL:     DefaultCatalogURL,
			ImageUploadURL: DefaultImageUploadURL,
			DemoEmail:      DefaultDemoEmail,
			DemoPassword:   DefaultDemoPassword,
			SessionSecret:  DefaultSessionSecret,
			SessionTTL:     DefaultSessionTTL,
			ListTTL:        DefaultListTTL,
			ItemTTL:        DefaultItemTTL,
		},
	}
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if err := envDuration(EnvShutdownTimeout, &c.ShutdownTimeout); err != nil {
		return err
	}
	if err := envBool(EnvMetricsEnabled, &c.MetricsEnabled); err != nil {
		return err
	}
	c.MetricsToken = os.Getenv(EnvMetricsToken)

	if err := c.loadCatalogEnv(); err != nil {
		return err
	}
	return c.loadStorefrontEnv()
}

func (c *Config) loadCatalogEnv() error {
	if err := envInt(EnvCatalogPort, &c.Catalog.Port); err != nil {
		return err
	}
	c.Catalog.DatabaseURL = os.Getenv(EnvCatalogDatabaseURL)
	if v := os.Getenv(EnvCatalogIDScheme); v != "" {
		c.Catalog.IDScheme = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		c.Catalog.CORSOrigins = splitList(v)
	}
	return nil
}

func (c *Config) loadStorefrontEnv() error {
	s := &c.Storefront

	if err := envInt(EnvStorefrontPort, &s.Port); err != nil {
		return err
	}
	envString(EnvCatalogURL, &s.CatalogURL)
	envString(EnvImageUploadURL, &s.ImageUploadURL)
	envString(EnvImageAPIKey, &s.ImageAPIKey)
	envString(EnvRedisAddr, &s.RedisAddr)
	envString(EnvDemoEmail, &s.DemoEmail)
	envString(EnvDemoPassword, &s.DemoPassword)
	envString(EnvSessionSecret, &s.SessionSecret)
	if err := envBool(EnvTrustProxy, &s.TrustProxy); err != nil {
		return err
	}

	if err := envDuration(EnvSessionTTL, &s.SessionTTL); err != nil {
		return err
	}
	if err := envDuration(EnvListTTL, &s.ListTTL); err != nil {
		return err
	}
	return envDuration(EnvItemTTL, &s.ItemTTL)
}

// Validate checks every section; both binaries share one Config so a bad
// value is reported regardless of which service reads it.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if !validPort(c.Catalog.Port) || !validPort(c.Storefront.Port) {
		return ErrInvalidPort
	}
	switch c.Catalog.IDScheme {
	case IDSchemeTime, IDSchemeCounter:
	default:
		return ErrInvalidIDScheme
	}

	s := c.Storefront
	if !strings.HasPrefix(s.CatalogURL, "http://") && !strings.HasPrefix(s.CatalogURL, "https://") {
		return ErrInvalidCatalogURL
	}
	if s.SessionTTL <= 0 || s.ListTTL <= 0 || s.ItemTTL <= 0 {
		return ErrInvalidTTL
	}
	if strings.TrimSpace(s.DemoEmail) == "" || s.DemoPassword == "" {
		return ErrMissingDemoCredentials
	}
	return nil
}

func (c *Catalog) Address() string    { return fmt.Sprintf(":%d", c.Port) }
func (s *Storefront) Address() string { return fmt.Sprintf(":%d", s.Port) }

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
