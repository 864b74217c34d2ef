// Package config loads service configuration from defaults, an optional
// YAML file and MEDIAVAULT_-prefixed environment variables, in that order.
// A handful of bare environment variables (AUTH_USERNAME, AUTH_PASSWORD,
// JWT_SECRET, COOKIE_SECURE) are honored on top for compatibility with
// older deployments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "MEDIAVAULT_CONFIG"

// DefaultConfigPaths are tried in order when MEDIAVAULT_CONFIG is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mediavault/config.yaml",
}

// ErrMissingJWTSecret makes a missing signing secret fatal at startup
// instead of surfacing as per-request failures.
var ErrMissingJWTSecret = errors.New("config: auth.jwt_secret is not configured")

// Config is the root configuration tree.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Metadata   MetadataConfig   `koanf:"metadata"`

	// Environment is "production" or "development"; it feeds the cookie
	// Secure fallback.
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateBurst       int           `koanf:"rate_burst"`
	RatePerSecond   int           `koanf:"rate_per_second"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type DatabaseConfig struct {
	// DSN is a pgx connection string. Empty means in-memory demo mode.
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type AuthConfig struct {
	// Username/Password form the single configured credential pair. The
	// defaults are a development placeholder for a real user store.
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// PasswordBcrypt, when set, takes precedence over Password and is
	// compared with bcrypt.
	PasswordBcrypt string `koanf:"password_bcrypt"`

	JWTSecret  string        `koanf:"jwt_secret"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`

	// CookieSecure is "auto", "true" or "false". "auto" resolves to
	// true unless Environment is "development".
	CookieSecure string `koanf:"cookie_secure"`
	CookieDomain string `koanf:"cookie_domain"`
}

// EnrichmentConfig holds per-run defaults; request bodies may override
// them within the validated ranges.
type EnrichmentConfig struct {
	BatchSize           int           `koanf:"batch_size"`
	DelayBetweenCalls   time.Duration `koanf:"delay_between_calls"`
	MaxItems            int           `koanf:"max_items"`
	PauseBetweenBatches time.Duration `koanf:"pause_between_batches"`
}

type MetadataConfig struct {
	GoogleBooks APIEndpoint `koanf:"google_books"`
	ListenNotes APIEndpoint `koanf:"listen_notes"`
	TMDB        APIEndpoint `koanf:"tmdb"`
}

type APIEndpoint struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateBurst:       20,
			RatePerSecond:   10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			Username:     "admin",
			Password:     "password123",
			Issuer:       "mediavault",
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   7 * 24 * time.Hour,
			CookieSecure: "auto",
		},
		Enrichment: EnrichmentConfig{
			BatchSize:           50,
			DelayBetweenCalls:   time.Second,
			MaxItems:            1000,
			PauseBetweenBatches: 30 * time.Second,
		},
		Metadata: MetadataConfig{
			GoogleBooks: APIEndpoint{BaseURL: "https://www.googleapis.com/books/v1"},
			ListenNotes: APIEndpoint{BaseURL: "https://listen-api.listennotes.com/api/v2"},
			TMDB:        APIEndpoint{BaseURL: "https://api.themoviedb.org/3"},
		},
		Environment: "production",
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	return load(configFilePath())
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// MEDIAVAULT_AUTH__JWT_SECRET -> auth.jwt_secret. The double
	// underscore separates nesting levels so key names may themselves
	// contain underscores.
	err := k.Load(env.Provider("MEDIAVAULT_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "MEDIAVAULT_")
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	applyLegacyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyLegacyEnv applies the bare environment variables the original
// deployment used; they win over both file and prefixed env values.
func applyLegacyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("AUTH_USERNAME")); v != "" {
		cfg.Auth.Username = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_PASSWORD")); v != "" {
		cfg.Auth.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("COOKIE_SECURE")); v != "" {
		cfg.Auth.CookieSecure = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.Database.DSN = v
	}
}

// Validate checks constraints that must hold before the process serves
// traffic.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.AccessTTL > time.Hour {
		return fmt.Errorf("config: auth.access_ttl must be within (0, 1h], got %s", c.Auth.AccessTTL)
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return fmt.Errorf("config: auth.refresh_ttl must exceed auth.access_ttl")
	}
	switch strings.ToLower(c.Auth.CookieSecure) {
	case "auto", "true", "false":
	default:
		if _, err := strconv.ParseBool(c.Auth.CookieSecure); err != nil {
			return fmt.Errorf("config: auth.cookie_secure must be auto, true or false")
		}
	}
	return nil
}

// ResolveCookieSecure computes the Secure attribute for the refresh
// cookie: explicit setting first, environment fallback otherwise.
func (c *Config) ResolveCookieSecure() bool {
	switch strings.ToLower(strings.TrimSpace(c.Auth.CookieSecure)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return !c.IsDevelopment()
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "development")
}

func configFilePath() string {
	if p := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
