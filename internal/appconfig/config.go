// Package appconfig loads the tenantauth server configuration from an
// optional YAML file and TENANTAUTH_* environment variables.
package appconfig

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/tenantauth"
	"github.com/MrEthical07/tenantauth/token"
	"gopkg.in/yaml.v3"
)

// ErrMissingSigningSecret is returned when TENANTAUTH_SIGNING_SECRET is unset.
var ErrMissingSigningSecret = errors.New("signing secret is required (set TENANTAUTH_SIGNING_SECRET)")

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Limits    LimitsConfig    `yaml:"limits"`
	Edge      EdgeConfig      `yaml:"edge"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// SigningSecret is only read from the environment.
	SigningSecret string `yaml:"-"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TrustProxy      bool          `yaml:"trust_proxy"`
	StaticDir       string        `yaml:"static_dir"`
}

// RedisConfig holds the session and limiter backend address.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// DatabaseConfig holds the identity store connection. An empty URL selects
// the in-memory store.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

// SessionConfig holds cookie settings.
type SessionConfig struct {
	CookieName   string        `yaml:"cookie_name"`
	TTL          time.Duration `yaml:"ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	SameSite     string        `yaml:"same_site"`
}

// LimitsConfig holds throttling and lockout policy.
type LimitsConfig struct {
	LoginMax         int           `yaml:"login_max"`
	LoginWindow      time.Duration `yaml:"login_window"`
	RegisterMax      int           `yaml:"register_max"`
	RegisterWindow   time.Duration `yaml:"register_window"`
	LockoutThreshold int           `yaml:"lockout_threshold"`
	LockoutDuration  time.Duration `yaml:"lockout_duration"`
}

// EdgeConfig selects the paths behind the signature-only edge guard.
type EdgeConfig struct {
	LoginPath         string   `yaml:"login_path"`
	ProtectedPrefixes []string `yaml:"protected_prefixes"`
	PublicPaths       []string `yaml:"public_paths"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig holds OTLP trace export settings. An empty endpoint
// disables tracing.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lib := tenantauth.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addrs: []string{"localhost:6379"},
		},
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Session: SessionConfig{
			CookieName:   lib.Session.CookieName,
			TTL:          lib.Session.TTL,
			SecureCookie: lib.Session.SecureCookie,
			SameSite:     "lax",
		},
		Limits: LimitsConfig{
			LoginMax:         lib.RateLimit.LoginMax,
			LoginWindow:      lib.RateLimit.LoginWindow,
			RegisterMax:      lib.RateLimit.RegisterMax,
			RegisterWindow:   lib.RateLimit.RegisterWindow,
			LockoutThreshold: lib.Lockout.Threshold,
			LockoutDuration:  lib.Lockout.Duration,
		},
		Edge: EdgeConfig{
			LoginPath:         "/app/login",
			ProtectedPrefixes: []string{"/app"},
			PublicPaths:       []string{"/app/login", "/app/assets/"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "tenantauth",
		},
	}
}

// Load reads path when non-empty, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	cfg.SigningSecret = os.Getenv("TENANTAUTH_SIGNING_SECRET")

	if v := os.Getenv("TENANTAUTH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TENANTAUTH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addrs = splitList(v)
	}
	if v := os.Getenv("TENANTAUTH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TENANTAUTH_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("TENANTAUTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TENANTAUTH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TENANTAUTH_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"TENANTAUTH_SECURE_COOKIE", &cfg.Session.SecureCookie},
		{"TENANTAUTH_TRUST_PROXY", &cfg.Server.TrustProxy},
		{"TENANTAUTH_OTLP_INSECURE", &cfg.Telemetry.Insecure},
		{"TENANTAUTH_DATABASE_MIGRATE", &cfg.Database.Migrate},
	}
	for _, b := range bools {
		v := os.Getenv(b.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		*b.dst = parsed
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem at once. A missing signing secret matches
// ErrMissingSigningSecret with errors.Is.
func (c *Config) Validate() error {
	var errs []error

	if c.SigningSecret == "" {
		errs = append(errs, ErrMissingSigningSecret)
	} else if len(c.SigningSecret) < token.MinSecretLength {
		errs = append(errs, fmt.Errorf("signing secret must be at least %d bytes", token.MinSecretLength))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if len(c.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs is required"))
	}
	if _, err := parseSameSite(c.Session.SameSite); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(v) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("session.same_site must be lax, strict or none, got %q", v)
	}
}

// EngineConfig maps the server settings onto the library configuration.
func (c *Config) EngineConfig() tenantauth.Config {
	cfg := tenantauth.DefaultConfig()
	cfg.Signing.Secret = []byte(c.SigningSecret)

	cfg.Session.CookieName = c.Session.CookieName
	cfg.Session.TTL = c.Session.TTL
	cfg.Session.SecureCookie = c.Session.SecureCookie
	cfg.Session.SameSite, _ = parseSameSite(c.Session.SameSite)

	cfg.RateLimit.LoginMax = c.Limits.LoginMax
	cfg.RateLimit.LoginWindow = c.Limits.LoginWindow
	cfg.RateLimit.RegisterMax = c.Limits.RegisterMax
	cfg.RateLimit.RegisterWindow = c.Limits.RegisterWindow
	cfg.Lockout.Threshold = c.Limits.LockoutThreshold
	cfg.Lockout.Duration = c.Limits.LockoutDuration
	if cfg.Lockout.Retention < cfg.Lockout.Duration {
		cfg.Lockout.Retention = cfg.Lockout.Duration
	}
	return cfg
}
