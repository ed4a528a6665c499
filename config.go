package tenantauth

import (
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/tenantauth/token"
)

// Config is the full engine configuration. Start from DefaultConfig and
// override fields; Build calls Validate.
type Config struct {
	Session   SessionConfig
	Signing   SigningConfig
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	Password  PasswordConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls cookie attributes and session lifetime.
type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	SecureCookie bool
	SameSite     http.SameSite
	RedisPrefix  string
}

/*
====================================
SIGNING CONFIG
====================================
*/

// SigningConfig holds the HMAC secret used to sign session cookies.
type SigningConfig struct {
	Secret []byte
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds the sliding-window budgets per client IP.
type RateLimitConfig struct {
	RedisPrefix    string
	LoginMax       int
	LoginWindow    time.Duration
	RegisterMax    int
	RegisterWindow time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig holds the per-username failure lockout policy.
type LockoutConfig struct {
	RedisPrefix string
	Threshold   int
	Duration    time.Duration
	Retention   time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the length policy.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns production defaults: 7-day sessions, 10 logins per
// minute per IP, lockout after 5 failures for 15 minutes. Signing.Secret is
// left empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			CookieName:   "session",
			TTL:          7 * 24 * time.Hour,
			SecureCookie: true,
			SameSite:     http.SameSiteLaxMode,
			RedisPrefix:  "sess",
		},
		RateLimit: RateLimitConfig{
			RedisPrefix:    "rl",
			LoginMax:       10,
			LoginWindow:    time.Minute,
			RegisterMax:    5,
			RegisterWindow: time.Hour,
		},
		Lockout: LockoutConfig{
			RedisPrefix: "lo",
			Threshold:   5,
			Duration:    15 * time.Minute,
			Retention:   24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
			MaxLength:   256,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Signing.Secret != nil {
		out.Signing.Secret = append([]byte(nil), cfg.Signing.Secret...)
	}
	return out
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// Session
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName must be set")
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must be set")
	}

	// Signing
	if len(c.Signing.Secret) == 0 {
		return errors.New("Signing Secret is required")
	}
	if len(c.Signing.Secret) < token.MinSecretLength {
		return errors.New("Signing Secret must be >= 32 bytes")
	}

	// Rate limit
	if c.RateLimit.LoginMax <= 0 {
		return errors.New("RateLimit LoginMax must be > 0")
	}
	if c.RateLimit.LoginWindow < time.Millisecond {
		return errors.New("RateLimit LoginWindow must be >= 1ms")
	}
	if c.RateLimit.RegisterMax <= 0 {
		return errors.New("RateLimit RegisterMax must be > 0")
	}
	if c.RateLimit.RegisterWindow < time.Millisecond {
		return errors.New("RateLimit RegisterWindow must be >= 1ms")
	}

	// Lockout
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout Threshold must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}
	if c.Lockout.Retention < c.Lockout.Duration {
		return errors.New("Lockout Retention must be >= Lockout Duration")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 10 {
		return errors.New("Password MinLength must be >= 10")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
