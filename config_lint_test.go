package tenantauth

import (
	"net/http"
	"slices"
	"testing"
	"time"
)

func TestLintDefaultConfigClean(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Signing.Secret = make([]byte, 32)
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings for defaults, got %v", ws.Codes())
	}
}

func TestLintWarnings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
		sev    LintSeverity
	}{
		{"insecure cookie", func(c *Config) { c.Session.SecureCookie = false }, "cookie_insecure", LintHigh},
		{"samesite none", func(c *Config) { c.Session.SameSite = http.SameSiteNoneMode }, "cookie_samesite_none", LintHigh},
		{"long ttl", func(c *Config) { c.Session.TTL = 90 * 24 * time.Hour }, "session_ttl_long", LintWarn},
		{"generous login window", func(c *Config) { c.RateLimit.LoginMax = 500 }, "login_limit_high", LintWarn},
		{"lenient lockout", func(c *Config) { c.Lockout.Threshold = 50 }, "lockout_threshold_high", LintWarn},
		{"short lockout", func(c *Config) { c.Lockout.Duration = 10 * time.Second }, "lockout_short", LintWarn},
		{"cheap argon2", func(c *Config) { c.Password.Memory = 8192 }, "argon2_memory_low", LintWarn},
		{"audit off", func(c *Config) { c.Audit.Enabled = false }, "audit_disabled", LintInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			ws := cfg.Lint()
			idx := slices.Index(ws.Codes(), tt.code)
			if idx < 0 {
				t.Fatalf("expected %s, got %v", tt.code, ws.Codes())
			}
			if ws[idx].Severity != tt.sev {
				t.Fatalf("expected severity %s, got %s", tt.sev, ws[idx].Severity)
			}
		})
	}
}

func TestLintAtLeast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.SecureCookie = false
	cfg.Audit.Enabled = false

	ws := cfg.Lint()
	if len(ws) != 2 {
		t.Fatalf("expected 2 warnings, got %v", ws.Codes())
	}
	high := ws.AtLeast(LintHigh)
	if len(high) != 1 || high[0].Code != "cookie_insecure" {
		t.Fatalf("unexpected high warnings: %v", high.Codes())
	}
}

func TestSecurityReportReflectsConfig(t *testing.T) {
	h := newHarness(t)
	r := h.engine.SecurityReport()

	if !r.SecureCookie || r.SameSite != "lax" || r.CookieName != "session" {
		t.Fatalf("unexpected cookie posture: %+v", r)
	}
	if r.LoginMax != 10 || r.LoginWindow != time.Minute {
		t.Fatalf("unexpected login window: %+v", r)
	}
	if r.LockoutThreshold != 5 || r.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout: %+v", r)
	}
	if r.SecretBytes != 32 || r.Argon2.Memory != 8*1024 {
		t.Fatalf("unexpected crypto posture: %+v", r)
	}
}
