package tenantauth

import (
	"fmt"
	"net/http"
	"time"
)

// SecurityReport summarises the engine's effective security posture. It
// contains no secrets and is meant for startup logs and diagnostics.
type SecurityReport struct {
	CookieName       string
	SecureCookie     bool
	SameSite         string
	SessionTTL       time.Duration
	LoginMax         int
	LoginWindow      time.Duration
	RegisterMax      int
	RegisterWindow   time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration
	Argon2           PasswordConfigReport
	SecretBytes      int
	AuditEnabled     bool
	MetricsEnabled   bool
}

// PasswordConfigReport mirrors the Argon2id parameters in use.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the posture of a built engine.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return e.config.SecurityReport()
}

// SecurityReport returns the posture described by c.
func (c *Config) SecurityReport() SecurityReport {
	return SecurityReport{
		CookieName:       c.Session.CookieName,
		SecureCookie:     c.Session.SecureCookie,
		SameSite:         sameSiteName(c.Session.SameSite),
		SessionTTL:       c.Session.TTL,
		LoginMax:         c.RateLimit.LoginMax,
		LoginWindow:      c.RateLimit.LoginWindow,
		RegisterMax:      c.RateLimit.RegisterMax,
		RegisterWindow:   c.RateLimit.RegisterWindow,
		LockoutThreshold: c.Lockout.Threshold,
		LockoutDuration:  c.Lockout.Duration,
		Argon2: PasswordConfigReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		SecretBytes:    len(c.Signing.Secret),
		AuditEnabled:   c.Audit.Enabled,
		MetricsEnabled: c.Metrics.Enabled,
	}
}

// LintSeverity grades a LintWarning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// LintWarning is a configuration that validates but is probably a mistake
// in production.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of warnings returned by Lint.
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, len(r))
	for i, w := range r {
		out[i] = w.Code
	}
	return out
}

// AtLeast returns the warnings of severity min or higher.
func (r LintResult) AtLeast(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports risky settings that Validate accepts.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if !c.Session.SecureCookie {
		add("cookie_insecure", LintHigh, "session cookie is sent over plain HTTP")
	}
	if c.Session.SameSite == http.SameSiteNoneMode {
		add("cookie_samesite_none", LintHigh, "SameSite=None exposes the session cookie to cross-site requests")
	}
	if c.Session.TTL > 30*24*time.Hour {
		add("session_ttl_long", LintWarn, "session TTL %s exceeds 30 days", c.Session.TTL)
	}
	if c.RateLimit.LoginMax > 100 {
		add("login_limit_high", LintWarn, "login window allows %d attempts", c.RateLimit.LoginMax)
	}
	if c.Lockout.Threshold > 10 {
		add("lockout_threshold_high", LintWarn, "lockout tolerates %d failures", c.Lockout.Threshold)
	}
	if c.Lockout.Duration < time.Minute {
		add("lockout_short", LintWarn, "lockout duration %s is under a minute", c.Lockout.Duration)
	}
	if c.Password.Memory < 19*1024 {
		add("argon2_memory_low", LintWarn, "argon2 memory %d KiB is below 19 MiB", c.Password.Memory)
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}
	return ws
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return "default"
	}
}
