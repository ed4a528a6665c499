package internaldefs

import (
	"github.com/MrEthical07/tenantauth"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   tenantauth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported name.
type HistogramDef struct {
	ID   tenantauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: tenantauth.MetricLoginSuccess, Name: "tenantauth_login_success_total", Help: "Successful logins."},
	{ID: tenantauth.MetricLoginFailure, Name: "tenantauth_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: tenantauth.MetricLoginRateLimited, Name: "tenantauth_login_rate_limited_total", Help: "Logins denied by the per-IP window."},
	{ID: tenantauth.MetricLoginLocked, Name: "tenantauth_login_locked_total", Help: "Logins denied by an active lockout."},
	{ID: tenantauth.MetricLockoutTriggered, Name: "tenantauth_lockout_triggered_total", Help: "Failures that locked an account."},
	{ID: tenantauth.MetricSessionCreated, Name: "tenantauth_session_created_total", Help: "Issued sessions."},
	{ID: tenantauth.MetricSessionRejected, Name: "tenantauth_session_rejected_total", Help: "Failed session verifications."},
	{ID: tenantauth.MetricSessionDestroyed, Name: "tenantauth_session_destroyed_total", Help: "Sessions ended by logout."},
	{ID: tenantauth.MetricSessionsRevoked, Name: "tenantauth_sessions_revoked_total", Help: "Sessions removed by user-wide revocation."},
	{ID: tenantauth.MetricRegistrationSuccess, Name: "tenantauth_registration_success_total", Help: "Registered tenants."},
	{ID: tenantauth.MetricRegistrationRateLimited, Name: "tenantauth_registration_rate_limited_total", Help: "Registrations denied by the per-IP window."},
	{ID: tenantauth.MetricUserCreated, Name: "tenantauth_user_created_total", Help: "Users created by tenant admins."},
	{ID: tenantauth.MetricRoleChanged, Name: "tenantauth_role_changed_total", Help: "Role changes."},
	{ID: tenantauth.MetricUserDeleted, Name: "tenantauth_user_deleted_total", Help: "User deletions."},
	{ID: tenantauth.MetricPasswordChanged, Name: "tenantauth_password_changed_total", Help: "Password changes."},
	{ID: tenantauth.MetricForbidden, Name: "tenantauth_forbidden_total", Help: "Operations denied by role, tenant or self-target rules."},
	{ID: tenantauth.MetricStorageFailure, Name: "tenantauth_storage_failure_total", Help: "Security paths that failed closed on a store error."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: tenantauth.MetricVerifyLatency, Name: "tenantauth_verify_latency_seconds", Help: "Session verification latency."},
}

// HistogramBounds are the Prometheus "le" labels for the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names each bucket for exporters that cannot use labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "tenantauth_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
