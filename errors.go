package tenantauth

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidInput marks malformed request input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while a failure lockout is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrLoginRateLimited is returned when the per-IP login window is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRegisterRateLimited is returned when the per-IP registration window is exhausted.
	ErrRegisterRateLimited = errors.New("registration rate limited")
	// ErrNoSession is the single error every failed session verification satisfies.
	ErrNoSession = errors.New("no session")
	// ErrForbidden is returned when a valid session may not perform an operation.
	ErrForbidden = errors.New("forbidden")
	// ErrSelfTarget is returned when a user targets themselves with a guarded operation.
	ErrSelfTarget = fmt.Errorf("%w: operation may not target the acting user", ErrForbidden)
	// ErrTenantMismatch is returned when an entity belongs to another tenant.
	ErrTenantMismatch = fmt.Errorf("%w: entity belongs to another tenant", ErrForbidden)
	// ErrUserNotFound is returned by UserProvider lookups for missing users.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned when a username is already taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrTenantExists is returned when registration names an existing tenant.
	ErrTenantExists = errors.New("tenant already exists")
	// ErrPasswordPolicy is returned for passwords that fail the length policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidRole is returned for role names outside the closed role set.
	ErrInvalidRole = errors.New("invalid role")
	// ErrAuthUnavailable is returned when a backing store fails on a security path.
	ErrAuthUnavailable = errors.New("authentication backend unavailable")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError carries a field-level message that is safe to show callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// CredentialsError is a failed login that did not lock the account.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.RemainingAttempts)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// LockoutError is returned while the account key is locked.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account locked for %d more minutes", e.Minutes())
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// Minutes returns the remaining lockout rounded up to whole minutes.
func (e *LockoutError) Minutes() int {
	return ceilUnits(e.Remaining, time.Minute)
}

// RateLimitError is returned when a sliding window denies a request.
type RateLimitError struct {
	Cause      error
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v: retry after %ds", e.Cause, e.Seconds())
}

func (e *RateLimitError) Unwrap() error { return e.Cause }

// Seconds returns RetryAfter rounded up to whole seconds, at least 1.
func (e *RateLimitError) Seconds() int {
	return ceilUnits(e.RetryAfter, time.Second)
}

func ceilUnits(d, unit time.Duration) int {
	n := int(math.Ceil(float64(d) / float64(unit)))
	if n < 1 {
		return 1
	}
	return n
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrAuthUnavailable, err)
}
