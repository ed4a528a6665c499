package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/tenantauth"
	"github.com/rs/zerolog"
)

// Error codes returned in the "error" field.
const (
	CodeInvalidJSON        = "invalid_json"
	CodeInvalidInput       = "invalid_input"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAccountLocked      = "account_locked"
	CodeRateLimited        = "rate_limited"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeAccountExists      = "account_exists"
	CodeTenantExists       = "tenant_exists"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
)

type errorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	Field             string `json:"field,omitempty"`
	RemainingAttempts int    `json:"remainingAttempts,omitempty"`
	RetryAfterMinutes int    `json:"retryAfterMinutes,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeEngineError is the single translation from engine errors to HTTP.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *tenantauth.ValidationError
		credentials *tenantauth.CredentialsError
		lockout     *tenantauth.LockoutError
		rateLimit   *tenantauth.RateLimitError
	)

	switch {
	case errors.As(err, &lockout):
		writeJSON(w, http.StatusLocked, errorResponse{
			Error:             CodeAccountLocked,
			Message:           "Account temporarily locked",
			RetryAfterMinutes: lockout.Minutes(),
		})
	case errors.As(err, &rateLimit):
		w.Header().Set("Retry-After", strconv.Itoa(rateLimit.Seconds()))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:             CodeRateLimited,
			Message:           "Too many attempts",
			RetryAfterSeconds: rateLimit.Seconds(),
		})
	case errors.As(err, &credentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:             CodeInvalidCredentials,
			Message:           "Invalid username or password",
			RemainingAttempts: credentials.RemainingAttempts,
		})
	case errors.Is(err, tenantauth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   CodeInvalidInput,
			Message: validation.Message,
			Field:   validation.Field,
		})
	case errors.Is(err, tenantauth.ErrInvalidInput),
		errors.Is(err, tenantauth.ErrPasswordPolicy),
		errors.Is(err, tenantauth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid request")
	case errors.Is(err, tenantauth.ErrAccountExists):
		writeError(w, http.StatusConflict, CodeAccountExists, "Username is already taken")
	case errors.Is(err, tenantauth.ErrTenantExists):
		writeError(w, http.StatusConflict, CodeTenantExists, "Organisation already exists")
	case errors.Is(err, tenantauth.ErrNoSession):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	case errors.Is(err, tenantauth.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
	case errors.Is(err, tenantauth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, tenantauth.ErrAuthUnavailable), errors.Is(err, tenantauth.ErrEngineNotReady):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unmapped error")
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
