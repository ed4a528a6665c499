package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tenantauth"
	"github.com/rs/zerolog"
)

// SessionVerifier performs the store-backed session check. *tenantauth.Engine
// implements it.
type SessionVerifier interface {
	VerifySession(ctx context.Context, cookieValue string) (tenantauth.AuthContext, error)
	CookieName() string
}

// AuthHandlerFunc is a handler that receives the verified identity explicitly.
type AuthHandlerFunc func(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext)

// WithAuth verifies the session cookie, enforces allowed roles and calls
// handler with the resulting AuthContext. An empty allowed list admits every
// role. Verification failures answer 401, role mismatches 403.
func WithAuth(verifier SessionVerifier, handler AuthHandlerFunc, allowed ...tenantauth.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil || handler == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		cookie, err := r.Cookie(verifier.CookieName())
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		auth, err := verifier.VerifySession(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		if !auth.HasRole(allowed...) {
			zerolog.Ctx(r.Context()).Debug().
				Str("user_id", auth.UserID).
				Str("tenant_id", auth.TenantID).
				Stringer("role", auth.Role).
				Str("path", r.URL.Path).
				Msg("role not permitted")
			writeError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
			return
		}

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panic")
				writeError(w, http.StatusInternalServerError, "internal", "Internal server error")
			}
		}()

		handler(w, r, auth)
	})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}
