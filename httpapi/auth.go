package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/tenantauth"
	"github.com/rs/zerolog"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TenantName string `json:"tenantName"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// decode reads a JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid JSON payload")
		return false
	}
	return true
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	http.SetCookie(w, h.engine.SessionCookie(res.Session))
	writeJSON(w, http.StatusOK, res.Auth)
}

func (h *Handler) handleSession(w http.ResponseWriter, _ *http.Request, auth tenantauth.AuthContext) {
	writeJSON(w, http.StatusOK, auth)
}

// handleLogout always clears the cookie, even when the session is already gone.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.engine.CookieName()); err == nil && cookie.Value != "" {
		if err := h.engine.DestroySession(r.Context(), cookie.Value); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("logout: session delete failed")
		}
	}
	http.SetCookie(w, h.engine.ClearSessionCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Register(r.Context(), tenantauth.RegisterRequest{
		Username:   req.Username,
		Password:   req.Password,
		TenantName: req.TenantName,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	http.SetCookie(w, h.engine.SessionCookie(res.Session))
	writeJSON(w, http.StatusCreated, res.Auth)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	issued, err := h.engine.ChangePassword(r.Context(), auth, req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	http.SetCookie(w, h.engine.SessionCookie(issued))
	w.WriteHeader(http.StatusNoContent)
}
