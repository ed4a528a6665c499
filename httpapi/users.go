package httpapi

import (
	"net/http"

	"github.com/MrEthical07/tenantauth"
	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	users, err := h.engine.ListUsers(r.Context(), auth)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if users == nil {
		users = []tenantauth.UserInfo{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := tenantauth.ParseRole(req.Role)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	user, err := h.engine.CreateUser(r.Context(), auth, tenantauth.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	user, err := h.engine.GetUser(r.Context(), auth, chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	var req updateRoleRequest
	if !decode(w, r, &req) {
		return
	}
	role, err := tenantauth.ParseRole(req.Role)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	user, err := h.engine.UpdateRole(r.Context(), auth, chi.URLParam(r, "id"), role)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request, auth tenantauth.AuthContext) {
	if err := h.engine.DeleteUser(r.Context(), auth, chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
