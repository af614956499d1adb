// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/store"
)

type UserHandler struct {
	store   *store.Store
	metrics *metrics.Metrics
}

func NewUserHandler(st *store.Store, m *metrics.Metrics) *UserHandler {
	return &UserHandler{store: st, metrics: m}
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListPrincipals(r.Context(), actor(r).ID)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, users)
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePrincipalRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	created, err := h.store.CreatePrincipal(r.Context(), p.ID, req)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	slog.Info("user created", "user_id", created.ID, "role", created.Role, "by", p.ID)

	middleware.JSONResponse(w, http.StatusCreated, created)
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.GetPrincipal(r.Context(), actor(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, u)
}

// SetActive handles PATCH /api/users/{id}/active
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req models.SetActiveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	u, err := h.store.SetPrincipalActive(r.Context(), p.ID, r.PathValue("id"), req.IsActive)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	slog.Info("user active changed", "user_id", u.ID, "is_active", u.IsActive, "by", p.ID)

	middleware.JSONResponse(w, http.StatusOK, u)
}

// ResetPassword handles POST /api/users/{id}/reset-password
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	id := r.PathValue("id")
	if err := h.store.ResetPassword(r.Context(), p.ID, id, req.NewPassword); err != nil {
		writeError(w, h.metrics, err)
		return
	}

	slog.Info("password reset", "user_id", id, "by", p.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Password reset"})
}
