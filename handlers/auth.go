// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/session"
	"github.com/danielhkuo/votertag/store"
)

type AuthHandler struct {
	store    *store.Store
	sessions *session.Manager
	metrics  *metrics.Metrics
}

func NewAuthHandler(st *store.Store, sessions *session.Manager, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{store: st, sessions: sessions, metrics: m}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, res.Response())
}

// Logout handles POST /api/auth/logout. Logging out without a session, or
// with one that is already gone, still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.BearerToken(r); token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			writeError(w, h.metrics, err)
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, actor(r))
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	if err := h.store.ChangePassword(r.Context(), p.ID, req); err != nil {
		writeError(w, h.metrics, err)
		return
	}

	// Every other session of this principal ends with the old password
	if err := h.sessions.RevokeOthers(r.Context(), p.ID, middleware.Token(r.Context())); err != nil {
		slog.Error("failed to revoke other sessions", "user_id", p.ID, "error", err)
	}

	slog.Info("password changed", "user_id", p.ID)

	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Password changed"})
}
