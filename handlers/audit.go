// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/audit"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/query"
	"github.com/danielhkuo/votertag/store"
)

type AuditHandler struct {
	store   *store.Store
	metrics *metrics.Metrics
}

func NewAuditHandler(st *store.Store, m *metrics.Metrics) *AuditHandler {
	return &AuditHandler{store: st, metrics: m}
}

// AuditLog handles GET /api/audit-logs?kind=&user_id=&voter_id=&page=.
// kind is "changes" (the default) for tag changes or "access" for reads.
func (h *AuditHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := query.ParsePage(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	opts := audit.ListOptions{ActorID: strings.TrimSpace(q.Get("user_id")), Page: page}
	if s := strings.TrimSpace(q.Get("voter_id")); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			writeError(w, h.metrics, fmt.Errorf("%w: voter_id must be a positive whole number", apperr.ErrValidation))
			return
		}
		opts.VoterID = id
	}

	switch strings.TrimSpace(q.Get("kind")) {
	case "", "changes":
		entries, err := h.store.AuditLog(r.Context(), actor(r).ID, opts)
		if err != nil {
			writeError(w, h.metrics, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, auditPage(entries, page))
	case "access":
		entries, err := h.store.AccessLog(r.Context(), actor(r).ID, opts)
		if err != nil {
			writeError(w, h.metrics, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, models.AccessPage{Data: entries, Page: page, PageSize: audit.PageSize})
	default:
		writeError(w, h.metrics, fmt.Errorf("%w: kind must be changes or access", apperr.ErrValidation))
	}
}

// MyActivity handles GET /api/me/activity
func (h *AuditHandler) MyActivity(w http.ResponseWriter, r *http.Request) {
	page, err := query.ParsePage(r.URL.Query())
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	entries, err := h.store.MyActivity(r.Context(), actor(r).ID, page)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, auditPage(entries, page))
}

func auditPage(entries []models.AuditEntry, page int) models.AuditPage {
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return models.AuditPage{Data: entries, Page: page, PageSize: audit.PageSize}
}
