// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/export"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/query"
	"github.com/danielhkuo/votertag/store"
)

type VoterHandler struct {
	store   *store.Store
	metrics *metrics.Metrics
	cfg     cliparse.Config
	now     func() time.Time
}

func NewVoterHandler(st *store.Store, m *metrics.Metrics, cfg cliparse.Config) *VoterHandler {
	return &VoterHandler{store: st, metrics: m, cfg: cfg, now: time.Now}
}

// WithClock overrides the time used for export file names and ages
func (h *VoterHandler) WithClock(now func() time.Time) *VoterHandler {
	h.now = now
	return h
}

func (h *VoterHandler) ipHash(r *http.Request) string {
	return auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt)
}

// recordAccess logs a successful read. A failure is logged and the read
// still served.
func (h *VoterHandler) recordAccess(r *http.Request, action string, voterID *int64) {
	p := actor(r)
	if err := h.store.RecordAccess(r.Context(), p.ID, action, voterID, h.ipHash(r)); err != nil {
		slog.Error("failed to record access", "user_id", p.ID, "action", action, "error", err)
	}
}

// ListVoters handles GET /api/voters
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := query.ParseFilter(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	o, err := query.ParseOrder(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	page, err := query.ParsePage(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	result, err := h.store.ListVoters(r.Context(), actor(r).ID, f, o, page)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	h.recordAccess(r, models.ActionView, nil)

	middleware.JSONResponse(w, http.StatusOK, result)
}

// GetVoter handles GET /api/voters/{id}
func (h *VoterHandler) GetVoter(w http.ResponseWriter, r *http.Request) {
	id, err := voterID(r)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	v, err := h.store.GetVoter(r.Context(), actor(r).ID, id)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	h.recordAccess(r, models.ActionView, &id)

	middleware.JSONResponse(w, http.StatusOK, v)
}

// UpdateTag handles PATCH /api/voters/{id}. A null tag clears it.
func (h *VoterHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := voterID(r)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	var req models.UpdateTagRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	v, changed, err := h.store.UpdateTag(r.Context(), p.ID, id, req.Tag, h.ipHash(r))
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	if changed {
		h.metrics.IncTagUpdate()
		slog.Info("voter tagged", "voter_id", id, "user_id", p.ID)
	}

	middleware.JSONResponse(w, http.StatusOK, v)
}

// BatchUpdateTag handles POST /api/voters/tags. Items succeed or fail
// independently and each carries its own status.
func (h *VoterHandler) BatchUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req models.BatchUpdateTagRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		writeError(w, h.metrics, errInvalidJSON)
		return
	}

	p := actor(r)
	results, err := h.store.BatchUpdateTag(r.Context(), p.ID, req.Items, h.ipHash(r))
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	resp := models.BatchUpdateTagResponse{Results: make([]models.BatchItemResult, 0, len(results))}
	for _, res := range results {
		item := models.BatchItemResult{VoterID: res.VoterID, Status: http.StatusOK}
		if res.Err != nil {
			item.Status = middleware.StatusFor(res.Err)
			item.Error = middleware.MessageFor(res.Err)
			if item.Status == http.StatusForbidden {
				h.metrics.IncDenied()
			}
			if item.Status == http.StatusInternalServerError {
				slog.Error("batch item failed", "voter_id", res.VoterID, "error", res.Err)
			}
			resp.Failed++
		} else {
			v := res.Voter
			item.Voter = &v
			if res.Changed {
				h.metrics.IncTagUpdate()
			}
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, item)
	}

	slog.Info("batch tag update", "user_id", p.ID, "succeeded", resp.Succeeded, "failed", resp.Failed)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// ExportVoters handles GET /api/voters/export. The whole filtered set is
// streamed as CSV, not just one page.
func (h *VoterHandler) ExportVoters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := query.ParseFilter(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	o, err := query.ParseOrder(q)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	now := h.now()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`)

	ew := export.NewWriter(w, now.Year())
	p := actor(r)
	err = h.store.ExportVoters(r.Context(), p.ID, f, o, ew.Write)
	if err != nil {
		// Rows may already be on the wire; the error can only be reported
		// while nothing has been written
		if ew.Rows() == 0 {
			w.Header().Del("Content-Disposition")
			writeError(w, h.metrics, err)
			return
		}
		slog.Error("export interrupted", "user_id", p.ID, "rows", ew.Rows(), "error", err)
		return
	}
	if err := ew.Close(); err != nil {
		slog.Error("failed to finish export", "user_id", p.ID, "error", err)
		return
	}

	h.recordAccess(r, models.ActionExport, nil)
	slog.Info("voters exported", "user_id", p.ID, "rows", ew.Rows())
}

// Values handles GET /api/values/{column}. For district, repeated area
// parameters narrow the result to districts seen in those areas.
func (h *VoterHandler) Values(w http.ResponseWriter, r *http.Request) {
	f, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	values, err := h.store.DistinctValues(r.Context(), actor(r).ID, r.PathValue("column"), f.Areas)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, values)
}

// Stats handles GET /api/stats
func (h *VoterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	f, err := query.ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}

	stats, err := h.store.Stats(r.Context(), actor(r).ID, f)
	if err != nil {
		writeError(w, h.metrics, err)
		return
	}
	h.recordAccess(r, models.ActionViewStats, nil)

	middleware.JSONResponse(w, http.StatusOK, stats)
}
