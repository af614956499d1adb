// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/testutil"
)

func TestAuditLog(t *testing.T) {
	env := setupEnv(t)
	voters := NewVoterHandler(env.store, env.metrics, env.cfg)
	h := NewAuditHandler(env.store, env.metrics)

	pdm := env.login(t, "pdm1_lb")
	admin := env.login(t, "admin")

	tag := func(headers map[string]string, id int64, t2 models.Tag) {
		req := testutil.MakeRequest("PATCH", voterPath(id), models.UpdateTagRequest{Tag: &t2}, headers)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.SetPathValue("id", strconv.FormatInt(id, 10))
		testutil.AssertStatus(t, env.serve(voters.UpdateTag, req), http.StatusOK)
	}
	tag(pdm, env.limbahau[0], models.TagYes)
	tag(pdm, env.limbahau[0], models.TagNo)
	tag(admin, env.kawang[0], models.TagUnsure)

	tests := []struct {
		name           string
		headers        map[string]string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"admin sees everything", admin, "", http.StatusOK, 3},
		{"filtered by actor", admin, "?user_id=" + env.pdm.ID, http.StatusOK, 2},
		{"filtered by voter", admin, "?voter_id=" + strconv.FormatInt(env.kawang[0], 10), http.StatusOK, 1},
		{"second page is empty", admin, "?page=2", http.StatusOK, 0},
		{"bad voter id", admin, "?voter_id=x", http.StatusBadRequest, 0},
		{"page offset overflows", admin, "?page=9223372036854775807", http.StatusBadRequest, 0},
		{"unknown kind", admin, "?kind=logins", http.StatusBadRequest, 0},
		{"pdm may not read the trail", pdm, "", http.StatusForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(h.AuditLog, testutil.MakeRequest("GET", "/api/audit-logs"+tt.query, nil, tt.headers))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var page models.AuditPage
			testutil.AssertJSON(t, w, &page)
			if len(page.Data) != tt.expectedCount {
				t.Errorf("Expected %d entries, got %d", tt.expectedCount, len(page.Data))
			}
		})
	}

	// Newest first with old and new values
	w := env.serve(h.AuditLog, testutil.MakeRequest("GET", "/api/audit-logs?user_id="+env.pdm.ID, nil, admin))
	var page models.AuditPage
	testutil.AssertJSON(t, w, &page)
	if len(page.Data) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(page.Data))
	}
	latest := page.Data[0]
	if latest.OldValue == nil || *latest.OldValue != "Yes" || latest.NewValue == nil || *latest.NewValue != "No" {
		t.Errorf("Unexpected latest entry %+v", latest)
	}
	if latest.Username != "pdm1_lb" || latest.Field != models.FieldTag {
		t.Errorf("Unexpected actor or field in %+v", latest)
	}
	if page.Data[1].OldValue != nil {
		t.Errorf("Expected the first change to start from untagged")
	}
}

func TestMyActivity(t *testing.T) {
	env := setupEnv(t)
	voters := NewVoterHandler(env.store, env.metrics, env.cfg)
	h := NewAuditHandler(env.store, env.metrics)

	pdm := env.login(t, "pdm1_lb")
	cand := env.login(t, "cand_kw")

	for _, id := range env.limbahau {
		req := testutil.MakeRequest("PATCH", voterPath(id), models.UpdateTagRequest{Tag: tagPtr(models.TagYes)}, pdm)
		req.SetPathValue("id", strconv.FormatInt(id, 10))
		testutil.AssertStatus(t, env.serve(voters.UpdateTag, req), http.StatusOK)
	}

	tests := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"own changes", pdm, 3},
		{"nothing yet", cand, 0},
		{"read only principal", env.login(t, "asst_lb"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(h.MyActivity, testutil.MakeRequest("GET", "/api/me/activity", nil, tt.headers))

			testutil.AssertStatus(t, w, http.StatusOK)
			var page models.AuditPage
			testutil.AssertJSON(t, w, &page)
			if page.Data == nil {
				t.Error("Expected an empty list rather than null")
			}
			if len(page.Data) != tt.expected {
				t.Errorf("Expected %d entries, got %d", tt.expected, len(page.Data))
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	env := setupEnv(t)
	voters := NewVoterHandler(env.store, env.metrics, env.cfg)
	h := NewAuditHandler(env.store, env.metrics)

	pdm := env.login(t, "pdm1_lb")
	admin := env.login(t, "admin")

	testutil.AssertStatus(t, env.serve(voters.ListVoters, testutil.MakeRequest("GET", "/api/voters", nil, pdm)), http.StatusOK)
	testutil.AssertStatus(t, env.serve(voters.Stats, testutil.MakeRequest("GET", "/api/stats", nil, pdm)), http.StatusOK)

	get := func(id int64, expectedStatus int) {
		req := testutil.MakeRequest("GET", voterPath(id), nil, pdm)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.SetPathValue("id", strconv.FormatInt(id, 10))
		testutil.AssertStatus(t, env.serve(voters.GetVoter, req), expectedStatus)
	}
	get(env.limbahau[0], http.StatusOK)
	get(env.kawang[0], http.StatusNotFound) // refused reads are not logged

	tests := []struct {
		name           string
		headers        map[string]string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{"every read", admin, "?kind=access", http.StatusOK, 3},
		{"reads of one voter", admin, "?kind=access&voter_id=" + strconv.FormatInt(env.limbahau[0], 10), http.StatusOK, 1},
		{"reads by another actor", admin, "?kind=access&user_id=" + env.admin.ID, http.StatusOK, 0},
		{"pdm may not read the log", pdm, "?kind=access", http.StatusForbidden, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(h.AuditLog, testutil.MakeRequest("GET", "/api/audit-logs"+tt.query, nil, tt.headers))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var page models.AccessPage
			testutil.AssertJSON(t, w, &page)
			if len(page.Data) != tt.expectedCount {
				t.Errorf("Expected %d entries, got %d", tt.expectedCount, len(page.Data))
			}
		})
	}

	w := env.serve(h.AuditLog, testutil.MakeRequest("GET", "/api/audit-logs?kind=access", nil, admin))
	var page models.AccessPage
	testutil.AssertJSON(t, w, &page)
	if len(page.Data) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(page.Data))
	}
	latest := page.Data[0]
	if latest.Action != models.ActionView || latest.VoterID == nil || *latest.VoterID != env.limbahau[0] {
		t.Errorf("Unexpected latest entry %+v", latest)
	}
	if latest.Username != "pdm1_lb" {
		t.Errorf("Expected actor pdm1_lb, got %q", latest.Username)
	}
	if page.Data[1].Action != models.ActionViewStats || page.Data[1].VoterID != nil {
		t.Errorf("Unexpected stats entry %+v", page.Data[1])
	}

	var ipHash string
	if err := env.db.QueryRow(`SELECT ip_hash FROM access_log WHERE voter_id = ?`, env.limbahau[0]).Scan(&ipHash); err != nil {
		t.Fatal(err)
	}
	if ipHash == "" || ipHash == "203.0.113.7" {
		t.Errorf("Expected a salted hash of the client IP, got %q", ipHash)
	}

	// Reads never show up among tag changes
	w = env.serve(h.AuditLog, testutil.MakeRequest("GET", "/api/audit-logs", nil, admin))
	var changes models.AuditPage
	testutil.AssertJSON(t, w, &changes)
	if len(changes.Data) != 0 {
		t.Errorf("Expected no tag changes, got %d", len(changes.Data))
	}
}
