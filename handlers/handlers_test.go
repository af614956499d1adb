// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/session"
	"github.com/danielhkuo/votertag/store"
	"github.com/danielhkuo/votertag/testutil"
)

// testEnv wires the handlers to a fresh database with two home areas.
// Limbahau has three voters and Kawang two.
type testEnv struct {
	db       *sql.DB
	cfg      cliparse.Config
	store    *store.Store
	sessions *session.Manager
	metrics  *metrics.Metrics

	admin     models.Principal
	pdm       models.Principal // Limbahau
	assistant models.Principal // Limbahau
	candidate models.Principal // Kawang

	limbahau []int64
	kawang   []int64
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	st := store.New(conn, db.DriverSQLite)
	m := metrics.New()
	env := &testEnv{
		db:       conn,
		cfg:      testutil.GetTestConfig(),
		store:    st,
		sessions: session.NewManager(st).WithMetrics(m),
		metrics:  m,
	}

	env.admin = testutil.CreateTestPrincipal(t, conn, "admin", models.RoleSuperAdmin, "")
	env.pdm = testutil.CreateTestPrincipal(t, conn, "pdm1_lb", models.RolePDM, "Limbahau")
	env.assistant = testutil.CreateTestPrincipal(t, conn, "asst_lb", models.RoleCandidateAssistant, "Limbahau")
	env.candidate = testutil.CreateTestPrincipal(t, conn, "cand_kw", models.RoleCandidate, "Kawang")

	for _, v := range []models.Voter{
		{Seq: 1, IdentityNo: "900101-12-0001", Name: "Ahmad bin Ali", BirthYear: 1990, Gender: "L", Area: "Kampung A", District: "Lok 1", HomeArea: "Limbahau"},
		{Seq: 2, IdentityNo: "600101-12-0002", Name: "Siti Aminah", BirthYear: 1960, Gender: "P", Area: "Kampung A", District: "Lok 2", HomeArea: "Limbahau"},
		{Seq: 3, IdentityNo: "000101-12-0003", Name: "Ali Hassan", BirthYear: 2000, Gender: "L", Area: "Kampung B", District: "Lok 3", HomeArea: "Limbahau"},
	} {
		env.limbahau = append(env.limbahau, testutil.CreateTestVoter(t, conn, v))
	}
	for _, v := range []models.Voter{
		{Seq: 4, IdentityNo: "800101-12-0004", Name: "Mary Jane", BirthYear: 1980, Gender: "P", Area: "Kampung C", District: "Lok 4", HomeArea: "Kawang"},
		{Seq: 5, IdentityNo: "750101-12-0005", Name: "Tan Ah Kow", BirthYear: 1975, Gender: "L", Area: "Kampung C", District: "Lok 5", HomeArea: "Kawang"},
	} {
		env.kawang = append(env.kawang, testutil.CreateTestVoter(t, conn, v))
	}

	return env
}

// login returns bearer headers for username
func (e *testEnv) login(t *testing.T, username string) map[string]string {
	t.Helper()
	return testutil.Bearer(testutil.Login(t, e.db, username))
}

// serve runs h behind the session middleware
func (e *testEnv) serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	middleware.RequireSession(e.sessions)(h)(w, req)
	return w
}

func tagPtr(t models.Tag) *models.Tag { return &t }
