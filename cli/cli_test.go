// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/cliparse"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/session"
	"github.com/danielhkuo/votertag/store"
	"github.com/danielhkuo/votertag/testutil"
)

const roll = `BIL,NO K/P,JANTINA,TAHUN LAHIR,NAMA PEMILIH,DAERAH MENGUNDI,LOKALITI
1,900101-12-0001,L,1990,Ahmad bin Ali,Kampung A,Lok 1
2,600101-12-0002,P,1960,Siti Aminah,Kampung A,Lok 2
`

const users = `users:
  - username: pdm1_lb
    full_name: PDM Limbahau
    role: pdm
    home_area: Limbahau
    password: Ch4nge-me!
  - username: pdm1_kw
    full_name: PDM Kawang
    role: pdm
    home_area: Kawang
    password: Ch4nge-me!
`

func clearEnv(t *testing.T) {
	for _, k := range []string{"DATABASE_URL", "DATABASE_TYPE", "IP_HASH_SALT", "PORT", "CORS_ORIGINS", "BOOTSTRAP_ADMIN_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestImportSeedDiagnose(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "votertag.db")

	out, err := run(t, "", "import", writeFile(t, "roll.csv", roll), "-d", dbPath, "--home-area", "Limbahau")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 voters")

	seedFile := writeFile(t, "users.yaml", users)
	out, err = run(t, "", "seed", "-f", seedFile, "-d", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 users, skipped 0 existing")

	out, err = run(t, "", "seed", "-f", seedFile, "-d", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created 0 users, skipped 2 existing")

	out, err = run(t, "", "diagnose", "-d", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "HOME AREA")
	assert.Regexp(t, `Limbahau\s+2`, out)
	assert.Contains(t, out, `pdm1_kw (pdm) "Kawang"`)
	assert.NotContains(t, out, "pdm1_lb")
}

func TestImportErrors(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "votertag.db")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"import", filepath.Join(t.TempDir(), "nope.csv"), "-d", dbPath}},
		{"missing column", []string{"import", writeFile(t, "bad.csv", "BIL,NAMA PEMILIH\n1,Ahmad\n"), "-d", dbPath}},
		{"no argument", []string{"import", "-d", dbPath}},
		{"no database", []string{"import", writeFile(t, "roll.csv", roll)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestPasswd(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "votertag.db")
	_, err := run(t, "", "seed", "-f", writeFile(t, "users.yaml", users), "-d", dbPath)
	require.NoError(t, err)

	tests := []struct {
		name    string
		user    string
		stdin   string
		wantErr error
	}{
		{"mismatch", "pdm1_lb", "N3w-Passw0rd!\nN3w-Passw0rd?\n", nil},
		{"weak", "pdm1_lb", "password\npassword\n", apperr.ErrValidation},
		{"unknown user", "ghost", "N3w-Passw0rd!\nN3w-Passw0rd!\n", apperr.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, "passwd", tt.user, "-d", dbPath)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	out, err := run(t, "N3w-Passw0rd!\nN3w-Passw0rd!\n", "passwd", "pdm1_lb", "-d", dbPath, "--must-change")
	require.NoError(t, err)
	assert.Contains(t, out, "Password updated for pdm1_lb")

	conn, err := db.Open(db.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer conn.Close()

	sessions := session.NewManager(store.New(conn, db.DriverSQLite))
	_, err = sessions.Login(t.Context(), "pdm1_lb", "Ch4nge-me!")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	res, err := sessions.Login(t.Context(), "pdm1_lb", "N3w-Passw0rd!")
	require.NoError(t, err)
	assert.True(t, res.Response().MustChangePassword)
}

func TestBootstrapAdmin(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn, db.DriverSQLite)
	ctx := t.Context()

	created, err := bootstrapAdmin(ctx, st, "")
	require.NoError(t, err)
	assert.False(t, created, "no password, no admin")

	_, err = bootstrapAdmin(ctx, st, "admin")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	created, err = bootstrapAdmin(ctx, st, "Adm1n-Passw0rd")
	require.NoError(t, err)
	assert.True(t, created)

	p, err := st.PrincipalByUsername(ctx, BootstrapAdminUsername)
	require.NoError(t, err)
	assert.True(t, p.MustChangePassword)
	assert.Empty(t, p.HomeArea)

	created, err = bootstrapAdmin(ctx, st, "Adm1n-Passw0rd")
	require.NoError(t, err)
	assert.False(t, created, "only on an empty database")
}

func TestServe(t *testing.T) {
	cfg := cliparse.Config{
		DatabaseURL:            filepath.Join(t.TempDir(), "votertag.db"),
		DatabaseType:           db.DriverSQLite,
		IPHashSalt:             "test-ip-salt",
		BootstrapAdminPassword: "Adm1n-Passw0rd",
	}

	ctx, cancel := context.WithCancel(t.Context())
	ready := make(chan net.Addr, 1)
	errc := make(chan error, 1)
	go func() { errc <- serveRun(ctx, cfg, ready) }()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-errc:
		t.Fatalf("server did not start: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not start")
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", addr.(*net.TCPAddr).Port)
	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The bootstrap admin can log in
	resp, err = http.Post(base+"/api/auth/login", "application/json",
		strings.NewReader(`{"username":"admin","password":"Adm1n-Passw0rd"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}
}
