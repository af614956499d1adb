// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package seed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/db"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/store"
)

const seedYAML = `
users:
  - username: admin
    full_name: Administrator
    role: super_admin
    password: Adm1n-Passw0rd
  - username: pdm1_lb
    full_name: PDM Limbahau 1
    role: pdm
    home_area: Limbahau
    password: Pdm1-Passw0rd
    must_change_password: true
`

func newStore(t *testing.T) *store.Store {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.CreateSchema(conn, db.DriverSQLite))
	return store.New(conn, db.DriverSQLite)
}

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	assert.Equal(t, models.RoleSuperAdmin, f.Users[0].Role)
	assert.Equal(t, "Limbahau", f.Users[1].HomeArea)
	assert.True(t, f.Users[1].MustChangePassword)

	empty, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Users)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": "users:\n  - username: a\n    dun: Limbahau\n",
		"no username":   "users:\n  - role: pdm\n",
		"duplicate":     "users:\n  - username: a\n  - username: a\n",
		"not yaml":      "users: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(data))
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestApply(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	f, err := Load(strings.NewReader(seedYAML))
	require.NoError(t, err)

	res, err := Apply(ctx, s, f)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "pdm1_lb"}, res.Created)
	assert.Empty(t, res.Skipped)

	p, err := s.PrincipalByUsername(ctx, "pdm1_lb")
	require.NoError(t, err)
	assert.Equal(t, models.RolePDM, p.Role)
	assert.True(t, p.MustChangePassword)
	assert.True(t, auth.VerifyPassword("Pdm1-Passw0rd", p.PasswordHash))

	// Second run leaves existing users alone
	res, err = Apply(ctx, s, f)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"admin", "pdm1_lb"}, res.Skipped)
}

func TestApplyRejectsInvalidUsers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := Apply(ctx, s, File{Users: []User{{Username: "weak", Role: models.RolePDM, HomeArea: "Kawang", Password: "short"}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Apply(ctx, s, File{Users: []User{{Username: "noarea", Role: models.RolePDM, Password: "Str0ng-Passw0rd"}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
