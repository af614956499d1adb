// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package seed creates principals from a YAML file.
//
//	users:
//	  - username: pdm1_lb
//	    full_name: PDM Limbahau 1
//	    role: pdm
//	    home_area: Limbahau
//	    password: Ch4nge-me!
//	    must_change_password: true
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/auth"
	"github.com/danielhkuo/votertag/models"
	"github.com/danielhkuo/votertag/store"
)

type File struct {
	Users []User `yaml:"users"`
}

type User struct {
	Username           string      `yaml:"username"`
	FullName           string      `yaml:"full_name"`
	Email              string      `yaml:"email"`
	Role               models.Role `yaml:"role"`
	HomeArea           string      `yaml:"home_area"`
	Password           string      `yaml:"password"`
	MustChangePassword bool        `yaml:"must_change_password"`
}

// Load parses a seed file, rejecting unknown fields
func Load(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: failed to parse YAML: %v", apperr.ErrValidation, err)
	}

	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		if u.Username == "" {
			return File{}, fmt.Errorf("%w: users[%d]: username is required", apperr.ErrValidation, i)
		}
		if seen[u.Username] {
			return File{}, fmt.Errorf("%w: users[%d]: duplicate username %q", apperr.ErrValidation, i, u.Username)
		}
		seen[u.Username] = true
	}
	return f, nil
}

// PrincipalStore is the part of the store the seeder needs
type PrincipalStore interface {
	PrincipalByUsername(ctx context.Context, username string) (models.Principal, error)
	InsertPrincipal(ctx context.Context, np store.NewPrincipal) (models.Principal, error)
}

// Result counts what Apply did
type Result struct {
	Created []string
	Skipped []string
}

// Apply creates every user that does not exist yet. Existing usernames are
// left untouched.
func Apply(ctx context.Context, s PrincipalStore, f File) (Result, error) {
	var res Result
	for _, u := range f.Users {
		_, err := s.PrincipalByUsername(ctx, u.Username)
		if err == nil {
			slog.Info("user exists, skipping", "username", u.Username)
			res.Skipped = append(res.Skipped, u.Username)
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return res, err
		}

		if err := auth.CheckPasswordStrength(u.Password); err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return res, err
		}

		p, err := s.InsertPrincipal(ctx, store.NewPrincipal{
			Username:           u.Username,
			FullName:           u.FullName,
			Email:              u.Email,
			Role:               u.Role,
			HomeArea:           u.HomeArea,
			PasswordHash:       hash,
			MustChangePassword: u.MustChangePassword,
		})
		if err != nil {
			return res, fmt.Errorf("user %s: %w", u.Username, err)
		}
		slog.Info("user created", "username", p.Username, "role", p.Role, "home_area", p.HomeArea)
		res.Created = append(res.Created, p.Username)
	}
	return res, nil
}
