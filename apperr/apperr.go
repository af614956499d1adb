// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the error kinds shared by every layer.
// Callers wrap one of these with fmt.Errorf("...: %w", ...) and the HTTP
// layer classifies with errors.Is.
package apperr

import "errors"

var (
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("access denied")
	ErrSessionExpired = errors.New("session expired")
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Kind returns the sentinel err belongs to, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrSessionExpired,
		ErrAuthentication,
		ErrAuthorization,
		ErrValidation,
		ErrNotFound,
		ErrConflict,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
