// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"direct", ErrNotFound, ErrNotFound},
		{"wrapped", fmt.Errorf("voter 7: %w", ErrAuthorization), ErrAuthorization},
		{"double wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrConflict)), ErrConflict},
		{"expired before authentication", fmt.Errorf("%w: %w", ErrSessionExpired, ErrAuthentication), ErrSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}
