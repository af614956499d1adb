// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
)

// Validator resolves a bearer token to its principal
type Validator interface {
	Validate(ctx context.Context, token string) (models.Principal, error)
}

// BearerToken extracts the token from an Authorization: Bearer header
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireSession rejects requests without a valid session and stores the
// principal and token in the request context
func RequireSession(v Validator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				WriteError(w, apperr.ErrAuthentication)
				return
			}

			p, err := v.Validate(r.Context(), token)
			if err != nil {
				// An unknown session is an authentication failure at the edge
				if errors.Is(err, apperr.ErrNotFound) {
					err = apperr.ErrAuthentication
				}
				WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, p)
			ctx = context.WithValue(ctx, tokenKey, token)
			next(w, r.WithContext(ctx))
		}
	}
}

// Principal returns the principal stored by RequireSession
func Principal(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

// Token returns the bearer token stored by RequireSession
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
