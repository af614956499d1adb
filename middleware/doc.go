// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /api/voters", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms). WithRequestID tags each request and response with
X-Request-ID, and the id is included in both log lines.

# Sessions

RequireSession validates the bearer token and puts the principal in the
request context:

	protected := middleware.RequireSession(sessions)
	mux.HandleFunc("GET /api/auth/me", protected(h.Me))

	p, _ := middleware.Principal(r.Context())

A missing or unknown token is 401 with code "unauthenticated"; an expired
session is 401 with code "session_expired".

# Errors

WriteError maps apperr kinds to status codes:

	ErrAuthentication, ErrSessionExpired → 401
	ErrAuthorization                     → 403 "Access denied"
	ErrValidation                        → 400
	ErrNotFound                          → 404
	ErrConflict                          → 409
	anything else                        → 500, logged

# CORS Middleware

	handler := middleware.CORS(cfg.CORSOrigins)(mux)

With no origins configured every origin is reflected without
credentials. Allows methods GET,
POST, PUT, PATCH, DELETE, OPTIONS with headers Content-Type, Authorization,
X-Request-ID.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.WriteError(w, err)

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		...
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used for the salted IP hash stored with audit entries.
*/
package middleware
