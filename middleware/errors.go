// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/models"
)

// Error codes returned in the code field
const (
	CodeUnauthenticated = "unauthenticated"
	CodeSessionExpired  = "session_expired"
	CodeForbidden       = "forbidden"
	CodeInvalid         = "invalid_request"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeInternal        = "internal"
)

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrSessionExpired, apperr.ErrAuthentication:
		return http.StatusUnauthorized
	case apperr.ErrAuthorization:
		return http.StatusForbidden
	case apperr.ErrValidation:
		return http.StatusBadRequest
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// CodeFor maps an error to its code
func CodeFor(err error) string {
	switch apperr.Kind(err) {
	case apperr.ErrSessionExpired:
		return CodeSessionExpired
	case apperr.ErrAuthentication:
		return CodeUnauthenticated
	case apperr.ErrAuthorization:
		return CodeForbidden
	case apperr.ErrValidation:
		return CodeInvalid
	case apperr.ErrNotFound:
		return CodeNotFound
	case apperr.ErrConflict:
		return CodeConflict
	}
	return CodeInternal
}

// MessageFor is the client-facing message for err. Denials are generic so
// they never describe the row that was refused.
func MessageFor(err error) string {
	kind := apperr.Kind(err)
	switch kind {
	case nil:
		return "Internal error"
	case apperr.ErrAuthorization:
		return "Access denied"
	}

	msg := err.Error()
	if i := strings.Index(msg, kind.Error()+": "); i >= 0 {
		return msg[i+len(kind.Error())+2:]
	}
	return msg
}

// WriteError writes err as a JSON error. Unclassified errors are logged
// and reported as a bare internal error.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	JSONResponse(w, status, models.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    CodeFor(err),
		Message: MessageFor(err),
	})
}
