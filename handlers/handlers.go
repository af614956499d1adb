// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielhkuo/votertag/apperr"
	"github.com/danielhkuo/votertag/metrics"
	"github.com/danielhkuo/votertag/middleware"
	"github.com/danielhkuo/votertag/models"
)

var errInvalidJSON = fmt.Errorf("%w: invalid JSON", apperr.ErrValidation)

// actor returns the principal attached by middleware.RequireSession
func actor(r *http.Request) models.Principal {
	p, _ := middleware.Principal(r.Context())
	return p
}

// writeError writes err and counts authorization denials
func writeError(w http.ResponseWriter, m *metrics.Metrics, err error) {
	if errors.Is(err, apperr.ErrAuthorization) {
		m.IncDenied()
	}
	middleware.WriteError(w, err)
}

// voterID parses the {id} path value
func voterID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: voter id must be a positive whole number", apperr.ErrValidation)
	}
	return id, nil
}
