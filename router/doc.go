// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the votertag API.

# Route Registration

NewRouter returns the complete handler, wrapped in request ids and CORS:

	handler := router.NewRouter(db, cfg)

# Endpoints

Public:

	GET  /health
	GET  /metrics
	POST /api/auth/login
	POST /api/auth/logout

Bearer session required (Authorization: Bearer <token>):

	GET   /api/auth/me
	POST  /api/auth/change-password
	GET   /api/voters                 - Filtered page
	GET   /api/voters/export          - CSV of the filtered set
	POST  /api/voters/tags            - Batch tag update
	GET   /api/voters/{id}
	PATCH /api/voters/{id}            - Set or clear the tag
	GET   /api/values/{column}        - area, district or constituency
	GET   /api/stats
	GET   /api/users
	POST  /api/users
	GET   /api/users/{id}
	PATCH /api/users/{id}/active
	POST  /api/users/{id}/reset-password
	GET   /api/audit-logs             - Tag changes, or reads with kind=access
	GET   /api/me/activity

# Metrics

Each router owns a Prometheus registry with the Go and process collectors
and the service counters, served on /metrics.
*/
package router
