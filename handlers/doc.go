// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the votertag API.

# Handler Types

Each handler is a struct over the store and the metrics:

  - AuthHandler: login, logout, current principal, password change
  - VoterHandler: voter listing, tagging, export, distinct values, stats
  - UserHandler: principal administration
  - AuditHandler: audit trail, read-access log and the caller's own activity

Handlers are created via constructor functions:

	voterHandler := handlers.NewVoterHandler(st, m, cfg)

Every handler except Login and Logout expects middleware.RequireSession in
front of it and reads the acting principal from the request context. The
store checks the policy; handlers only translate requests and errors.

# Errors

Errors from the store carry an apperr kind and are written with
middleware.WriteError. Denials are counted in the metrics and always read
"Access denied".

# Batch Tagging

	POST /api/voters/tags → BatchUpdateTag

Each item is applied in its own transaction and reported with its own
status code, so one denied voter does not fail the batch.

# Export

	GET /api/voters/export → ExportVoters

Streams the whole filtered set as CSV with a Content-Disposition file name.
*/
package handlers
