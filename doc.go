// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the votertag API server.

votertag keeps a constituency's electoral roll and lets campaign workers
tag each voter Yes, Unsure or No. Every user belongs to a home area and
only sees and tags the voters of that area; super admins and super users
see the whole roll. Every tag change is written to an audit log in the
same transaction.

# Starting the Server

	IP_HASH_SALT=... DATABASE_URL=votertag.db go run . serve

Or with flags:

	go run . serve -p 3318 -d votertag.db --ip-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - IP_HASH_SALT (--ip-salt): Secret for hashing client IPs in the audit log

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - CORS_ORIGINS (--cors-origins): Allowed browser origins
  - BOOTSTRAP_ADMIN_PASSWORD: Creates the first super_admin on an empty database

# Architecture

  - cli: cobra commands (serve, import, seed, passwd, diagnose)
  - router: Route definitions using Go 1.22+ routing
  - handlers: HTTP request handlers (auth, voters, users, audit)
  - middleware: Sessions, CORS, logging, request ids, JSON helpers
  - session: Server side sessions and the client side session mirror
  - store: Transactions, area scoping and audit writes
  - policy, query, audit: Access rules, filters and the audit trail
  - client: Go API client
  - db, models, auth, cliparse: Schema, types, credentials, configuration

See package documentation for each component.
*/
package main
