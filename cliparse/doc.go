// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

Commands bind the server flags on their flag set and resolve the rest
from the environment after parsing:

	var cfg cliparse.Config
	cliparse.BindFlags(cmd.Flags(), &cfg)
	...
	err := cfg.Resolve()

Commands that only touch the database use BindDatabaseFlags and
Config.ResolveDatabase.

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL connection string or SQLite file (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - IPHashSalt: Secret for hashing client IPs in the audit log (required)
  - CORSOrigins: Origins allowed to call the API
  - BootstrapAdminPassword: Password for the super_admin created on an
    empty database

# CLI Flags

	-p, --port                   Server port
	-d, --database-url           Database URL
	-t, --database-type          sqlite or postgres
	--cors-origins               Allowed origins
	--ip-salt                    IP hash salt
	--bootstrap-admin-password   First admin password

# Environment Variables

Flags fall back to environment variables:

	PORT                     → -p
	DATABASE_URL             → -d
	DATABASE_TYPE            → -t
	CORS_ORIGINS             → --cors-origins
	IP_HASH_SALT             → --ip-salt
	BOOTSTRAP_ADMIN_PASSWORD → --bootstrap-admin-password

CLI flags take precedence over environment variables. LoadDotEnv reads a
.env file first without overriding variables that are already set.

# Validation

Resolve returns an error if required values are missing:

  - DATABASE_URL must be provided
  - IP_HASH_SALT must be provided
*/
package cliparse
