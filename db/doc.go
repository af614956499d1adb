// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Two database types are supported, named after their database/sql drivers:

	DriverSQLite   = "sqlite"   // modernc.org/sqlite
	DriverPostgres = "postgres" // github.com/lib/pq

Open pings the database. SQLite gets a single connection, WAL mode, a busy
timeout and foreign keys.

# Queries

Queries are written with ? placeholders. Rebind turns them into $1, $2 ...
for PostgreSQL. ShareLock appends FOR SHARE on PostgreSQL and nothing on
SQLite, which serialises on its one connection.

# Schema Creation

	if err := db.CreateSchema(conn, driver); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - voters: the electoral roll with the tag column
  - users: principals, never deleted
  - sessions: bearer sessions keyed by the token's SHA-256
  - audit_log: append-only tag changes

# Relationships

	users 1──* sessions
	users 1──* audit_log
	voters 1──* audit_log
*/
package db
