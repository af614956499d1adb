// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cli implements the votertag command line.

	votertag serve                       run the API server
	votertag import roll.csv             load an electoral roll
	votertag seed -f users.yaml          create users from YAML
	votertag passwd <username>           set a password
	votertag diagnose                    check home areas against the roll

Every command takes -d/--database-url and -t/--database-type, falling back
to DATABASE_URL and DATABASE_TYPE. A .env file in the working directory is
loaded first; --env-file names others. Logs are JSON on stderr and --debug
lowers the level to debug.

On an empty database serve creates a super_admin named "admin" from
BOOTSTRAP_ADMIN_PASSWORD, flagged to change its password at first login.
*/
package cli
