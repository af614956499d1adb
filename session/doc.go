// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session handles bearer sessions on both sides of the wire.

# Server side

Manager.Login verifies a username and password and opens a session with a
fixed lifetime of 72 hours. The bearer token is 32 random bytes; only its
SHA-256 is stored. Manager.Validate resolves a token to its principal:

  - unknown or revoked tokens fail with apperr.ErrNotFound
  - tokens at or past issued_at + 72h fail with apperr.ErrSessionExpired and
    the session is revoked
  - tokens whose owner was disabled fail with apperr.ErrAuthentication

Sessions are never extended. Logout is idempotent.

# Client side

ClientSession mirrors the session a client holds. ExpiryWatcher clears it
once the 72 hours have elapsed, checking at most every MaxCheckInterval.
*/
package session
