// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential and token utilities.

# Credentials

Secrets are hashed with bcrypt:

	hash, err := auth.HashPassword(secret)
	ok := auth.VerifyPassword(secret, hash)

CheckPasswordStrength enforces a minimum length of 8 and at least one
uppercase letter, lowercase letter, digit and symbol. Failures wrap
apperr.ErrValidation.

# Session Tokens

Session tokens are random 32-byte (256-bit) secrets:

	token, err := auth.GenerateSessionToken()

Tokens are URL-safe base64 encoded. Only HashToken(token), a SHA-256 hex
digest, is stored server side.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

Audit entries carry a salted hash of the client address:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
