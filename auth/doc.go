// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and token generation utilities.

# Admin Keys

Admin keys use HMAC-SHA256 over the admin email:

	adminKey := auth.GenerateAdminKey(cfg.AdminEmail, cfg.AdminKeySalt)
	err := auth.ValidateAdminKey(email, cfg.AdminEmail, adminKey, cfg.AdminKeySalt)

The key is URL-safe base64 encoded without padding. Only the configured
admin email is accepted, so the key can be validated without storing it.
Print the key with:

	school-election adminkey

# Voter Tokens

Voter tokens are HMACs of the student ID plus a short check MAC:

	token := auth.VoterToken(studentID, cfg.VoterTokenSalt)
	err := auth.ValidateVoterToken(token, cfg.VoterTokenSalt)

A student always receives the same token, which is what lets the vote table
enforce one vote per role per student. Raw student IDs are never stored.

# ID Generation

Random hex IDs for roles and candidates:

	id, err := auth.GenerateID(12)  // 24 hex characters

# IP Hashing

Keys for per-client rate limiting:

	hash := auth.HashIP(ipAddress, salt)
*/
package auth
