// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides session codes, password checks, and admin keys.

# Session Codes

Join codes are random six-digit integers drawn from crypto/rand:

	code, err := auth.GenerateSessionCode()  // 100000..999999
	code, err := auth.ParseSessionCode("483920")

# Passwords

Session passwords are shared secrets typed by participants. They are compared
in constant time:

	err := auth.CheckPassword(session.Password, submitted)  // ErrWrongPassword

# Admin Keys

Admin keys use HMAC-SHA256 over the session code to create deterministic,
verifiable keys for the HTTP API:

	adminKey := auth.GenerateAdminKey(code, salt)
	err := auth.ValidateAdminKey(code, adminKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same code and salt always produce the same key, so it never needs to be
stored.
*/
package auth
