// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the councilvote API.

SessionHandler reads through the Sessions and Reports interfaces, which
*session.Controller and *report.Compiler satisfy:

	h := handlers.NewSessionHandler(ctrl, reports, cfg)

# Admin Key

Sessions are created from the chat bot, which hands the admin a key derived
from the session code and ADMIN_KEY_SALT (see auth.GenerateAdminKey).
Participants, reports and deletion require it in the X-Admin-Key header; a
missing or wrong key is 401.

# Errors

Controller errors map onto statuses by class:

	session.ErrNotFound     → 404
	session.ErrUnauthorized → 401
	session.ErrInvalidState → 409
	session.ErrValidation   → 400
	anything else           → 500, logged

A malformed code in the path is 400. Bodies use models.ErrorResponse.
*/
package handlers
