// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the councilvote API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(ctrl, reports, cfg)

ctrl is usually a *session.Controller and reports a *report.Compiler.

# Endpoints

Health:

	GET /health

Session reads (public):

	GET /sessions/{code}       - Session overview and agenda
	GET /sessions/{code}/tally - Per-question counts and decisions

Admin operations (require X-Admin-Key):

	GET    /sessions/{code}/participants - Participant names
	GET    /sessions/{code}/report       - Protocol or attendance list (?kind=)
	DELETE /sessions/{code}              - Remove the session and its data

Every session route is wrapped in middleware.WithLogging. CORS is applied
around the whole mux by the serve command.
*/
package router
