// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/councilvote/cliparse"
	"github.com/danielhkuo/councilvote/handlers"
	"github.com/danielhkuo/councilvote/middleware"
)

func NewRouter(sessions handlers.Sessions, reports handlers.Reports, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	sessionHandler := handlers.NewSessionHandler(sessions, reports, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session reads (public)
	mux.HandleFunc("GET /sessions/{code}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("GET /sessions/{code}/tally", middleware.WithLogging(sessionHandler.GetTally))

	// Admin operations (X-Admin-Key)
	mux.HandleFunc("GET /sessions/{code}/participants", middleware.WithLogging(sessionHandler.GetParticipants))
	mux.HandleFunc("GET /sessions/{code}/report", middleware.WithLogging(sessionHandler.GetReport))
	mux.HandleFunc("DELETE /sessions/{code}", middleware.WithLogging(sessionHandler.DeleteSession))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("councilvote API v1"))
	})

	return mux
}
