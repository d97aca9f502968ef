// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/cliparse"
	"github.com/danielhkuo/councilvote/middleware"
	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/report"
	"github.com/danielhkuo/councilvote/session"
)

// AdminKeyHeader carries the per-session admin key.
const AdminKeyHeader = "X-Admin-Key"

// Sessions is the part of session.Controller the API reads through.
type Sessions interface {
	SessionInfo(ctx context.Context, code int) (session.Info, error)
	GetFinalTally(ctx context.Context, code int) (models.FinalTally, error)
	GetParticipantsWithNames(ctx context.Context, code int) ([]models.Participant, error)
	DeleteSession(ctx context.Context, code int) error
}

// Reports renders session documents.
type Reports interface {
	Compile(ctx context.Context, code int, kind report.Kind) (report.Artifact, error)
}

type SessionHandler struct {
	sessions Sessions
	reports  Reports
	cfg      cliparse.Config
}

func NewSessionHandler(sessions Sessions, reports Reports, cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{sessions: sessions, reports: reports, cfg: cfg}
}

// GetSession handles GET /sessions/{code}
// Public: returns the session overview without the password
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	code, ok := sessionCode(w, r)
	if !ok {
		return
	}

	info, err := h.sessions.SessionInfo(r.Context(), code)
	if err != nil {
		sessionError(w, err, "failed to load session")
		return
	}

	agenda := info.Agenda
	if agenda == nil {
		agenda = []models.AgendaItem{}
	}
	middleware.JSONResponse(w, http.StatusOK, models.SessionInfoResponse{
		Session:          info.Session,
		Agenda:           agenda,
		ParticipantCount: info.ParticipantCount,
	})
}

// GetTally handles GET /sessions/{code}/tally
// Public: unreached questions are reported with zero votes
func (h *SessionHandler) GetTally(w http.ResponseWriter, r *http.Request) {
	code, ok := sessionCode(w, r)
	if !ok {
		return
	}

	t, err := h.sessions.GetFinalTally(r.Context(), code)
	if err != nil {
		sessionError(w, err, "failed to compute tally")
		return
	}
	if t.Questions == nil {
		t.Questions = []models.QuestionTally{}
	}

	middleware.JSONResponse(w, http.StatusOK, t)
}

// GetParticipants handles GET /sessions/{code}/participants
// Requires X-Admin-Key header
func (h *SessionHandler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	code, ok := h.authorize(w, r)
	if !ok {
		return
	}

	participants, err := h.sessions.GetParticipantsWithNames(r.Context(), code)
	if err != nil {
		sessionError(w, err, "failed to list participants")
		return
	}
	if participants == nil {
		participants = []models.Participant{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ParticipantsResponse{
		SessionCode:  code,
		Participants: participants,
	})
}

// GetReport handles GET /sessions/{code}/report?kind=protocol|attendance
// Requires X-Admin-Key header; kind defaults to protocol
func (h *SessionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	code, ok := h.authorize(w, r)
	if !ok {
		return
	}

	kind := report.KindProtocol
	if q := r.URL.Query().Get("kind"); q != "" {
		k, err := report.ParseKind(q)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "kind must be protocol or attendance")
			return
		}
		kind = k
	}

	doc, err := h.reports.Compile(r.Context(), code, kind)
	if err != nil {
		sessionError(w, err, "failed to compile report")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		slog.Error("failed to write report", "error", err, "session_code", code)
	}
}

// DeleteSession handles DELETE /sessions/{code}
// Requires X-Admin-Key header
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	code, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), code); err != nil {
		sessionError(w, err, "failed to delete session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DeleteSessionResponse{
		SessionCode: code,
		Message:     "Session deleted",
	})
}

// authorize parses the code and checks the admin key for it.
func (h *SessionHandler) authorize(w http.ResponseWriter, r *http.Request) (int, bool) {
	code, ok := sessionCode(w, r)
	if !ok {
		return 0, false
	}

	adminKey := r.Header.Get(AdminKeyHeader)
	if err := auth.ValidateAdminKey(code, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return 0, false
	}
	return code, true
}

func sessionCode(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("code")
	if raw == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return 0, false
	}
	code, err := auth.ParseSessionCode(raw)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code must be a 6-digit number")
		return 0, false
	}
	return code, true
}

// sessionError maps controller error classes to HTTP statuses.
func sessionError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrUnauthorized):
		middleware.ErrorResponse(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrInvalidState):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrValidation), errors.Is(err, report.ErrUnknownKind):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error(logMsg, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
	}
}

