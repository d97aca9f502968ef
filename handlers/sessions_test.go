// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/session"
	"github.com/danielhkuo/councilvote/testutil"
)

// votedSession builds a session whose first question was decided 2-1.
func votedSession(t *testing.T) (*testutil.Env, *SessionHandler, int, string) {
	t.Helper()
	env := testutil.SetupTestEnv(t)
	handler := NewSessionHandler(env.Controller, env.Reports, env.Config)

	code, adminKey := testutil.CreateTestSession(t, env, "Budget", "Elections")
	ids := testutil.JoinTestParticipants(t, env, code, "Alice", "Bob", "Carol")
	_, err := env.Controller.StartVoting(context.Background(), testutil.TestAdminID, code)
	require.NoError(t, err)
	testutil.CastTestVotes(t, env, code, 0, map[int64]models.Choice{
		ids[0]: models.ChoiceFor,
		ids[1]: models.ChoiceFor,
		ids[2]: models.ChoiceAgainst,
	})
	return env, handler, code, adminKey
}

func request(method string, code int, path string, headers map[string]string) *http.Request {
	c := strconv.Itoa(code)
	req := testutil.MakeRequest(method, "/sessions/"+c+path, nil, headers)
	req.SetPathValue("code", c)
	return req
}

func TestGetSession(t *testing.T) {
	_, handler, code, _ := votedSession(t)

	tests := []struct {
		name           string
		code           string
		expectedStatus int
	}{
		{name: "existing session", code: strconv.Itoa(code), expectedStatus: http.StatusOK},
		{name: "unknown session", code: "999999", expectedStatus: http.StatusNotFound},
		{name: "malformed code", code: "abc", expectedStatus: http.StatusBadRequest},
		{name: "code out of range", code: "12345", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/sessions/"+tt.code, nil)
			req.SetPathValue("code", tt.code)
			w := httptest.NewRecorder()

			handler.GetSession(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	t.Run("response body", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetSession(w, request("GET", code, "", nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		assert.NotContains(t, w.Body.String(), "secret")

		var resp models.SessionInfoResponse
		testutil.AssertJSON(t, w, &resp)
		assert.Equal(t, code, resp.Session.Code)
		assert.Equal(t, models.PhaseQuestionClosed, resp.Session.Phase)
		assert.Equal(t, 3, resp.ParticipantCount)
		require.Len(t, resp.Agenda, 2)
		assert.Equal(t, "Budget", resp.Agenda[0].Description)
	})
}

func TestGetTally(t *testing.T) {
	_, handler, code, _ := votedSession(t)

	w := httptest.NewRecorder()
	handler.GetTally(w, request("GET", code, "/tally", nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.FinalTally
	testutil.AssertJSON(t, w, &resp)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, 3, resp.Participants)
	assert.Equal(t, models.Counts{For: 2, Against: 1, Participants: 3}, resp.Questions[0].Counts)
	assert.Equal(t, models.DecisionAdopted, resp.Questions[0].Decision)
	// The second question was never opened.
	assert.Equal(t, models.Counts{NotVoted: 3, Participants: 3}, resp.Questions[1].Counts)
	assert.Equal(t, models.DecisionNotAdopted, resp.Questions[1].Decision)
}

func TestGetParticipants(t *testing.T) {
	_, handler, code, adminKey := votedSession(t)

	tests := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
	}{
		{name: "valid admin key", headers: map[string]string{AdminKeyHeader: adminKey}, expectedStatus: http.StatusOK},
		{name: "missing admin key", expectedStatus: http.StatusUnauthorized},
		{name: "wrong admin key", headers: map[string]string{AdminKeyHeader: "nope"}, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetParticipants(w, request("GET", code, "/participants", tt.headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				var resp models.ParticipantsResponse
				testutil.AssertJSON(t, w, &resp)
				assert.Equal(t, code, resp.SessionCode)
				names := make([]string, 0, len(resp.Participants))
				for _, p := range resp.Participants {
					names = append(names, p.Name)
				}
				assert.ElementsMatch(t, []string{"Alice", "Bob", "Carol"}, names)
			}
		})
	}
}

func TestGetReport(t *testing.T) {
	_, handler, code, adminKey := votedSession(t)
	headers := map[string]string{AdminKeyHeader: adminKey}

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		contains       string
	}{
		{name: "default is protocol", expectedStatus: http.StatusOK, contains: "PROTOCOL No."},
		{name: "attendance", query: "?kind=attendance", expectedStatus: http.StatusOK, contains: "Carol"},
		{name: "kind is case-insensitive", query: "?kind=Protocol", expectedStatus: http.StatusOK, contains: "Budget"},
		{name: "unknown kind", query: "?kind=minutes", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.GetReport(w, request("GET", code, "/report"+tt.query, headers))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusOK {
				assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
				assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
				assert.Contains(t, w.Body.String(), tt.contains)
			}
		})
	}

	t.Run("requires admin key", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetReport(w, request("GET", code, "/report", nil))
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})
}

func TestDeleteSession(t *testing.T) {
	env, handler, code, adminKey := votedSession(t)
	headers := map[string]string{AdminKeyHeader: adminKey}

	w := httptest.NewRecorder()
	handler.DeleteSession(w, request("DELETE", code, "", nil))
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	w = httptest.NewRecorder()
	handler.DeleteSession(w, request("DELETE", code, "", headers))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DeleteSessionResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, code, resp.SessionCode)

	_, err := env.Controller.GetSession(context.Background(), code)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// Second delete finds nothing.
	w = httptest.NewRecorder()
	handler.DeleteSession(w, request("DELETE", code, "", headers))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

// brokenSessions fails every read with a driver-style error.
type brokenSessions struct{ err error }

func (b brokenSessions) SessionInfo(context.Context, int) (session.Info, error) {
	return session.Info{}, b.err
}

func (b brokenSessions) GetFinalTally(context.Context, int) (models.FinalTally, error) {
	return models.FinalTally{}, b.err
}

func (b brokenSessions) GetParticipantsWithNames(context.Context, int) ([]models.Participant, error) {
	return nil, b.err
}

func (b brokenSessions) DeleteSession(context.Context, int) error { return b.err }

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "not found", err: session.ErrSessionNotFound, expectedStatus: http.StatusNotFound},
		{name: "unauthorized", err: session.ErrNotAdmin, expectedStatus: http.StatusUnauthorized},
		{name: "invalid state", err: session.ErrSessionClosed, expectedStatus: http.StatusConflict},
		{name: "validation", err: session.ErrAgendaEmpty, expectedStatus: http.StatusBadRequest},
		{name: "operation failed", err: session.ErrOperationFailed, expectedStatus: http.StatusInternalServerError},
		{name: "unclassified", err: errors.New("connection reset"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSessionHandler(brokenSessions{err: tt.err}, nil, testutil.GetTestConfig())
			w := httptest.NewRecorder()
			handler.GetTally(w, request("GET", 123456, "/tally", nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			assert.Equal(t, http.StatusText(tt.expectedStatus), resp.Error)
		})
	}
}
