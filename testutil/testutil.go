// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/cliparse"
	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/report"
	"github.com/danielhkuo/councilvote/session"
	"github.com/danielhkuo/councilvote/store/memory"
)

// TestAdminID owns every session created by CreateTestSession.
const TestAdminID int64 = 1

// FixedTime is the clock used by SetupTestEnv.
var FixedTime = time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)

// Env bundles a controller over a fresh in-memory store.
type Env struct {
	Store      *memory.Store
	Controller *session.Controller
	Registry   *session.Registry
	Reports    *report.Compiler
	Config     cliparse.Config
}

// SetupTestEnv creates an isolated controller with a fixed clock and
// sequential session codes starting at 100001.
func SetupTestEnv(t *testing.T, opts ...session.Option) *Env {
	t.Helper()

	next := 100000
	st := memory.New()
	base := []session.Option{
		session.WithClock(func() time.Time { return FixedTime }),
		session.WithCodeGenerator(func() (int, error) {
			next++
			return next, nil
		}),
	}
	ctrl := session.NewController(st, append(base, opts...)...)

	return &Env{
		Store:      st,
		Controller: ctrl,
		Registry:   session.NewRegistry(ctrl),
		Reports:    report.NewCompiler(ctrl, nil),
		Config:     GetTestConfig(),
	}
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseType:    cliparse.DatabaseMemory,
		AdminKeySalt:    "test-admin-salt",
		RequireProposer: true,
	}
}

// CreateTestSession creates a session with the given agenda and returns its
// code and admin key. An empty agenda leaves the session in the created phase.
func CreateTestSession(t *testing.T, env *Env, agenda ...string) (code int, adminKey string) {
	t.Helper()
	ctx := context.Background()

	res, err := env.Controller.CreateSession(ctx, "Test Session", "secret", TestAdminID)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	code = res.Session.Code

	if len(agenda) > 0 {
		if _, err := env.Controller.SetAgenda(ctx, TestAdminID, code, agenda); err != nil {
			t.Fatalf("Failed to set test agenda: %v", err)
		}
	}

	return code, auth.GenerateAdminKey(code, env.Config.AdminKeySalt)
}

// JoinTestParticipants joins one participant per name with user IDs 10, 11, ...
func JoinTestParticipants(t *testing.T, env *Env, code int, names ...string) []int64 {
	t.Helper()

	ids := make([]int64, 0, len(names))
	for i, name := range names {
		id := int64(10 + i)
		if _, err := env.Registry.Join(context.Background(), code, id, name); err != nil {
			t.Fatalf("Failed to join %s: %v", name, err)
		}
		ids = append(ids, id)
	}
	return ids
}

// CastTestVotes records one vote per participant on the open question.
func CastTestVotes(t *testing.T, env *Env, code, question int, votes map[int64]models.Choice) {
	t.Helper()

	for userID, choice := range votes {
		if _, err := env.Controller.RecordVote(context.Background(), code, userID, question, choice); err != nil {
			t.Fatalf("Failed to record vote for %d: %v", userID, err)
		}
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
