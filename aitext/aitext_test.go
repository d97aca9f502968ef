// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aitext

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/councilvote/models"
)

func TestGenerateDisabled(t *testing.T) {
	h := New(Config{APIKey: "  "})
	assert.False(t, h.Enabled())

	_, err := h.Generate(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrDisabled))

	var nilHelper *Helper
	assert.False(t, nilHelper.Enabled())
}

func TestNewDefaults(t *testing.T) {
	h := New(Config{APIKey: "k"})
	assert.Equal(t, DefaultURL, h.cfg.URL)
	assert.Equal(t, DefaultModel, h.cfg.Model)
	require.NotNil(t, h.cfg.HTTPClient)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{
			name:   "output_text",
			status: http.StatusOK,
			body:   `{"output_text":"  Council adopted the budget.  "}`,
			want:   "Council adopted the budget.",
		},
		{
			name:   "nested output",
			status: http.StatusOK,
			body:   `{"output":[{"content":[{"type":"output_text","text":""}]},{"content":[{"type":"output_text","text":"Nested text"}]}]}`,
			want:   "Nested text",
		},
		{
			name:    "empty output",
			status:  http.StatusOK,
			body:    `{"output":[]}`,
			wantErr: true,
		},
		{
			name:    "upstream error",
			status:  http.StatusTooManyRequests,
			body:    `{"error":"rate limited"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Model string `json:"model"`
				Input string `json:"input"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			h := New(Config{APIKey: "secret", Model: "test-model", URL: srv.URL})
			text, err := h.Generate(context.Background(), " write a post ")

			assert.Equal(t, "test-model", got.Model)
			assert.Equal(t, "write a post", got.Input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	h := New(Config{APIKey: "secret", URL: "http://127.0.0.1:0"})
	_, err := h.Generate(context.Background(), "   ")
	assert.Error(t, err)
}

func TestAnnouncementPrompt(t *testing.T) {
	p := AnnouncementPrompt(
		models.Session{Name: "Spring meeting", SessionType: "Regular"},
		[]models.AgendaItem{{Position: 1, Description: "Budget"}, {Position: 2, Description: "Elections"}},
		"record turnout",
	)
	assert.Contains(t, p, "Meeting: Spring meeting")
	assert.Contains(t, p, "Type: Regular")
	assert.Contains(t, p, "1. Budget\n2. Elections")
	assert.Contains(t, p, "record turnout")
}
