// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package aitext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/councilvote/models"
)

const (
	DefaultURL     = "https://api.openai.com/v1/responses"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// ErrDisabled is returned by Generate when no API key is configured.
var ErrDisabled = errors.New("text generation is not configured")

type Config struct {
	APIKey     string
	Model      string
	URL        string
	HTTPClient *http.Client
}

// Helper generates short texts through a Responses-compatible endpoint.
type Helper struct {
	cfg Config
}

func New(cfg Config) *Helper {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Helper{cfg: cfg}
}

func (h *Helper) Enabled() bool {
	return h != nil && h.cfg.APIKey != ""
}

// Generate sends prompt to the model and returns its text output.
func (h *Helper) Generate(ctx context.Context, prompt string) (string, error) {
	if !h.Enabled() {
		return "", ErrDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	body, err := json.Marshal(map[string]any{
		"model": h.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	res, err := h.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if text := strings.TrimSpace(payload.OutputText); text != "" {
		return text, nil
	}
	for _, item := range payload.Output {
		for _, content := range item.Content {
			if text := strings.TrimSpace(content.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", fmt.Errorf("response has no output text")
}

// AnnouncementPrompt asks for a short social media post about a session.
func AnnouncementPrompt(sess models.Session, agenda []models.AgendaItem, note string) string {
	var b strings.Builder
	b.WriteString("Write a short, friendly social media post announcing the results of a youth council meeting. ")
	b.WriteString("Use plain text without hashtags. Keep it under 120 words.\n\n")
	fmt.Fprintf(&b, "Meeting: %s\n", sess.Name)
	if sess.SessionType != "" {
		fmt.Fprintf(&b, "Type: %s\n", sess.SessionType)
	}
	if len(agenda) > 0 {
		b.WriteString("Agenda:\n")
		for _, item := range agenda {
			fmt.Fprintf(&b, "%d. %s\n", item.Position, item.Description)
		}
	}
	if note = strings.TrimSpace(note); note != "" {
		fmt.Fprintf(&b, "\nAdditional notes from the organizer: %s\n", note)
	}
	return b.String()
}
