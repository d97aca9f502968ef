// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/danielhkuo/councilvote/report"
)

// maxMessageLength is Telegram's limit on one text message, in characters.
const maxMessageLength = 4096

// Handler consumes decoded updates.
type Handler interface {
	Handle(ctx context.Context, u Update)
}

// Telegram is the Bot API transport: long polling in, messages and documents out.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Telegram{api: api, logger: logger}, nil
}

// Run polls for updates until ctx is cancelled. Updates from one user are
// handled one at a time in the order Telegram delivered them; different users
// run concurrently. A panic in one handler is logged and does not stop the loop.
func (t *Telegram) Run(ctx context.Context, h Handler) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)

	queue := newUserQueue()
	defer queue.wait()

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || upd.Message.From == nil || upd.Message.Chat == nil {
				continue
			}
			u := Update{
				UserID: upd.Message.From.ID,
				ChatID: upd.Message.Chat.ID,
				Text:   upd.Message.Text,
			}
			updateID := upd.UpdateID
			queue.push(u.UserID, func() {
				t.handle(ctx, h, updateID, u)
			})
		}
	}
}

func (t *Telegram) handle(ctx context.Context, h Handler, updateID int, u Update) {
	requestID := uuid.NewString()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic handling update",
				"request_id", requestID,
				"update_id", updateID,
				"user_id", u.UserID,
				"panic", r,
			)
		}
	}()
	t.logger.Debug("update received", "request_id", requestID, "update_id", updateID, "user_id", u.UserID)
	h.Handle(ctx, u)
}

func (t *Telegram) Send(_ context.Context, chatID int64, text string, options []string, removeKeyboard bool) error {
	parts := splitMessage(text, maxMessageLength)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		// The keyboard goes on the last part so it stays under the latest message.
		if i == len(parts)-1 {
			switch {
			case len(options) > 0:
				msg.ReplyMarkup = keyboard(options)
			case removeKeyboard:
				msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
			}
		}
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("send message to %d: %w", chatID, err)
		}
	}
	return nil
}

func (t *Telegram) SendDocument(_ context.Context, chatID int64, doc report.Artifact) error {
	file := tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Body}
	if _, err := t.api.Send(tgbotapi.NewDocument(chatID, file)); err != nil {
		return fmt.Errorf("send document to %d: %w", chatID, err)
	}
	return nil
}

func keyboard(options []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(options))
	for _, o := range options {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(o)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// splitMessage cuts text into parts of at most limit characters, preferring
// line breaks.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > 0 {
			if n+len(runes) <= limit {
				cur.WriteString(string(runes))
				n += len(runes)
				break
			}
			if n > 0 {
				flush()
				continue
			}
			cur.WriteString(string(runes[:limit]))
			runes = runes[limit:]
			n = limit
			flush()
		}
	}
	flush()
	return parts
}
