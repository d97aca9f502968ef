// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import "context"

// Notification is one outbound chat message.
type Notification struct {
	Recipient int64
	Text      string
	// Options are reply buttons shown under the message, one per row.
	Options        []string
	RemoveKeyboard bool
}

// Notifier delivers notifications. Delivery is best-effort: the controller
// logs failures and carries on.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }
