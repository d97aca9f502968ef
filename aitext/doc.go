// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package aitext drafts short announcement texts with a hosted language model.
// It speaks the Responses API and is disabled when no API key is configured.
package aitext
