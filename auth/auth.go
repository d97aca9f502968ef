// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Session code range, inclusive
const (
	MinSessionCode = 100000
	MaxSessionCode = 999999
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrWrongPassword   = errors.New("wrong password")
)

// GenerateSessionCode returns a random six-digit join code.
func GenerateSessionCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxSessionCode-MinSessionCode+1))
	if err != nil {
		return 0, fmt.Errorf("failed to generate session code: %w", err)
	}
	return MinSessionCode + int(n.Int64()), nil
}

// ValidSessionCode reports whether code is in the six-digit range.
func ValidSessionCode(code int) bool {
	return code >= MinSessionCode && code <= MaxSessionCode
}

// ParseSessionCode parses user input into a session code.
func ParseSessionCode(s string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !ValidSessionCode(code) {
		return 0, fmt.Errorf("invalid session code %q", s)
	}
	return code, nil
}

// CheckPassword compares the stored session password with a submitted one
// in constant time.
func CheckPassword(stored, given string) error {
	if !hmac.Equal([]byte(stored), []byte(given)) {
		return ErrWrongPassword
	}
	return nil
}

// GenerateAdminKey creates an HMAC-based admin key for a session
// This is deterministic and verifiable
func GenerateAdminKey(code int, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(strconv.Itoa(code)))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateAdminKey checks if the provided admin key is valid for the session
func ValidateAdminKey(code int, adminKey, salt string) error {
	expected := GenerateAdminKey(code, salt)
	if !hmac.Equal([]byte(adminKey), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}
