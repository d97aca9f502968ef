// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateSessionCode(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateSessionCode()
		if err != nil {
			t.Fatalf("GenerateSessionCode() error = %v", err)
		}
		if !ValidSessionCode(code) {
			t.Fatalf("GenerateSessionCode() = %d, out of range", code)
		}
		seen[code] = true
	}

	// 200 draws from 900000 values should almost never all collide
	if len(seen) < 2 {
		t.Error("GenerateSessionCode() is not random")
	}
}

func TestParseSessionCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"valid", "483920", 483920, false},
		{"surrounding space", "  100000 ", 100000, false},
		{"upper bound", "999999", 999999, false},
		{"too short", "12345", 0, true},
		{"too long", "1000000", 0, true},
		{"not a number", "abc", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSessionCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSessionCode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		given   string
		wantErr bool
	}{
		{"match", "s3cret", "s3cret", false},
		{"mismatch", "s3cret", "s3cre7", true},
		{"case sensitive", "Secret", "secret", true},
		{"empty given", "s3cret", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPassword(tt.stored, tt.given)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrWrongPassword {
				t.Errorf("CheckPassword() error = %v, want %v", err, ErrWrongPassword)
			}
		})
	}
}

func TestGenerateAdminKey(t *testing.T) {
	tests := []struct {
		name string
		code int
		salt string
	}{
		{"standard", 483920, "secret-salt"},
		{"lower bound", 100000, "salt"},
		{"empty salt", 555555, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := GenerateAdminKey(tt.code, tt.salt)

			if key == "" {
				t.Error("GenerateAdminKey() returned empty string")
			}

			if key != GenerateAdminKey(tt.code, tt.salt) {
				t.Error("GenerateAdminKey() is not deterministic")
			}

			if key == GenerateAdminKey(tt.code+1, tt.salt) {
				t.Error("GenerateAdminKey() produced same key for different codes")
			}

			if strings.Contains(key, "=") {
				t.Error("GenerateAdminKey() contains padding characters")
			}
		})
	}
}

func TestValidateAdminKey(t *testing.T) {
	code := 483920
	salt := "test-salt"
	validKey := GenerateAdminKey(code, salt)

	tests := []struct {
		name     string
		code     int
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", code, validKey, salt, false},
		{"wrong key", code, "wrong-key", salt, true},
		{"wrong code", 483921, validKey, salt, true},
		{"wrong salt", code, validKey, "different-salt", true},
		{"empty key", code, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.code, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func BenchmarkGenerateSessionCode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateSessionCode()
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	salt := "test-salt"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GenerateAdminKey(483920, salt)
	}
}
