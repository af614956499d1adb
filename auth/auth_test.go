// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielhkuo/votertag/apperr"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateSessionToken(t *testing.T) {
	token, err := GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	// 32 bytes base64 without padding = 43 chars
	if len(token) != 43 {
		t.Errorf("GenerateSessionToken() length = %d, want 43", len(token))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("GenerateSessionToken() is not URL-safe: %s", token)
	}

	other, _ := GenerateSessionToken()
	if token == other {
		t.Error("GenerateSessionToken() produced duplicate tokens")
	}
}

func TestHashToken(t *testing.T) {
	h1, err := HashToken("abc")
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	if len(h1) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(h1))
	}

	h2, _ := HashToken("abc")
	if h1 != h2 {
		t.Error("HashToken() is not deterministic")
	}

	h3, _ := HashToken("abd")
	if h1 == h3 {
		t.Error("HashToken() produced same hash for different tokens")
	}

	for _, bad := range []string{"", "has space", "tab\there"} {
		if _, err := HashToken(bad); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("HashToken(%q) error = %v, want ErrInvalidToken", bad, err)
		}
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "Sup3r$ecret" {
		t.Fatal("HashPassword() returned the plain secret")
	}

	if !VerifyPassword("Sup3r$ecret", hash) {
		t.Error("VerifyPassword() rejected the correct secret")
	}
	if VerifyPassword("sup3r$ecret", hash) {
		t.Error("VerifyPassword() accepted a wrong secret")
	}
	if VerifyPassword("anything", "") {
		t.Error("VerifyPassword() accepted an empty hash")
	}
	if VerifyPassword("anything", "not-a-bcrypt-hash") {
		t.Error("VerifyPassword() accepted a malformed hash")
	}
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"strong", "Admin123!", false},
		{"unicode upper", "Émile#2024x", false},
		{"too short", "Ab1!", true},
		{"no upper", "admin123!", true},
		{"no lower", "ADMIN123!", true},
		{"no digit", "AdminAdmin!", true},
		{"no symbol", "Admin1234", true},
		{"too long", "Aa1!" + strings.Repeat("x", 80), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckPasswordStrength() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("CheckPasswordStrength() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestHashIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		salt string
	}{
		{"ipv4", "192.168.1.1", "salt"},
		{"ipv6", "2001:db8::1", "salt"},
		{"empty salt", "10.0.0.1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := HashIP(tt.ip, tt.salt)

			// Should be 16 hex characters (8 bytes * 2)
			if len(hash) != 16 {
				t.Errorf("HashIP() length = %d, want 16", len(hash))
			}

			hash2 := HashIP(tt.ip, tt.salt)
			if hash != hash2 {
				t.Error("HashIP() is not deterministic")
			}
		})
	}

	if HashIP("", "salt") != "" {
		t.Error("HashIP() should return empty string for empty IP")
	}

	hash1 := HashIP("192.168.1.1", "salt")
	hash2 := HashIP("192.168.1.2", "salt")
	if hash1 == hash2 {
		t.Error("HashIP() produced same hash for different IPs")
	}

	hash3 := HashIP("192.168.1.1", "salt1")
	hash4 := HashIP("192.168.1.1", "salt2")
	if hash3 == hash4 {
		t.Error("HashIP() produced same hash for different salts")
	}
}

// Benchmark tests
func BenchmarkGenerateID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateID(16)
	}
}

func BenchmarkGenerateSessionToken(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateSessionToken()
	}
}
