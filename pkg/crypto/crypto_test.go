package crypto

import (
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2abc")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !VerifyPassword(hash, "hunter2abc") {
		t.Fatal("expected password verification to succeed")
	}

	if VerifyPassword(hash, "incorrect") {
		t.Fatal("expected password verification to fail")
	}
}

func TestPasswordHashCost(t *testing.T) {
	hash, err := HashPassword("hunter2abc")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	// bcrypt embeds the cost in the hash prefix: $2a$12$...
	if !strings.HasPrefix(hash, "$2a$12$") {
		t.Fatalf("expected cost 12 hash prefix, got %s", hash[:7])
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if VerifyPassword("not-a-bcrypt-hash", "anything") {
		t.Fatal("expected malformed hash to verify as false")
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if len(token) == 0 {
		t.Fatal("expected token to be non-empty")
	}

	other, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if token == other {
		t.Fatal("expected distinct tokens from successive calls")
	}
}
