package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := GenerateJWT(secret, userID, "artist", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "artist" {
		t.Errorf("role = %s, want artist", claims.Role)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret-a", uuid.New(), "organizer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Error("expected error for mismatched secret")
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token, err := GenerateJWT("secret", uuid.New(), "artist", time.Nanosecond)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseJWT("secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}
