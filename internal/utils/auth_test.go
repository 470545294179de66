package utils

import (
	"testing"
	"time"
)

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"

	token, err := GenerateToken("planning-board", RolePlanner, secret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("Token should not be empty")
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims["sub"] != "planning-board" {
		t.Errorf("Expected sub 'planning-board', got %v", claims["sub"])
	}
	if claims["role"] != RolePlanner {
		t.Errorf("Expected role %q, got %v", RolePlanner, claims["role"])
	}

	if _, err := ValidateToken(token, "wrong-secret"); err == nil {
		t.Error("Token signed with another secret should not validate")
	}
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken("old", RoleViewer, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err := ValidateToken(token, "secret"); err == nil {
		t.Error("Expired token should not validate")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateToken("x", RoleAdmin, "", time.Hour); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestCanWrite(t *testing.T) {
	if !CanWrite(RoleAdmin) || !CanWrite(RolePlanner) || CanWrite(RoleViewer) {
		t.Error("Unexpected write permissions")
	}
}
