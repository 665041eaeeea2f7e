package app

import (
	"testing"
	"time"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	svc := NewTokenService("secret", "taash", time.Hour)
	playerID := NewPlayerID()

	token, err := svc.GenerateToken(playerID, "ABCD")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	gotPlayer, gotRoom, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if gotPlayer != playerID || gotRoom != "ABCD" {
		t.Fatalf("claims = (%s, %s), want (%s, ABCD)", gotPlayer, gotRoom, playerID)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	svc := NewTokenService("secret", "taash", time.Hour)
	token, err := svc.GenerateToken("p1", "ABCD")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenService("other-secret", "taash", time.Hour)
		if _, _, err := other.VerifyToken(token); err == nil {
			t.Fatalf("token verified under wrong secret")
		}
	})
	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewTokenService("secret", "someone-else", time.Hour)
		if _, _, err := other.VerifyToken(token); err == nil {
			t.Fatalf("token verified under wrong issuer")
		}
	})
	t.Run("Garbage", func(t *testing.T) {
		if _, _, err := svc.VerifyToken("not.a.token"); err == nil {
			t.Fatalf("garbage token verified")
		}
	})
}

func TestGenerateTokenValidation(t *testing.T) {
	svc := NewTokenService("secret", "taash", 0)
	if _, err := svc.GenerateToken("", "ABCD"); err == nil {
		t.Fatalf("empty player id accepted")
	}
	if _, err := svc.GenerateToken("p1", ""); err == nil {
		t.Fatalf("empty room code accepted")
	}
	incomplete := NewTokenService("", "taash", time.Hour)
	if _, err := incomplete.GenerateToken("p1", "ABCD"); err == nil {
		t.Fatalf("incomplete config accepted")
	}
}

func TestNewPlayerIDUnique(t *testing.T) {
	if NewPlayerID() == NewPlayerID() {
		t.Fatalf("player ids collided")
	}
}
