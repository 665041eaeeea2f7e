package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

// TokenService mints and verifies the per-device session tokens peers attach
// to join actions. The authority uses them to detect the same device joining
// a room twice.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{secret: secret, issuer: issuer, ttl: ttl}
}

// NewPlayerID returns a fresh peer identity.
func NewPlayerID() string {
	return uuid.NewString()
}

// GenerateToken signs a session token binding a peer to a room.
func (s *TokenService) GenerateToken(playerID, roomCode string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}
	if playerID == "" {
		return "", fmt.Errorf("player id is required")
	}
	if roomCode == "" {
		return "", fmt.Errorf("room code is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("token config is incomplete")
	}

	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  playerID,
		"room": roomCode,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken checks the signature and expiry and returns the bound
// player id and room code.
func (s *TokenService) VerifyToken(tokenString string) (playerID, roomCode string, err error) {
	if s == nil {
		return "", "", fmt.Errorf("token service is nil")
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid session token")
	}
	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return "", "", fmt.Errorf("unknown token issuer")
	}
	playerID, _ = claims["sub"].(string)
	roomCode, _ = claims["room"].(string)
	if playerID == "" || roomCode == "" {
		return "", "", fmt.Errorf("session token missing claims")
	}
	return playerID, roomCode, nil
}
