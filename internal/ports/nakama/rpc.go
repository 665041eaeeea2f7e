package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taash/internal/app"
	"taash/internal/config"
	"taash/internal/domain"
	"taash/internal/roomcode"

	"github.com/heroiclabs/nakama-common/runtime"
)

type createRoomRequest struct {
	Variant  string `json:"variant"`
	Password string `json:"password"`
}

type createRoomResponse struct {
	MatchID      string `json:"match_id"`
	RoomCode     string `json:"room_code"`
	SessionToken string `json:"session_token"`
}

type joinRoomRequest struct {
	RoomCode string `json:"room_code"`
}

type joinRoomResponse struct {
	MatchID      string `json:"match_id"`
	Variant      string `json:"variant"`
	HasPassword  bool   `json:"has_password"`
	SessionToken string `json:"session_token"`
}

func tokenService(ctx context.Context) *app.TokenService {
	secret := "taash-dev-secret"
	issuer := "taash"
	if cfg := config.GetGameConfig(); cfg != nil {
		if cfg.TokenSecret != "" {
			secret = cfg.TokenSecret
		}
		if cfg.TokenIssuer != "" {
			issuer = cfg.TokenIssuer
		}
	}
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if v := env["taash_token_secret"]; v != "" {
			secret = v
		}
	}
	ttl := time.Duration(config.GetTokenTTLMinutes()) * time.Minute
	return app.NewTokenService(secret, issuer, ttl)
}

// RpcCreateRoom provisions a relay room for the caller.
//
// Payload: {"variant": "rung"|"thulla", "password": "..."}
// Returns: {"match_id", "room_code", "session_token"}
func RpcCreateRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req createRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", fmt.Errorf("invalid create_room payload: %w", err)
		}
	}
	variant := domain.Variant(req.Variant)
	if variant != domain.VariantRung && variant != domain.VariantThulla {
		return "", fmt.Errorf("unknown variant %q", req.Variant)
	}

	code, err := roomcode.New(config.GetRoomCodeLength())
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: Failed to generate room code: %v", userID, err)
		return "", err
	}

	params := map[string]interface{}{
		"room_code":    code,
		"variant":      string(variant),
		"has_password": req.Password != "",
	}
	matchID, err := nk.MatchCreate(ctx, MatchNameRelay, params)
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	token, err := tokenService(ctx).GenerateToken(userID, code)
	if err != nil {
		logger.Error("RpcCreateRoom [User:%s]: Failed to mint session token: %v", userID, err)
		return "", err
	}

	logger.Info("RpcCreateRoom [User:%s]: Created %s room %s (%s)", userID, variant, code, matchID)
	resp, err := json.Marshal(createRoomResponse{MatchID: matchID, RoomCode: code, SessionToken: token})
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// RpcJoinRoom resolves a join code to its relay match.
//
// Payload: {"room_code": "ABCD"}
// Returns: {"match_id", "variant", "has_password", "session_token"}
func RpcJoinRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req joinRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("invalid join_room payload: %w", err)
	}
	if !roomcode.Valid(req.RoomCode, config.GetRoomCodeLength()) {
		return "", fmt.Errorf("malformed room code %q", req.RoomCode)
	}

	limit := 1
	authoritative := true
	labelQuery := fmt.Sprintf("+label.%s:%s", MatchLabelKey_RoomCode, req.RoomCode)
	matches, err := nk.MatchList(ctx, limit, authoritative, "", nil, nil, labelQuery)
	if err != nil {
		logger.Error("RpcJoinRoom [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("room %s not found", req.RoomCode)
	}

	var label relayLabel
	if lv := matches[0].Label; lv != nil {
		if err := json.Unmarshal([]byte(lv.Value), &label); err != nil {
			logger.Warn("RpcJoinRoom [User:%s]: Unreadable label on %s: %v", userID, matches[0].MatchId, err)
		}
	}

	token, err := tokenService(ctx).GenerateToken(userID, req.RoomCode)
	if err != nil {
		logger.Error("RpcJoinRoom [User:%s]: Failed to mint session token: %v", userID, err)
		return "", err
	}

	resp, err := json.Marshal(joinRoomResponse{
		MatchID:      matches[0].MatchId,
		Variant:      label.Variant,
		HasPassword:  label.HasPassword,
		SessionToken: token,
	})
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// RegisterRPCs wires the relay RPCs into the Nakama initializer.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcIdCreateRoom, RpcCreateRoom); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcIdJoinRoom, RpcJoinRoom); err != nil {
		return err
	}
	return nil
}
