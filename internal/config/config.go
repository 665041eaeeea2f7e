package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RelayConfig configures the standalone websocket relay.
type RelayConfig struct {
	ListenAddr     string   `json:"listen_addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// GameConfig holds the room and token settings shared by both relay flavors.
type GameConfig struct {
	RoomCodeLength  int    `json:"room_code_length"`
	TokenSecret     string `json:"token_secret"`
	TokenIssuer     string `json:"token_issuer"`
	TokenTTLMinutes int    `json:"token_ttl_minutes"`

	Relay RelayConfig `json:"relay"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the configuration from the given path. Later calls
// return the first result.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global configuration, or nil before loading.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetRoomCodeLength returns the configured room code length with a safe
// default.
func GetRoomCodeLength() int {
	if cfg == nil || cfg.RoomCodeLength <= 0 {
		return 4
	}
	return cfg.RoomCodeLength
}

// GetTokenTTLMinutes returns the session token lifetime with a safe default.
func GetTokenTTLMinutes() int {
	if cfg == nil || cfg.TokenTTLMinutes <= 0 {
		return 60
	}
	return cfg.TokenTTLMinutes
}

// GetRelayListenAddr returns the websocket relay bind address.
func GetRelayListenAddr() string {
	if cfg == nil || cfg.Relay.ListenAddr == "" {
		return ":8350"
	}
	return cfg.Relay.ListenAddr
}

// GetRelayAllowedOrigins returns the origins the relay accepts upgrades
// from. Empty means same-origin only.
func GetRelayAllowedOrigins() []string {
	if cfg == nil {
		return nil
	}
	return cfg.Relay.AllowedOrigins
}
