package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"taash/internal/app"
	"taash/internal/config"
	"taash/internal/ports/wsrelay"
)

func main() {
	configPath := flag.String("config", "data/game_config.json", "path to game config")
	flag.Parse()

	if err := config.LoadGameConfig(*configPath); err != nil {
		log.Printf("relay: config not loaded, using defaults: %v", err)
	}

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
	tokens := app.NewTokenService(secret, issuer, time.Duration(config.GetTokenTTLMinutes())*time.Minute)

	server := wsrelay.NewServer(wsrelay.NewHub(), tokens)
	mux := http.NewServeMux()
	server.Routes(mux)

	addr := config.GetRelayListenAddr()
	log.Printf("relay: listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("relay: %v", err)
	}
}
