package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/config"
	"github.com/onuwparty/werewolf-lobby-backend/internal/discord"
	"github.com/onuwparty/werewolf-lobby-backend/internal/httpapi"
	"github.com/onuwparty/werewolf-lobby-backend/internal/hub"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, log)
	dc := discord.NewClient(cfg.DiscordClientID, cfg.DiscordClientSecret)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, dc, log, cfg.AllowedOrigins)

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
