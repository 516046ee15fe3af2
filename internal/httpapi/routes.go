package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/discord"
	"github.com/onuwparty/werewolf-lobby-backend/internal/hub"
	"github.com/onuwparty/werewolf-lobby-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, dc *discord.Client, log *zap.Logger, originPatterns []string) http.Handler {
	r := chi.NewRouter()

	r.Post("/api/token", TokenExchange(dc, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log, originPatterns))
	return r
}
