package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/discord"
)

// TokenExchange trades the client's Discord authorization code for an
// access token. This happens before any room is joined; a failure here
// is a setup failure for that one client, nothing more.
func TokenExchange(dc *discord.Client, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
			writeJSONError(w, http.StatusBadRequest, "authorization code is required")
			return
		}

		token, err := dc.ExchangeCode(r.Context(), body.Code)
		if err != nil {
			if errors.Is(err, discord.ErrNoAccessToken) {
				writeJSONError(w, http.StatusBadRequest, "invalid response from Discord API")
				return
			}
			log.Error("token exchange failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "failed to exchange token")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			AccessToken string `json:"access_token"`
		}{AccessToken: token})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg})
}
