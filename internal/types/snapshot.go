package types

import (
	"time"

	"github.com/onuwparty/werewolf-lobby-backend/internal/game"
	"github.com/onuwparty/werewolf-lobby-backend/internal/roles"
	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
)

// LobbySnapshot is the externally visible projection of a room's state,
// broadcast to every connection after each mutation. Secret draws are
// never part of it.
type LobbySnapshot struct {
	RoomID         string       `json:"roomId"`
	CreatedAt      string       `json:"createdAt"` // RFC 3339
	Players        []PlayerView `json:"players"`
	AvailableRoles []roles.Role `json:"availableRoles"`
	SelectedRoles  []string     `json:"selectedRoles"`
	IsConfigValid  bool         `json:"isConfigValid"`
	Phase          string       `json:"phase"`
}

type PlayerView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
	IsReady     bool   `json:"isReady"`
}

// NewLobbyState wraps a state snapshot into the broadcast envelope.
func NewLobbyState(version int, s session.State) ServerMessage {
	players := make([]PlayerView, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerView{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			AvatarRef:   p.AvatarRef,
			IsReady:     p.Ready,
		}
	}

	return ServerMessage{
		Type:    "lobby_state",
		Version: version,
		State: &LobbySnapshot{
			RoomID:         s.RoomID,
			CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339),
			Players:        players,
			AvailableRoles: s.AvailableRoles,
			SelectedRoles:  s.SelectedRoles,
			IsConfigValid:  s.ConfigValid,
			Phase:          string(s.Phase),
		},
	}
}

// NewRoleAssigned builds the private reply to fetch_role.
func NewRoleAssigned(r game.SecretRole) ServerMessage {
	return ServerMessage{
		Type:         "role_assigned",
		AssignedRole: r.AssignedRole,
		CurrentRole:  r.CurrentRole,
	}
}

// NewError builds a connection-local error frame.
func NewError(msg string) ServerMessage {
	return ServerMessage{Type: "error", Error: msg}
}
