package types

// ClientMessage is the single inbound frame shape; Type selects which
// of the optional fields matter.
type ClientMessage struct {
	Type        string `json:"type"` // "join_lobby" | "toggle_role" | "player_ready" | "fetch_role"
	RoomID      string `json:"roomId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	RoleID      string `json:"roleId,omitempty"`
}

type ServerMessage struct {
	Type         string         `json:"type"` // "lobby_state" | "role_assigned" | "error"
	Version      int            `json:"version,omitempty"`
	State        *LobbySnapshot `json:"state,omitempty"`
	AssignedRole string         `json:"assignedRole,omitempty"`
	CurrentRole  string         `json:"currentRole,omitempty"`
	Error        string         `json:"error,omitempty"`
}
