package session

import (
	"slices"
	"time"

	"github.com/onuwparty/werewolf-lobby-backend/internal/roles"
)

type Phase string

const (
	PhaseLobby          Phase = "lobby"
	PhaseRoleAssignment Phase = "role_assignment"
	// Declared for later gameplay; nothing transitions into these yet.
	PhaseNight    Phase = "night"
	PhaseDay      Phase = "day"
	PhaseVoting   Phase = "voting"
	PhaseGameOver Phase = "game_over"
)

// Playable room size. Below three the social deduction falls apart,
// above five the default catalog runs out of roles.
const (
	MinPlayers = 3
	MaxPlayers = 5
)

// CenterCount is how many selected roles stay undealt in the center.
const CenterCount = 3

type Player struct {
	UserID      string
	DisplayName string
	AvatarRef   string
	Ready       bool
}

// State is the authoritative lobby state for one room. It is not safe
// for concurrent use; the room actor is its single writer.
type State struct {
	RoomID         string
	CreatedAt      time.Time
	Players        []Player // join order, unique by UserID
	AvailableRoles []roles.Role
	SelectedRoles  []string
	ConfigValid    bool
	Phase          Phase
}

// New returns a fresh lobby-phase state seeded with the default catalog.
func New(roomID string, now time.Time) State {
	available, selected := roles.DefaultCatalog()
	s := State{
		RoomID:         roomID,
		CreatedAt:      now,
		Players:        []Player{},
		AvailableRoles: available,
		SelectedRoles:  selected,
		Phase:          PhaseLobby,
	}
	s.RecomputeConfigValidity()
	return s
}

// Clone returns a deep copy that is safe to hand to another goroutine
// while this state keeps being mutated.
func (s *State) Clone() State {
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.AvailableRoles = append([]roles.Role(nil), s.AvailableRoles...)
	out.SelectedRoles = append([]string(nil), s.SelectedRoles...)
	return out
}

// AddPlayer appends p unless a player with the same UserID is already
// present (a reconnect or refresh replays the join). Reports whether the
// roster changed.
func (s *State) AddPlayer(p Player) bool {
	for _, existing := range s.Players {
		if existing.UserID == p.UserID {
			return false
		}
	}
	s.Players = append(s.Players, p)
	return true
}

// RemovePlayer drops the player with the given id, if present.
func (s *State) RemovePlayer(userID string) bool {
	for i, p := range s.Players {
		if p.UserID == userID {
			s.Players = slices.Delete(s.Players, i, i+1)
			return true
		}
	}
	return false
}

// ToggleRole flips membership of roleID in the selected set. Ids that
// are not in the catalog are ignored and reported as false.
func (s *State) ToggleRole(roleID string) bool {
	known := slices.ContainsFunc(s.AvailableRoles, func(r roles.Role) bool {
		return r.ID == roleID
	})
	if !known {
		return false
	}

	if i := slices.Index(s.SelectedRoles, roleID); i != -1 {
		s.SelectedRoles = slices.Delete(s.SelectedRoles, i, i+1)
	} else {
		s.SelectedRoles = append(s.SelectedRoles, roleID)
	}
	return true
}

// SetPlayerReady marks the player ready and reports whether the id was
// known.
func (s *State) SetPlayerReady(userID string) bool {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			s.Players[i].Ready = true
			return true
		}
	}
	return false
}

// ResetReadiness clears every ready flag. Any change to the roster or
// the role selection invalidates prior commitments to start.
func (s *State) ResetReadiness() {
	for i := range s.Players {
		s.Players[i].Ready = false
	}
}

// RecomputeConfigValidity rederives ConfigValid: one role per seated
// player plus the three center cards.
func (s *State) RecomputeConfigValidity() {
	s.ConfigValid = len(s.SelectedRoles) == len(s.Players)+CenterCount
}

// AllReady reports whether every player is ready. An empty room is
// never ready.
func (s *State) AllReady() bool {
	if len(s.Players) == 0 {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// PlayerCountPlayable reports whether the roster size is within the
// playable range.
func (s *State) PlayerCountPlayable() bool {
	return len(s.Players) >= MinPlayers && len(s.Players) <= MaxPlayers
}

// TryAdvanceToRoleAssignment moves the room out of the lobby once every
// start condition holds. The transition is one-way: calls after it has
// happened, or from any later phase, do nothing. Conditions are checked
// against current state on every call, never cached.
func (s *State) TryAdvanceToRoleAssignment() bool {
	if s.Phase != PhaseLobby {
		return false
	}
	if !s.AllReady() || !s.ConfigValid || !s.PlayerCountPlayable() {
		return false
	}
	s.Phase = PhaseRoleAssignment
	return true
}
