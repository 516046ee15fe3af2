package game

import (
	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
)

// Source supplies the randomness for the deal. *rand.Rand satisfies it;
// tests inject seeded sources to pin down permutations.
type Source interface {
	Intn(n int) int
}

// SecretRole is one player's private draw. AssignedRole is what they
// were dealt; CurrentRole is their effective role, which night actions
// in later phases may change. At deal time the two are equal.
type SecretRole struct {
	AssignedRole string
	CurrentRole  string
}

// State holds the result of a room's one-time deal.
type State struct {
	RoomID      string
	Assignments map[string]SecretRole
	CenterCards []string
}

// Shuffle returns a uniformly random permutation of ids without
// modifying the input (Fisher-Yates).
func Shuffle(ids []string, rng Source) []string {
	shuffled := make([]string, len(ids))
	copy(shuffled, ids)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// Deal shuffles the selected roles and hands one to each player in join
// order; whatever is left over becomes the center cards. Must be called
// exactly once per room, at the moment the lobby phase ends, with the
// selection frozen as of that instant.
func Deal(roomID string, players []session.Player, selected []string, rng Source) State {
	shuffled := Shuffle(selected, rng)

	assignments := make(map[string]SecretRole, len(players))
	for i, p := range players {
		assignments[p.UserID] = SecretRole{
			AssignedRole: shuffled[i],
			CurrentRole:  shuffled[i],
		}
	}

	return State{
		RoomID:      roomID,
		Assignments: assignments,
		CenterCards: shuffled[len(players):],
	}
}

// PlayerRole returns userID's own draw and nothing else. Unknown ids
// get a zero value and false.
func (g *State) PlayerRole(userID string) (SecretRole, bool) {
	if g == nil {
		return SecretRole{}, false
	}
	r, ok := g.Assignments[userID]
	return r, ok
}
