package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/game"
	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
)

type Msg interface{ isRoomMsg() }

// Join registers a connection and seats its player. Outbox is where
// this connection wants to receive outbound messages.
type Join struct {
	ConnID string
	Player session.Player
	Outbox chan Outbound
}

// Leave is the implicit disconnect event: the connection is dropped and
// its player removed from the roster. UserID comes from the connection
// binding so the player still leaves cleanly when the room already
// dropped the connection as a slow client.
type Leave struct {
	ConnID string
	UserID string
}

type ToggleRole struct {
	ConnID string
	RoleID string
}

type Ready struct{ ConnID string }

// FetchRole asks for the requesting player's own secret draw. The reply
// goes only to that connection's outbox, never to the room.
type FetchRole struct{ ConnID string }

type Shutdown struct{}

// GetState reflects internal state without data races; test-only.
type GetState struct {
	Reply chan View
}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (ToggleRole) isRoomMsg() {}
func (Ready) isRoomMsg()      {}
func (FetchRole) isRoomMsg()  {}
func (Shutdown) isRoomMsg()   {}
func (GetState) isRoomMsg()   {}

type Outbound interface{ isOutbound() }

// Snapshot is the room-wide state broadcast sent after every mutation.
type Snapshot struct {
	Version int
	State   session.State
}

// RoleReveal is the private answer to FetchRole.
type RoleReveal struct {
	Role game.SecretRole
}

func (Snapshot) isOutbound()   {}
func (RoleReveal) isOutbound() {}

type View struct {
	Version    int
	NumClients int
	State      session.State
	Dealt      bool
}

type client struct {
	userID string
	outbox chan Outbound
}

// Room owns one lobby's state. A single goroutine drains the inbox, so
// every mutation against this room is serialized; rooms never touch
// each other's state.
type Room struct {
	inbox   chan Msg
	state   session.State
	dealt   *game.State // nil until the lobby phase ends
	version int
	clients map[string]client
	rng     game.Source
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, initial session.State, rng game.Source, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]client),
		rng:     rng,
		log:     log.With(zap.String("room", initial.RoomID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

// Inbox is where the ws layer (and tests) send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg)
			case ToggleRole:
				r.handleToggleRole(msg)
			case Ready:
				r.handleReady(msg)
			case FetchRole:
				r.handleFetchRole(msg)
			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state.Clone(),
					Dealt:      r.dealt != nil,
				}
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	r.clients[msg.ConnID] = client{userID: msg.Player.UserID, outbox: msg.Outbox}

	r.state.AddPlayer(msg.Player)
	r.state.RecomputeConfigValidity()
	r.state.ResetReadiness()

	r.log.Info("player joined", zap.String("user", msg.Player.UserID))
	r.broadcast()
}

func (r *Room) handleLeave(msg Leave) {
	// Close the departing outbox so its writer goroutine exits. A
	// slow-dropped connection is already gone from the map, so the
	// lookup doubles as the double-close guard.
	if c, ok := r.clients[msg.ConnID]; ok {
		close(c.outbox)
		delete(r.clients, msg.ConnID)
	}

	r.state.RemovePlayer(msg.UserID)
	r.state.RecomputeConfigValidity()
	r.state.ResetReadiness()

	r.log.Info("player left", zap.String("user", msg.UserID))
	r.broadcast()
}

func (r *Room) handleToggleRole(msg ToggleRole) {
	if _, ok := r.clients[msg.ConnID]; !ok {
		return
	}
	if !r.state.ToggleRole(msg.RoleID) {
		// Unknown role id: no mutation, no broadcast.
		return
	}
	r.state.RecomputeConfigValidity()
	r.state.ResetReadiness()
	r.broadcast()
}

func (r *Room) handleReady(msg Ready) {
	c, ok := r.clients[msg.ConnID]
	if !ok {
		return
	}
	if !r.state.ConfigValid || !r.state.PlayerCountPlayable() {
		return
	}
	if !r.state.SetPlayerReady(c.userID) {
		return
	}

	if r.state.TryAdvanceToRoleAssignment() {
		dealt := game.Deal(r.state.RoomID, r.state.Players, r.state.SelectedRoles, r.rng)
		r.dealt = &dealt
		r.log.Info("roles dealt", zap.Int("players", len(r.state.Players)))
	}

	r.broadcast()
}

func (r *Room) handleFetchRole(msg FetchRole) {
	c, ok := r.clients[msg.ConnID]
	if !ok {
		return
	}
	role, ok := r.dealt.PlayerRole(c.userID)
	if !ok {
		return
	}
	r.send(msg.ConnID, c, RoleReveal{Role: role})
}

func (r *Room) shutdown() {
	for id, c := range r.clients {
		close(c.outbox)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast() {
	r.version++
	// Deep copy: receivers read the snapshot on their own goroutines
	// while this state keeps changing.
	snap := Snapshot{Version: r.version, State: r.state.Clone()}
	for id, c := range r.clients {
		r.send(id, c, snap)
	}
}

func (r *Room) send(id string, c client, out Outbound) {
	select {
	case c.outbox <- out:
	default:
		// Client is slow/full - drop them.
		r.log.Warn("dropping slow client", zap.String("conn", id))
		close(c.outbox)
		delete(r.clients, id)
	}
}
