package hub

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/room"
	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom is the get-or-create path used by join: the hub goroutine
// is the serialization point, so two connections racing on a brand-new
// room id always converge on the same Room.
type EnsureRoom struct {
	ID    string
	Reply chan *room.Room
}

// GetRoom is a pure lookup; the reply may be nil.
type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

type RemoveRoom struct {
	ID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the session registry: it owns the room-id -> Room map for one
// process. It is an injectable object, not a package singleton, so
// tests can run as many independent registries as they like.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	now    func() time.Time
	rng    *rand.Rand
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					msg.Reply <- rm
					break
				}
				h.log.Info("creating room", zap.String("room", msg.ID))
				// Each room gets its own rand.Rand: rooms deal on their
				// own goroutines and rand.Rand is not concurrency-safe.
				rng := rand.New(rand.NewSource(h.rng.Int63()))
				rm := room.NewRoom(h.ctx, session.New(msg.ID, h.now()), rng, h.log)
				h.rooms[msg.ID] = rm
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
				}
				delete(h.rooms, msg.ID)

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
