package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/hub"
	"github.com/onuwparty/werewolf-lobby-backend/internal/room"
	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
	"github.com/onuwparty/werewolf-lobby-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// binding ties a connection to the room and player it joined as. It is
// created once, on the first join_lobby frame, and never reassigned.
type binding struct {
	roomID string
	userID string
	rm     *room.Room
}

// Handler upgrades the connection and runs its read loop. A connection
// is anonymous until it sends join_lobby; events before that are
// dropped. Identity fields on the join frame come from the client's
// prior token exchange and are trusted as-is.
func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan room.Outbound, 8)
		log := log.With(zap.String("conn", connID))

		// Writer goroutine: drains the room's outbox until the room
		// closes it (shutdown or slow-client drop).
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for o := range out {
				writeMessage(writeCtx, conn, toServerMessage(o))
			}
			// The room closed the outbox (shutdown or slow-client
			// drop); unwind the read loop too.
			conn.Close(websocket.StatusGoingAway, "bye")
		}()

		var bound *binding
		defer func() {
			if bound != nil {
				// The room closes the outbox while handling Leave.
				bound.rm.Inbox() <- room.Leave{ConnID: connID, UserID: bound.userID}
				return
			}
			// Never bound: no room owns the outbox, so release the
			// writer goroutine here.
			close(out)
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close or otherwise: the deferred Leave runs
				// the ordinary disconnect path.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMessage(r.Context(), conn, types.NewError("bad json"))
				continue
			}

			if bound == nil {
				if cm.Type != "join_lobby" {
					// Events from an unbound connection are dropped.
					continue
				}
				if cm.RoomID == "" || cm.UserID == "" {
					writeMessage(r.Context(), conn, types.NewError("missing roomId or userId"))
					continue
				}

				reply := make(chan *room.Room, 1)
				h.Inbox() <- hub.EnsureRoom{ID: cm.RoomID, Reply: reply}
				rm := <-reply

				rm.Inbox() <- room.Join{
					ConnID: connID,
					Player: session.Player{
						UserID:      cm.UserID,
						DisplayName: cm.DisplayName,
						AvatarRef:   cm.AvatarRef,
					},
					Outbox: out,
				}
				bound = &binding{roomID: cm.RoomID, userID: cm.UserID, rm: rm}
				log.Info("connection bound",
					zap.String("room", cm.RoomID), zap.String("user", cm.UserID))
				continue
			}

			switch cm.Type {
			case "join_lobby":
				// Already bound; the binding is immutable.
			case "toggle_role":
				bound.rm.Inbox() <- room.ToggleRole{ConnID: connID, RoleID: cm.RoleID}
			case "player_ready":
				bound.rm.Inbox() <- room.Ready{ConnID: connID}
			case "fetch_role":
				bound.rm.Inbox() <- room.FetchRole{ConnID: connID}
			default:
				writeMessage(r.Context(), conn, types.NewError("unknown type"))
			}
		}
	}
}

func toServerMessage(o room.Outbound) types.ServerMessage {
	switch v := o.(type) {
	case room.Snapshot:
		return types.NewLobbyState(v.Version, v.State)
	case room.RoleReveal:
		return types.NewRoleAssigned(v.Role)
	default:
		return types.NewError("internal")
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
