package room

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/onuwparty/werewolf-lobby-backend/internal/session"
)

// helper: receive one outbound with a timeout so tests never hang
func recvOutbound(t *testing.T, ch <-chan Outbound, within time.Duration) Outbound {
	t.Helper()
	select {
	case o, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return o
	case <-time.After(within):
		t.Fatalf("timed out waiting for outbound")
		return nil // unreachable
	}
}

func recvSnapshot(t *testing.T, ch <-chan Outbound, within time.Duration) Snapshot {
	t.Helper()
	o := recvOutbound(t, ch, within)
	snap, ok := o.(Snapshot)
	if !ok {
		t.Fatalf("expected snapshot, got %T", o)
	}
	return snap
}

func recvNoOutbound(t *testing.T, ch <-chan Outbound, within time.Duration) {
	t.Helper()
	select {
	case o, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no outbound within %v, but got: %+v", within, o)
	case <-time.After(within):
		// good: nothing arrived
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func drainUntilPhase(t *testing.T, ch <-chan Outbound, phase session.Phase) Snapshot {
	t.Helper()
	for i := 0; i < 10; i++ {
		snap := recvSnapshot(t, ch, 200*time.Millisecond)
		if snap.State.Phase == phase {
			return snap
		}
	}
	t.Fatalf("never reached phase %q", phase)
	return Snapshot{} // unreachable
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rng := rand.New(rand.NewSource(1))
	return NewRoom(ctx, session.New("R", time.Now()), rng, zap.NewNop())
}

func join(r *Room, connID, userID string) chan Outbound {
	out := make(chan Outbound, 16)
	r.Inbox() <- Join{
		ConnID: connID,
		Player: session.Player{UserID: userID, DisplayName: userID},
		Outbox: out,
	}
	return out
}

func TestRoom_JoinBroadcastsSnapshot(t *testing.T) {
	r := newTestRoom(t)

	out := join(r, "c1", "alice")
	snap := recvSnapshot(t, out, 100*time.Millisecond)

	if snap.Version != 1 {
		t.Fatalf("after join: want version=1, got %d", snap.Version)
	}
	if len(snap.State.Players) != 1 || snap.State.Players[0].UserID != "alice" {
		t.Fatalf("after join: want [alice], got %+v", snap.State.Players)
	}
	if snap.State.ConfigValid {
		t.Fatalf("one player with six selected roles must be invalid")
	}
	if snap.State.Phase != session.PhaseLobby {
		t.Fatalf("want lobby phase, got %v", snap.State.Phase)
	}
}

func TestRoom_RejoinSameUser_DoesNotDuplicate(t *testing.T) {
	r := newTestRoom(t)

	out1 := join(r, "c1", "alice")
	_ = recvSnapshot(t, out1, 100*time.Millisecond)

	// A refresh replays the join on a fresh connection.
	out2 := join(r, "c2", "alice")
	snap := recvSnapshot(t, out2, 100*time.Millisecond)

	if len(snap.State.Players) != 1 {
		t.Fatalf("rejoin must not grow the roster, got %+v", snap.State.Players)
	}
	// The replayed join still broadcasts to everyone.
	second := recvSnapshot(t, out1, 100*time.Millisecond)
	if second.Version != 2 {
		t.Fatalf("want version=2 on rejoin broadcast, got %d", second.Version)
	}
}

func TestRoom_UnknownRoleToggle_NoBroadcast(t *testing.T) {
	r := newTestRoom(t)

	out := join(r, "c1", "alice")
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	r.Inbox() <- ToggleRole{ConnID: "c1", RoleID: "dragon-1"}
	recvNoOutbound(t, out, 100*time.Millisecond)
}

func TestRoom_ToggleFromUnknownConn_Ignored(t *testing.T) {
	r := newTestRoom(t)

	out := join(r, "c1", "alice")
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	r.Inbox() <- ToggleRole{ConnID: "stranger", RoleID: "villager-1"}
	recvNoOutbound(t, out, 100*time.Millisecond)
}

func TestRoom_ToggleRole_ResetsReadiness(t *testing.T) {
	r := newTestRoom(t)

	outs := map[string]chan Outbound{
		"alice": join(r, "c1", "alice"),
		"bob":   join(r, "c2", "bob"),
		"carol": join(r, "c3", "carol"),
	}
	// 3 players + default 6 selected: config is valid, alice can ready up.
	r.Inbox() <- Ready{ConnID: "c1"}

	snap := recvSnapshot(t, outs["carol"], 200*time.Millisecond)
	for snap.State.Players[0].Ready == false {
		snap = recvSnapshot(t, outs["carol"], 200*time.Millisecond)
	}

	r.Inbox() <- ToggleRole{ConnID: "c2", RoleID: "villager-2"}

	snap = recvSnapshot(t, outs["carol"], 200*time.Millisecond)
	if len(snap.State.SelectedRoles) != 7 {
		t.Fatalf("want 7 selected after toggle, got %d", len(snap.State.SelectedRoles))
	}
	if snap.State.ConfigValid {
		t.Fatalf("7 roles for 3 players must be invalid")
	}
	for _, p := range snap.State.Players {
		if p.Ready {
			t.Fatalf("toggle must reset readiness, %s still ready", p.UserID)
		}
	}
}

func TestRoom_Ready_RejectedOutsidePlayableRange(t *testing.T) {
	r := newTestRoom(t)

	out1 := join(r, "c1", "alice")
	out2 := join(r, "c2", "bob")
	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out1, 100*time.Millisecond)
	_ = recvSnapshot(t, out2, 100*time.Millisecond)

	// Make the config valid for two players (5 = 2 + 3)...
	r.Inbox() <- ToggleRole{ConnID: "c1", RoleID: "villager-1"}
	snap := recvSnapshot(t, out2, 100*time.Millisecond)
	if !snap.State.ConfigValid {
		t.Fatalf("5 roles for 2 players must be valid")
	}

	// ...but two players are still below the playable minimum.
	r.Inbox() <- Ready{ConnID: "c1"}
	recvNoOutbound(t, out2, 100*time.Millisecond)

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	for _, p := range view.State.Players {
		if p.Ready {
			t.Fatalf("ready signal must be ignored when the room is not playable")
		}
	}
}

func TestRoom_AllReady_DealsRolesOnce(t *testing.T) {
	r := newTestRoom(t)

	outs := []chan Outbound{
		join(r, "c1", "alice"),
		join(r, "c2", "bob"),
		join(r, "c3", "carol"),
	}
	r.Inbox() <- Ready{ConnID: "c1"}
	r.Inbox() <- Ready{ConnID: "c2"}
	r.Inbox() <- Ready{ConnID: "c3"}

	final := drainUntilPhase(t, outs[0], session.PhaseRoleAssignment)
	if !final.State.ConfigValid {
		t.Fatalf("transition requires a valid config")
	}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if !view.Dealt {
		t.Fatalf("transition must trigger the deal")
	}
}

func TestRoom_FetchRole_IsPrivateToRequester(t *testing.T) {
	r := newTestRoom(t)

	aliceOut := join(r, "c1", "alice")
	bobOut := join(r, "c2", "bob")
	carolOut := join(r, "c3", "carol")
	r.Inbox() <- Ready{ConnID: "c1"}
	r.Inbox() <- Ready{ConnID: "c2"}
	r.Inbox() <- Ready{ConnID: "c3"}

	_ = drainUntilPhase(t, aliceOut, session.PhaseRoleAssignment)
	_ = drainUntilPhase(t, bobOut, session.PhaseRoleAssignment)
	_ = drainUntilPhase(t, carolOut, session.PhaseRoleAssignment)

	r.Inbox() <- FetchRole{ConnID: "c1"}

	o := recvOutbound(t, aliceOut, 200*time.Millisecond)
	reveal, ok := o.(RoleReveal)
	if !ok {
		t.Fatalf("expected role reveal, got %T", o)
	}
	if reveal.Role.AssignedRole == "" || reveal.Role.AssignedRole != reveal.Role.CurrentRole {
		t.Fatalf("fresh deal must have assigned == current, got %+v", reveal.Role)
	}

	// The reveal never reaches the rest of the room.
	recvNoOutbound(t, bobOut, 100*time.Millisecond)
	recvNoOutbound(t, carolOut, 100*time.Millisecond)
}

func TestRoom_FetchRole_BeforeDeal_Ignored(t *testing.T) {
	r := newTestRoom(t)

	out := join(r, "c1", "alice")
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	r.Inbox() <- FetchRole{ConnID: "c1"}
	recvNoOutbound(t, out, 100*time.Millisecond)
}

func TestRoom_Leave_RemovesPlayerAndResetsReadiness(t *testing.T) {
	r := newTestRoom(t)

	aliceOut := join(r, "c1", "alice")
	_ = join(r, "c2", "bob")
	_ = join(r, "c3", "carol")
	r.Inbox() <- Ready{ConnID: "c2"}

	r.Inbox() <- Leave{ConnID: "c3", UserID: "carol"}

	var snap Snapshot
	for i := 0; i < 10; i++ {
		snap = recvSnapshot(t, aliceOut, 200*time.Millisecond)
		if len(snap.State.Players) == 2 {
			break
		}
	}
	if len(snap.State.Players) != 2 {
		t.Fatalf("want 2 players after leave, got %+v", snap.State.Players)
	}
	for _, p := range snap.State.Players {
		if p.Ready {
			t.Fatalf("leave must reset readiness, %s still ready", p.UserID)
		}
	}
}

func TestRoom_Leave_ClosesDepartingOutbox(t *testing.T) {
	r := newTestRoom(t)

	aliceOut := join(r, "c1", "alice")
	bobOut := join(r, "c2", "bob")
	_ = recvSnapshot(t, aliceOut, 100*time.Millisecond)
	_ = recvSnapshot(t, aliceOut, 100*time.Millisecond)
	_ = recvSnapshot(t, bobOut, 100*time.Millisecond)

	r.Inbox() <- Leave{ConnID: "c1", UserID: "alice"}

	// The departing connection's channel must close so its writer
	// goroutine can exit; it sees no further broadcasts.
	select {
	case o, ok := <-aliceOut:
		if ok {
			t.Fatalf("expected closed outbox after leave, got %+v", o)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("outbox not closed after leave")
	}

	// The remaining client still gets the leave broadcast.
	snap := recvSnapshot(t, bobOut, 200*time.Millisecond)
	if len(snap.State.Players) != 1 || snap.State.Players[0].UserID != "bob" {
		t.Fatalf("want [bob] after leave, got %+v", snap.State.Players)
	}
}

func TestRoom_Leave_AfterSlowDrop_NoPanic(t *testing.T) {
	r := newTestRoom(t)

	slow := make(chan Outbound, 1)
	r.Inbox() <- Join{ConnID: "c1", Player: session.Player{UserID: "alice"}, Outbox: slow}
	_ = join(r, "c2", "bob") // broadcast overflows the slow buffer, dropping c1

	// The dropped connection's disconnect must not close twice.
	r.Inbox() <- Leave{ConnID: "c1", UserID: "alice"}

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if len(view.State.Players) != 1 || view.State.Players[0].UserID != "bob" {
		t.Fatalf("want [bob] after dropped client leaves, got %+v", view.State.Players)
	}
}

func TestRoom_SlowClientDropped(t *testing.T) {
	r := newTestRoom(t)

	slow := make(chan Outbound, 1)
	r.Inbox() <- Join{ConnID: "c1", Player: session.Player{UserID: "alice"}, Outbox: slow}

	// The join snapshot fills the slow client's buffer; the next
	// broadcast cannot be delivered and drops it.
	_ = join(r, "c2", "bob")

	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, 100*time.Millisecond)
	if view.NumClients != 1 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}

	// The dropped connection's disconnect still unseats its player.
	r.Inbox() <- Leave{ConnID: "c1", UserID: "alice"}
	r.Inbox() <- GetState{Reply: reply}
	view = recvView(t, reply, 100*time.Millisecond)
	if len(view.State.Players) != 1 || view.State.Players[0].UserID != "bob" {
		t.Fatalf("want [bob] after dropped client leaves, got %+v", view.State.Players)
	}
}

func TestRoom_Shutdown_ClosesOutboxes(t *testing.T) {
	r := newTestRoom(t)

	out := join(r, "c1", "alice")
	_ = recvSnapshot(t, out, 100*time.Millisecond)

	r.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox after shutdown")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("outbox not closed after shutdown")
	}
}
