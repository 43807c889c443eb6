package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/match"
	"github.com/DoyleJ11/arcade-arena/internal/types"
)

type manualScheduler struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{fns: make(map[int]func())}
}

func (s *manualScheduler) Every(_ context.Context, _ time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

// fire runs every live timer once.
func (s *manualScheduler) fire() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Every serve leaves the field within one tick and the paddles sit beyond
// its reach, so each tick scores a point.
func fastRules() engine.Rules {
	r := engine.DefaultRules()
	r.ServeSpeed = 100000
	r.MaxServeAngle = 0
	r.PaddleMargin = -5000
	return r
}

func newTestHub(t *testing.T) (*Hub, *manualScheduler) {
	t.Helper()
	sched := newManualScheduler()
	h := NewHub(context.Background(), Config{MaxScore: 3, Rules: fastRules(), Scheduler: sched})
	t.Cleanup(func() {
		h.Post(ShutdownHub{})
		<-h.Done()
	})
	return h, sched
}

func connect(t *testing.T, h *Hub, userID string) *Conn {
	t.Helper()
	c := NewConn("conn-"+userID, userID, userID, 256)
	h.Inbox() <- Connect{Conn: c}
	return c
}

func send(h *Hub, c *Conn, msg types.ClientMessage) {
	h.Inbox() <- FromClient{ConnID: c.ID, Msg: msg}
}

func room(t *testing.T, h *Hub, roomID string) RoomInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	info, err := h.Room(ctx, roomID)
	require.NoError(t, err)
	return info
}

// recv returns the next message of type T, skipping others.
func recv[T types.ServerMessage](t *testing.T, c *Conn) T {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m, ok := <-c.Outbox:
			if !ok {
				var zero T
				t.Fatalf("outbox of %s closed while waiting for %T", c.UserID, zero)
			}
			if v, ok := m.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T on %s", zero, c.UserID)
		}
	}
}

// recvWhere returns the next message of type T that satisfies ok.
func recvWhere[T types.ServerMessage](t *testing.T, c *Conn, ok func(T) bool) T {
	t.Helper()
	for {
		if v := recv[T](t, c); ok(v) {
			return v
		}
	}
}

func drain(c *Conn) {
	for {
		select {
		case _, ok := <-c.Outbox:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// noneQueued fails if a message of type T is already queued for c. Call it
// after a synchronous hub request so earlier messages have been handled.
func noneQueued[T types.ServerMessage](t *testing.T, c *Conn) {
	t.Helper()
	for {
		select {
		case m, ok := <-c.Outbox:
			if !ok {
				return
			}
			if _, bad := m.(T); bad {
				t.Fatalf("unexpected %T for %s: %+v", m, c.UserID, m)
			}
		default:
			return
		}
	}
}

func waitClosed(t *testing.T, c *Conn) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.Outbox:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("outbox of %s not closed", c.UserID)
		}
	}
}

func seatPair(t *testing.T, h *Hub, roomID string) (*Conn, *Conn) {
	t.Helper()
	alice := connect(t, h, "alice")
	bob := connect(t, h, "bob")
	send(h, alice, types.JoinMsg{RoomID: roomID})
	send(h, bob, types.JoinMsg{RoomID: roomID})

	joined := recv[types.JoinedMsg](t, alice)
	require.Equal(t, engine.SideLeft, joined.YourSide)
	joined = recv[types.JoinedMsg](t, bob)
	require.Equal(t, engine.SideRight, joined.YourSide)
	return alice, bob
}

func TestHub_PlaysToMaxScoreThenStops(t *testing.T) {
	h, sched := newTestHub(t)
	alice, bob := seatPair(t, h, "den")

	info := room(t, h, "den")
	require.True(t, info.Found)
	assert.Equal(t, string(match.StatusPlaying), info.Status)
	assert.True(t, info.Ticking)
	assert.False(t, info.CreatedAt.IsZero())
	require.Equal(t, 1, sched.active())

	for i := 0; i < 3; i++ {
		sched.fire()
	}

	fin := recv[types.FinishedMsg](t, alice)
	assert.Equal(t, "den", fin.RoomID)
	assert.False(t, fin.Forfeit)
	assert.False(t, fin.IsTournament)
	assert.Equal(t, 3, fin.Scores.Left+fin.Scores.Right)
	assert.True(t, (fin.Scores.Left == 3) != (fin.Scores.Right == 3))
	assert.Contains(t, []string{"alice", "bob"}, fin.WinnerUserID)
	assert.Equal(t, fin, recv[types.FinishedMsg](t, bob))

	assert.False(t, room(t, h, "den").Found, "finished rooms are retired")
	assert.Zero(t, sched.active(), "timer is cancelled")

	h.Inbox() <- Tick{RoomID: "den", Gen: 1}
	sched.fire()
	room(t, h, "den")
	noneQueued[types.StateMsg](t, alice)
	noneQueued[types.StateMsg](t, bob)
}

func TestHub_StateCarriesYourSide(t *testing.T) {
	h, sched := newTestHub(t)
	alice, bob := seatPair(t, h, "den")
	room(t, h, "den")
	drain(alice)
	drain(bob)

	sched.fire()
	sa := recv[types.StateMsg](t, alice)
	sb := recv[types.StateMsg](t, bob)
	assert.Equal(t, engine.SideLeft, sa.YourSide)
	assert.Equal(t, engine.SideRight, sb.YourSide)
	assert.Equal(t, sa.View, sb.View)
	assert.Equal(t, 1, sa.Scores.Left+sa.Scores.Right)
}

func TestHub_DisconnectForfeits(t *testing.T) {
	h, sched := newTestHub(t)
	alice, bob := seatPair(t, h, "den")

	h.Inbox() <- Disconnect{ConnID: alice.ID}
	waitClosed(t, alice)

	fin := recv[types.FinishedMsg](t, bob)
	assert.True(t, fin.Forfeit)
	assert.Equal(t, "bob", fin.WinnerUserID)

	p := recv[types.PresenceMsg](t, bob)
	for p.UserID != "alice" || p.Online {
		p = recv[types.PresenceMsg](t, bob)
	}

	assert.False(t, room(t, h, "den").Found)
	assert.Zero(t, sched.active())
	online, err := h.IsOnline(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestHub_LeaveThenDisconnectForfeitsOnce(t *testing.T) {
	h, _ := newTestHub(t)
	alice, bob := seatPair(t, h, "den")

	send(h, alice, types.LeaveMsg{})
	h.Inbox() <- Disconnect{ConnID: alice.ID}

	fin := recv[types.FinishedMsg](t, bob)
	assert.Equal(t, "bob", fin.WinnerUserID)
	room(t, h, "den")
	noneQueued[types.FinishedMsg](t, bob)
}

func TestHub_SecondConnectionKeepsSeat(t *testing.T) {
	h, _ := newTestHub(t)
	alice, bob := seatPair(t, h, "den")

	second := NewConn("conn-alice-2", "alice", "alice", 64)
	h.Inbox() <- Connect{Conn: second}
	h.Inbox() <- Disconnect{ConnID: alice.ID}
	waitClosed(t, alice)

	info := room(t, h, "den")
	require.True(t, info.Found)
	assert.Equal(t, string(match.StatusPlaying), info.Status)
	noneQueued[types.FinishedMsg](t, bob)
}

func TestHub_PresenceReachesEveryConnection(t *testing.T) {
	h, _ := newTestHub(t)
	alice := connect(t, h, "alice")
	second := NewConn("conn-alice-2", "alice", "alice", 64)
	h.Inbox() <- Connect{Conn: second}
	connect(t, h, "carol")

	for _, c := range []*Conn{alice, second} {
		p := recvWhere(t, c, func(p types.PresenceMsg) bool { return p.UserID == "carol" })
		assert.True(t, p.Online)
	}
}

func TestHub_QuickMatchSkipsNamedRoom(t *testing.T) {
	h, _ := newTestHub(t)
	alice := connect(t, h, "alice")
	bob := connect(t, h, "bob")

	send(h, alice, types.JoinMsg{RoomID: "den"})
	recv[types.JoinedMsg](t, alice)
	send(h, bob, types.JoinMsg{})
	jb := recv[types.JoinedMsg](t, bob)
	assert.NotEqual(t, "den", jb.RoomID)

	assert.Equal(t, []string{"alice"}, room(t, h, "den").Players)
	assert.Equal(t, string(match.StatusWaiting), room(t, h, jb.RoomID).Status)
}

func TestHub_JoinErrorOnlyToRequester(t *testing.T) {
	h, _ := newTestHub(t)
	alice, bob := seatPair(t, h, "den")
	carol := connect(t, h, "carol")

	send(h, carol, types.JoinMsg{RoomID: "den"})
	e := recv[types.ErrorMsg](t, carol)
	assert.Equal(t, "capacity", e.Code)

	info := room(t, h, "den")
	assert.Equal(t, []string{"alice", "bob"}, info.Players)
	noneQueued[types.ErrorMsg](t, alice)
	noneQueued[types.ErrorMsg](t, bob)

	send(h, carol, types.JoinMsg{RoomID: "bad id!"})
	e = recv[types.ErrorMsg](t, carol)
	assert.Equal(t, "validation", e.Code)
}

func TestHub_QuickMatchReadyGate(t *testing.T) {
	h, sched := newTestHub(t)
	alice := connect(t, h, "alice")
	bob := connect(t, h, "bob")

	send(h, alice, types.JoinMsg{})
	send(h, bob, types.JoinMsg{})
	ja := recv[types.JoinedMsg](t, alice)
	jb := recv[types.JoinedMsg](t, bob)
	require.Equal(t, ja.RoomID, jb.RoomID)

	info := room(t, h, ja.RoomID)
	assert.Equal(t, string(match.StatusWaiting), info.Status)
	assert.Zero(t, sched.active())

	send(h, alice, types.ReadyMsg{})
	ack := recv[types.ReadyAckMsg](t, alice)
	assert.Equal(t, match.ReadyFlags{Left: true}, ack.Ready)
	assert.Equal(t, string(match.StatusWaiting), room(t, h, ja.RoomID).Status)

	send(h, bob, types.ReadyMsg{})
	cd := recv[types.CountdownMsg](t, alice)
	assert.Equal(t, CountdownSeconds, cd.Seconds)
	recv[types.CountdownMsg](t, bob)

	st := recv[types.StateMsg](t, bob)
	for st.Status != match.StatusPlaying {
		st = recv[types.StateMsg](t, bob)
	}
	require.NotNil(t, st.Ready)
	assert.Equal(t, match.ReadyFlags{}, *st.Ready, "leaving waiting clears ready flags")
	assert.Equal(t, 1, sched.active())
}

func TestHub_UnknownConnectionIgnored(t *testing.T) {
	h, _ := newTestHub(t)
	h.Inbox() <- FromClient{ConnID: "ghost", Msg: types.JoinMsg{RoomID: "den"}}
	h.Inbox() <- Disconnect{ConnID: "ghost"}
	assert.False(t, room(t, h, "den").Found)
}

func TestHub_TournamentFlow(t *testing.T) {
	h, sched := newTestHub(t)
	ctx := context.Background()

	conns := map[string]*Conn{}
	for _, id := range []string{"A", "B", "C", "D"} {
		conns[id] = connect(t, h, id)
	}

	tour, err := h.CreateTournament(ctx, "A", bracket.CreateInput{Capacity: 4})
	require.NoError(t, err)
	for _, id := range []string{"B", "C", "D"} {
		_, err := h.JoinTournament(ctx, bracket.JoinInput{TournamentID: tour.ID, UserID: id})
		require.NoError(t, err)
	}
	_, err = h.StartTournament(ctx, tour.ID, "B")
	require.ErrorIs(t, err, bracket.ErrNotOwner)
	tour, err = h.StartTournament(ctx, tour.ID, "A")
	require.NoError(t, err)
	semi1, semi2, final := tour.Matches[0], tour.Matches[1], tour.Matches[2]

	mr := recv[types.MatchReadyMsg](t, conns["A"])
	assert.Equal(t, semi1.RoomID, mr.RoomID)
	mr = recv[types.MatchReadyMsg](t, conns["D"])
	assert.Equal(t, semi2.RoomID, mr.RoomID)

	// C may not enter A and B's match.
	send(h, conns["C"], types.JoinMsg{RoomID: semi1.RoomID})
	assert.Equal(t, "authorization", recv[types.ErrorMsg](t, conns["C"]).Code)

	// Semi 1 is played out.
	send(h, conns["A"], types.JoinMsg{RoomID: semi1.RoomID})
	send(h, conns["B"], types.JoinMsg{RoomID: semi1.RoomID})
	send(h, conns["A"], types.ReadyMsg{})
	send(h, conns["B"], types.ReadyMsg{})
	recv[types.CountdownMsg](t, conns["A"])
	for i := 0; i < 3; i++ {
		sched.fire()
	}
	fin := recv[types.FinishedMsg](t, conns["A"])
	assert.True(t, fin.IsTournament)
	assert.Equal(t, tour.ID, fin.TournamentID)
	assert.Equal(t, semi1.ID, fin.MatchID)
	winner1 := fin.WinnerUserID
	require.Contains(t, []string{"A", "B"}, winner1)

	// Semi 2 ends by forfeit.
	send(h, conns["C"], types.JoinMsg{RoomID: semi2.RoomID})
	send(h, conns["D"], types.JoinMsg{RoomID: semi2.RoomID})
	recv[types.JoinedMsg](t, conns["D"])
	send(h, conns["D"], types.LeaveMsg{})
	fin = recv[types.FinishedMsg](t, conns["C"])
	assert.Equal(t, "C", fin.WinnerUserID)

	isFinal := func(m types.MatchReadyMsg) bool { return m.RoomID == final.RoomID }
	mr = recvWhere(t, conns["C"], isFinal)
	assert.Equal(t, final.ID, mr.MatchID)
	mr = recvWhere(t, conns[winner1], isFinal)
	assert.Equal(t, tour.ID, mr.TournamentID)
	assert.True(t, room(t, h, final.RoomID).Found, "final room is created ahead of the players")

	got, err := h.Tournament(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentRunning, got.Status)
	gotFinal := got.Match(final.ID)
	assert.ElementsMatch(t, []string{winner1, "C"}, gotFinal.Players())

	// The final is decided by forfeit.
	send(h, conns["C"], types.JoinMsg{RoomID: final.RoomID})
	send(h, conns[winner1], types.JoinMsg{RoomID: final.RoomID})
	h.Inbox() <- Disconnect{ConnID: conns["C"].ID}

	fin = recvWhere(t, conns[winner1], func(m types.FinishedMsg) bool { return m.RoomID == final.RoomID })
	assert.Equal(t, winner1, fin.WinnerUserID)
	assert.True(t, fin.Forfeit)

	got, err = h.Tournament(ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentFinished, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, winner1, *got.WinnerID)

	push := recvWhere(t, conns[winner1], func(m types.TournamentMsg) bool {
		return m.Tournament.Status == bracket.TournamentFinished
	})
	assert.Equal(t, winner1, *push.Tournament.WinnerID)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h, _ := newTestHub(t)
	alice := connect(t, h, "alice")
	slow := NewConn("conn-slow", "slow", "slow", 1)
	h.Inbox() <- Connect{Conn: slow}

	// Presence updates for new users fill the slow outbox.
	for _, id := range []string{"u1", "u2", "u3"} {
		connect(t, h, id)
	}
	waitClosed(t, slow)

	online, err := h.IsOnline(context.Background(), "slow")
	require.NoError(t, err)
	assert.False(t, online)
	p := recv[types.PresenceMsg](t, alice)
	for p.UserID != "slow" || p.Online {
		p = recv[types.PresenceMsg](t, alice)
	}
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	sched := newManualScheduler()
	h := NewHub(context.Background(), Config{Rules: fastRules(), Scheduler: sched})
	alice := NewConn("a", "alice", "alice", 64)
	bob := NewConn("b", "bob", "bob", 64)
	h.Inbox() <- Connect{Conn: alice}
	h.Inbox() <- Connect{Conn: bob}
	send(h, alice, types.JoinMsg{RoomID: "den"})
	send(h, bob, types.JoinMsg{RoomID: "den"})
	recv[types.JoinedMsg](t, bob)

	h.Inbox() <- ShutdownHub{}
	<-h.Done()
	waitClosed(t, alice)
	waitClosed(t, bob)
	assert.Zero(t, sched.active())
	assert.False(t, h.Post(Tick{}))

	_, err := h.Tournaments(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrStopped)
}
