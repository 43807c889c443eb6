// Package hub runs the single event loop that owns every room, the bracket
// manager and the presence registry. Websocket connections, HTTP handlers and
// room tick timers talk to it only by posting HubMsg values to its inbox.
package hub

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/matchmaking"
	"github.com/DoyleJ11/arcade-arena/internal/presence"
	"github.com/DoyleJ11/arcade-arena/internal/types"
)

const (
	DefaultTickRate   = 60
	DefaultOutboxSize = 64
	CountdownSeconds  = 3
)

type HubMsg interface{ isHubMsg() }

// Conn is one live client connection. The hub closes Outbox when it forgets
// the connection; the owner of the socket only reads from it.
type Conn struct {
	ID          string
	UserID      string
	DisplayName string
	Outbox      chan types.ServerMessage

	dropped bool
}

func NewConn(id, userID, displayName string, size int) *Conn {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Conn{ID: id, UserID: userID, DisplayName: displayName, Outbox: make(chan types.ServerMessage, size)}
}

type Connect struct{ Conn *Conn }

type Disconnect struct{ ConnID string }

type FromClient struct {
	ConnID string
	Msg    types.ClientMessage
}

// Tick is posted by a room's timer. Gen tells a live timer from one that was
// already cancelled.
type Tick struct {
	RoomID string
	Gen    uint64
}

type TournamentReply struct {
	Tournament *bracket.Tournament
	Err        error
}

type CreateTournament struct {
	OwnerID string
	Input   bracket.CreateInput
	Reply   chan TournamentReply
}

type JoinTournament struct {
	Input bracket.JoinInput
	Reply chan TournamentReply
}

type StartTournament struct {
	TournamentID string
	UserID       string
	Reply        chan TournamentReply
}

type GetTournament struct {
	TournamentID string
	Reply        chan TournamentReply
}

type ListTournaments struct {
	ViewerID string
	Reply    chan []*bracket.Tournament
}

type PresenceQuery struct {
	UserID string
	Reply  chan bool
}

// RoomInfo is a copy of a room's state for callers outside the loop.
type RoomInfo struct {
	Found     bool
	Status    string
	Players   []string
	Ticking   bool
	CreatedAt time.Time
}

type GetRoom struct {
	RoomID string
	Reply  chan RoomInfo
}

type ShutdownHub struct{}

func (Connect) isHubMsg()          {}
func (Disconnect) isHubMsg()       {}
func (FromClient) isHubMsg()       {}
func (Tick) isHubMsg()             {}
func (CreateTournament) isHubMsg() {}
func (JoinTournament) isHubMsg()   {}
func (StartTournament) isHubMsg()  {}
func (GetTournament) isHubMsg()    {}
func (ListTournaments) isHubMsg()  {}
func (PresenceQuery) isHubMsg()    {}
func (GetRoom) isHubMsg()          {}
func (ShutdownHub) isHubMsg()      {}

type Config struct {
	MaxScore  int
	TickRate  int
	Rules     engine.Rules
	Logger    *zap.Logger
	Scheduler Scheduler
}

type roomTimer struct {
	gen  uint64
	stop func()
}

type Hub struct {
	inbox  chan HubMsg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	log      *zap.Logger
	sched    Scheduler
	interval time.Duration

	conns    map[string]*Conn
	presence *presence.Registry[string]
	brackets *bracket.Manager
	rooms    *matchmaking.Directory
	timers   map[string]roomTimer
	gen      uint64
	dropped  []*Conn
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TickerScheduler{}
	}

	ctx, cancel := context.WithCancel(parent)
	brackets := bracket.NewManager()
	h := &Hub{
		inbox:    make(chan HubMsg, 256),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      cfg.Logger.Named("hub"),
		sched:    cfg.Scheduler,
		interval: time.Second / time.Duration(cfg.TickRate),
		conns:    make(map[string]*Conn),
		presence: presence.NewRegistry[string](),
		brackets: brackets,
		rooms:    matchmaking.NewDirectory(brackets, matchmaking.Config{MaxScore: cfg.MaxScore, Rules: cfg.Rules}),
		timers:   make(map[string]roomTimer),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the loop has exited and every outbox is closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Post delivers m to the loop unless the hub has stopped.
func (h *Hub) Post(m HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.connect(msg.Conn)
			case Disconnect:
				h.disconnect(msg.ConnID)
			case FromClient:
				h.fromClient(msg.ConnID, msg.Msg)
			case Tick:
				h.tick(msg)
			case CreateTournament:
				msg.Reply <- h.createTournament(msg)
			case JoinTournament:
				msg.Reply <- h.joinTournament(msg.Input)
			case StartTournament:
				msg.Reply <- h.startTournament(msg.TournamentID, msg.UserID)
			case GetTournament:
				msg.Reply <- h.getTournament(msg.TournamentID)
			case ListTournaments:
				msg.Reply <- h.listTournaments(msg.ViewerID)
			case PresenceQuery:
				msg.Reply <- h.presence.IsOnline(msg.UserID)
			case GetRoom:
				msg.Reply <- h.roomInfo(msg.RoomID)
			case ShutdownHub:
				h.shutdown()
				return
			}
			h.flushDropped()
		}
	}
}

func (h *Hub) shutdown() {
	for id, t := range h.timers {
		t.stop()
		delete(h.timers, id)
	}
	for id, c := range h.conns {
		close(c.Outbox)
		delete(h.conns, id)
	}
	h.cancel()
	h.log.Info("hub stopped", zap.Int("open_rooms", len(h.rooms.Rooms())))
}

// send queues msg for c without blocking. A full outbox marks the connection
// as dropped; it is disconnected once the current message is handled.
func (h *Hub) send(c *Conn, msg types.ServerMessage) {
	if c == nil || c.dropped {
		return
	}
	select {
	case c.Outbox <- msg:
	default:
		c.dropped = true
		h.dropped = append(h.dropped, c)
		h.log.Warn("dropping slow connection", zap.String("conn", c.ID), zap.String("user", c.UserID))
	}
}

func (h *Hub) sendUser(userID string, msg types.ServerMessage) {
	for _, id := range h.presence.Connections(userID) {
		h.send(h.conns[id], msg)
	}
}

func (h *Hub) sendError(c *Conn, err error) {
	h.send(c, errorMessage(err))
}

func (h *Hub) broadcastAll(msg types.ServerMessage) {
	h.presence.ForEach(func(_ string, id string) {
		h.send(h.conns[id], msg)
	})
}

func (h *Hub) flushDropped() {
	for len(h.dropped) > 0 {
		c := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.disconnect(c.ID)
	}
}

func (h *Hub) roomInfo(roomID string) RoomInfo {
	room, ok := h.rooms.Get(roomID)
	if !ok {
		return RoomInfo{}
	}
	_, ticking := h.timers[roomID]
	return RoomInfo{
		Found:     true,
		Status:    string(room.Status),
		Players:   room.UserIDs(),
		Ticking:   ticking,
		CreatedAt: room.CreatedAt,
	}
}
