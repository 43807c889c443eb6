package hub

import (
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/match"
	"github.com/DoyleJ11/arcade-arena/internal/types"
)

var errInternal = errors.New("internal error")

func errorMessage(err error) types.ErrorMsg {
	code := apperr.Code(err)
	if code == "internal" {
		return types.NewError(code, errInternal.Error())
	}
	return types.NewError(code, err.Error())
}

func (h *Hub) connect(c *Conn) {
	h.conns[c.ID] = c
	if h.presence.Add(c.UserID, c.ID) {
		h.broadcastAll(types.NewPresence(c.UserID, true))
	}
	h.log.Debug("connected", zap.String("conn", c.ID), zap.String("user", c.UserID),
		zap.Int("online_users", h.presence.NumUsers()))
}

// disconnect forgets a connection. Closing a user's last connection forfeits
// the room they are seated in.
func (h *Hub) disconnect(connID string) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	close(c.Outbox)

	if !h.presence.Remove(c.UserID, c.ID) {
		return
	}
	if room, ok := h.rooms.RoomOf(c.UserID); ok {
		h.forfeit(room, c.UserID)
	}
	h.broadcastAll(types.NewPresence(c.UserID, false))
	h.log.Debug("user offline", zap.String("user", c.UserID))
}

func (h *Hub) fromClient(connID string, msg types.ClientMessage) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}

	switch m := msg.(type) {
	case types.JoinMsg:
		h.join(c, m.RoomID)

	case types.InputMsg:
		if room, ok := h.rooms.RoomOf(c.UserID); ok {
			room.SetInput(c.UserID, m.Direction)
		}

	case types.ReadyMsg:
		room, ok := h.rooms.RoomOf(c.UserID)
		if !ok || !room.SetReady(c.UserID) {
			return
		}
		h.sendUser(c.UserID, types.NewReadyAck(room.ID, room.Ready))
		h.broadcastState(room)
		h.tryStart(room)

	case types.LeaveMsg:
		if room, ok := h.rooms.RoomOf(c.UserID); ok {
			h.forfeit(room, c.UserID)
		}
	}
}

func (h *Hub) join(c *Conn, roomID string) {
	room, side, err := h.rooms.Join(c.UserID, c.DisplayName, roomID)
	if err != nil {
		h.log.Debug("join rejected", zap.String("user", c.UserID), zap.String("room", roomID), zap.Error(err))
		h.sendError(c, err)
		return
	}
	h.send(c, types.NewJoined(room, side))
	h.broadcastState(room)
	h.tryStart(room)
}

// tryStart moves a startable room to playing and starts its timer. Ready-gated
// rooms announce the client-side countdown first.
func (h *Hub) tryStart(room *match.Room) {
	if !room.CanStart() {
		return
	}
	if room.ReadyGated {
		h.broadcastRoom(room, types.NewCountdown(room.ID, CountdownSeconds))
	}
	room.Start()
	if room.IsTournament() {
		h.brackets.MarkPlaying(room.ID)
	}
	h.startTimer(room.ID)
	h.broadcastState(room)
	h.log.Info("match started", zap.String("room", room.ID), zap.Strings("players", room.UserIDs()))
}

func (h *Hub) startTimer(roomID string) {
	h.stopTimer(roomID)
	h.gen++
	gen := h.gen
	stop := h.sched.Every(h.ctx, h.interval, func() {
		h.Post(Tick{RoomID: roomID, Gen: gen})
	})
	h.timers[roomID] = roomTimer{gen: gen, stop: stop}
}

func (h *Hub) stopTimer(roomID string) {
	if t, ok := h.timers[roomID]; ok {
		t.stop()
		delete(h.timers, roomID)
	}
}

func (h *Hub) tick(msg Tick) {
	t, ok := h.timers[msg.RoomID]
	if !ok || t.gen != msg.Gen {
		return
	}
	room, ok := h.rooms.Get(msg.RoomID)
	if !ok || room.Status != match.StatusPlaying {
		h.stopTimer(msg.RoomID)
		return
	}

	finished := room.Tick(h.interval)
	h.broadcastState(room)
	if finished {
		h.finish(room)
	}
}

func (h *Hub) forfeit(room *match.Room, userID string) {
	if !room.Forfeit(userID) {
		return
	}
	h.log.Info("forfeit", zap.String("room", room.ID), zap.String("user", userID))
	h.finish(room)
}

// finish announces a finished room, reports tournament results and retires
// the room.
func (h *Hub) finish(room *match.Room) {
	h.stopTimer(room.ID)
	h.broadcastRoom(room, types.NewFinished(room))

	winner := room.WinnerUserID()
	h.log.Info("match finished",
		zap.String("room", room.ID),
		zap.String("winner", winner),
		zap.Int("left", room.Scores.Left),
		zap.Int("right", room.Scores.Right),
		zap.Bool("forfeit", room.Forfeited),
	)

	if room.IsTournament() && winner != "" {
		h.reportResult(room.ID, winner)
	}
	h.rooms.Retire(room.ID)
}

func (h *Hub) broadcastState(room *match.Room) {
	view := room.View()
	for _, side := range []engine.Side{engine.SideLeft, engine.SideRight} {
		if seat := room.Seat(side); seat != nil {
			h.sendUser(seat.UserID, types.NewState(view, side))
		}
	}
}

func (h *Hub) broadcastRoom(room *match.Room, msg types.ServerMessage) {
	for _, uid := range room.UserIDs() {
		h.sendUser(uid, msg)
	}
}
