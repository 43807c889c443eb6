package hub

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/types"
)

func (h *Hub) createTournament(msg CreateTournament) TournamentReply {
	t, err := h.brackets.Create(msg.OwnerID, msg.Input)
	if err != nil {
		return TournamentReply{Err: err}
	}
	h.log.Info("tournament created",
		zap.String("tournament", t.ID),
		zap.String("owner", t.OwnerID),
		zap.Int("capacity", t.Capacity),
	)
	return TournamentReply{Tournament: t.Clone()}
}

func (h *Hub) joinTournament(in bracket.JoinInput) TournamentReply {
	t, err := h.brackets.Join(in)
	if err != nil {
		return TournamentReply{Err: err}
	}
	if t.Status == bracket.TournamentRunning {
		if final := t.Final(); final != nil && final.Ready() {
			h.matchReady(t, final)
		}
	}
	h.pushTournament(t)
	return TournamentReply{Tournament: t.Clone()}
}

func (h *Hub) startTournament(tournamentID, userID string) TournamentReply {
	t, err := h.brackets.Start(tournamentID, userID)
	if err != nil {
		return TournamentReply{Err: err}
	}
	for _, m := range t.Matches {
		if m.Round == 1 && m.Ready() {
			h.matchReady(t, m)
		}
	}
	h.pushTournament(t)
	h.log.Info("tournament started", zap.String("tournament", t.ID), zap.Int("matches", len(t.Matches)))
	return TournamentReply{Tournament: t.Clone()}
}

func (h *Hub) getTournament(id string) TournamentReply {
	t, err := h.brackets.Get(id)
	if err != nil {
		return TournamentReply{Err: err}
	}
	return TournamentReply{Tournament: t.Clone()}
}

func (h *Hub) listTournaments(viewerID string) []*bracket.Tournament {
	list := h.brackets.List(viewerID)
	out := make([]*bracket.Tournament, 0, len(list))
	for _, t := range list {
		out = append(out, t.Clone())
	}
	return out
}

// reportResult records a bracket match winner and tells the players of the
// parent match when it becomes playable.
func (h *Hub) reportResult(roomID, winnerID string) {
	res, err := h.brackets.ReportResultByRoomID(roomID, winnerID)
	if err != nil {
		h.log.Warn("report result failed", zap.String("room", roomID), zap.Error(err))
		return
	}
	if !res.Changed {
		return
	}
	if res.Parent != nil && res.Parent.Ready() {
		h.matchReady(res.Tournament, res.Parent)
	}
	if res.Tournament.Status == bracket.TournamentFinished {
		h.log.Info("tournament finished", zap.String("tournament", res.Tournament.ID), zap.String("winner", winnerID))
	}
	h.pushTournament(res.Tournament)
}

// matchReady creates the room of a bracket match whose players are both known
// and points them at it.
func (h *Hub) matchReady(t *bracket.Tournament, m *bracket.Match) {
	if _, err := h.rooms.EnsureBracketRoom(m.RoomID); err != nil {
		h.log.Warn("bracket room unavailable", zap.String("room", m.RoomID), zap.Error(err))
		return
	}
	msg := types.NewMatchReady(t.ID, m)
	for _, uid := range m.Players() {
		h.sendUser(uid, msg)
	}
}

func (h *Hub) pushTournament(t *bracket.Tournament) {
	msg := types.NewTournament(t.Clone())
	for _, uid := range t.Players {
		h.sendUser(uid, msg)
	}
}
