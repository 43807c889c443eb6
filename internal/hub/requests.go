package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/arcade-arena/internal/bracket"
)

var ErrStopped = errors.New("hub stopped")

// request posts a message built around reply and waits for the answer.
func request[T any](ctx context.Context, h *Hub, build func(reply chan T) HubMsg) (T, error) {
	var zero T
	reply := make(chan T, 1)
	select {
	case h.inbox <- build(reply):
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrStopped
	}
}

func tournamentRequest(ctx context.Context, h *Hub, build func(reply chan TournamentReply) HubMsg) (*bracket.Tournament, error) {
	res, err := request(ctx, h, build)
	if err != nil {
		return nil, err
	}
	return res.Tournament, res.Err
}

func (h *Hub) CreateTournament(ctx context.Context, ownerID string, in bracket.CreateInput) (*bracket.Tournament, error) {
	return tournamentRequest(ctx, h, func(reply chan TournamentReply) HubMsg {
		return CreateTournament{OwnerID: ownerID, Input: in, Reply: reply}
	})
}

func (h *Hub) JoinTournament(ctx context.Context, in bracket.JoinInput) (*bracket.Tournament, error) {
	return tournamentRequest(ctx, h, func(reply chan TournamentReply) HubMsg {
		return JoinTournament{Input: in, Reply: reply}
	})
}

func (h *Hub) StartTournament(ctx context.Context, tournamentID, userID string) (*bracket.Tournament, error) {
	return tournamentRequest(ctx, h, func(reply chan TournamentReply) HubMsg {
		return StartTournament{TournamentID: tournamentID, UserID: userID, Reply: reply}
	})
}

func (h *Hub) Tournament(ctx context.Context, id string) (*bracket.Tournament, error) {
	return tournamentRequest(ctx, h, func(reply chan TournamentReply) HubMsg {
		return GetTournament{TournamentID: id, Reply: reply}
	})
}

func (h *Hub) Tournaments(ctx context.Context, viewerID string) ([]*bracket.Tournament, error) {
	return request(ctx, h, func(reply chan []*bracket.Tournament) HubMsg {
		return ListTournaments{ViewerID: viewerID, Reply: reply}
	})
}

func (h *Hub) IsOnline(ctx context.Context, userID string) (bool, error) {
	return request(ctx, h, func(reply chan bool) HubMsg {
		return PresenceQuery{UserID: userID, Reply: reply}
	})
}

func (h *Hub) Room(ctx context.Context, roomID string) (RoomInfo, error) {
	return request(ctx, h, func(reply chan RoomInfo) HubMsg {
		return GetRoom{RoomID: roomID, Reply: reply}
	})
}
