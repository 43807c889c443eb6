// Package matchmaking maps users to rooms: explicit room requests, bracket
// rooms, and quick-match pairing.
//
// A Directory is not safe for concurrent use; it is owned by the hub loop.
package matchmaking

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/match"
)

const quickMatchPrefix = "q-"

var (
	ErrInvalidRoomID   = apperr.New(apperr.ErrValidation, "room id must be 1-128 letters, digits, '-' or '_'")
	ErrNotParticipant  = apperr.New(apperr.ErrAuthorization, "you are not a player in this bracket match")
	ErrRoomNotFound    = apperr.New(apperr.ErrNotFound, "room not found")
	ErrMatchNotPending = apperr.New(apperr.ErrConflict, "this bracket match has already been played")
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type Config struct {
	MaxScore int
	Rules    engine.Rules
}

type Directory struct {
	rooms    map[string]*match.Room
	order    []string
	byUser   map[string]string
	brackets *bracket.Manager
	cfg      Config
}

func NewDirectory(brackets *bracket.Manager, cfg Config) *Directory {
	return &Directory{
		rooms:    make(map[string]*match.Room),
		byUser:   make(map[string]string),
		brackets: brackets,
		cfg:      cfg,
	}
}

func (d *Directory) Get(roomID string) (*match.Room, bool) {
	r, ok := d.rooms[roomID]
	return r, ok
}

// RoomOf returns the room in which userID holds a seat.
func (d *Directory) RoomOf(userID string) (*match.Room, bool) {
	id, ok := d.byUser[userID]
	if !ok {
		return nil, false
	}
	return d.Get(id)
}

// Rooms returns live rooms in creation order.
func (d *Directory) Rooms() []*match.Room {
	out := make([]*match.Room, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id])
	}
	return out
}

// Join resolves the room for userID and seats them in it. A failed join
// leaves the directory as it was.
func (d *Directory) Join(userID, displayName, requestedRoomID string) (*match.Room, engine.Side, error) {
	_, existed := d.rooms[requestedRoomID]
	room, err := d.ResolveRoomForJoin(userID, requestedRoomID)
	if err != nil {
		return nil, "", err
	}
	side, err := d.AssignSeat(room, userID, displayName)
	if err != nil {
		if !existed && room.FreeSeats() == 2 {
			d.Retire(room.ID)
		}
		return nil, "", err
	}
	return room, side, nil
}

// ResolveRoomForJoin picks the room userID should join, creating it when
// needed:
//   - a room userID already sits in wins (reconnect);
//   - a bracket room requires userID to be one of the match's players;
//   - any other requested id is an ad-hoc room;
//   - no id pairs userID into a waiting quick-match room with one free seat,
//     or opens a new one.
func (d *Directory) ResolveRoomForJoin(userID, requestedRoomID string) (*match.Room, error) {
	if room, ok := d.RoomOf(userID); ok {
		return room, nil
	}

	if requestedRoomID == "" {
		return d.quickMatch(), nil
	}
	if !roomIDPattern.MatchString(requestedRoomID) {
		return nil, ErrInvalidRoomID
	}

	if t, bm, ok := d.brackets.MatchByRoomID(requestedRoomID); ok {
		if !bm.HasPlayer(userID) {
			return nil, ErrNotParticipant
		}
		return d.bracketRoom(t, bm)
	}
	if strings.HasPrefix(requestedRoomID, bracket.RoomPrefix) {
		return nil, ErrRoomNotFound
	}

	if room, ok := d.rooms[requestedRoomID]; ok {
		if room.FreeSeats() == 0 {
			return nil, match.ErrRoomFull
		}
		return room, nil
	}
	return d.create(requestedRoomID, match.Options{}), nil
}

// AssignSeat seats userID in room and indexes the seat.
func (d *Directory) AssignSeat(room *match.Room, userID, displayName string) (engine.Side, error) {
	side, err := room.AssignSeat(userID, displayName)
	if err != nil {
		return "", err
	}
	d.byUser[userID] = room.ID
	return side, nil
}

// EnsureBracketRoom creates the room of a joinable bracket match ahead of
// its players arriving.
func (d *Directory) EnsureBracketRoom(roomID string) (*match.Room, error) {
	t, bm, ok := d.brackets.MatchByRoomID(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return d.bracketRoom(t, bm)
}

// Retire removes a room and the seat index entries pointing at it.
func (d *Directory) Retire(roomID string) {
	room, ok := d.rooms[roomID]
	if !ok {
		return
	}
	for _, uid := range room.UserIDs() {
		if d.byUser[uid] == roomID {
			delete(d.byUser, uid)
		}
	}
	delete(d.rooms, roomID)
	for i, id := range d.order {
		if id == roomID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Directory) bracketRoom(t *bracket.Tournament, bm *bracket.Match) (*match.Room, error) {
	if room, ok := d.rooms[bm.RoomID]; ok {
		return room, nil
	}
	if bm.Status == bracket.MatchFinished {
		return nil, ErrMatchNotPending
	}
	return d.create(bm.RoomID, match.Options{
		ReadyGated: true,
		Tournament: &match.TournamentLink{TournamentID: t.ID, MatchID: bm.ID},
	}), nil
}

func (d *Directory) quickMatch() *match.Room {
	for _, id := range d.order {
		room := d.rooms[id]
		if isQuickMatch(room) && room.Status == match.StatusWaiting && room.FreeSeats() == 1 {
			return room
		}
	}
	return d.create(quickMatchPrefix+uuid.NewString(), match.Options{ReadyGated: true})
}

// isQuickMatch excludes named ad-hoc rooms, which start without a ready step.
func isQuickMatch(room *match.Room) bool {
	return !room.IsTournament() && room.ReadyGated && strings.HasPrefix(room.ID, quickMatchPrefix)
}

func (d *Directory) create(id string, opts match.Options) *match.Room {
	opts.MaxScore = d.cfg.MaxScore
	opts.Rules = d.cfg.Rules
	room := match.New(id, opts)
	d.rooms[id] = room
	d.order = append(d.order, id)
	return room
}
