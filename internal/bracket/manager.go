// Package bracket stores tournaments and their single-elimination brackets.
// A bracket is a flat list of matches; internal matches point at the two
// child matches whose winners fill their slots.
//
// A Manager is not safe for concurrent use; it is owned by the hub loop.
package bracket

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
)

const (
	DefaultCapacity = 4
	MaxCapacity     = 64
	MaxNameLength   = 64
	// MaxJoinCodeBytes is the longest input bcrypt will hash.
	MaxJoinCodeBytes = 72

	// RoomPrefix namespaces the room ids of bracket matches.
	RoomPrefix = "t-"
)

var (
	ErrTournamentNotFound = apperr.New(apperr.ErrNotFound, "tournament not found")
	ErrMatchNotFound      = apperr.New(apperr.ErrNotFound, "match not found")
	ErrTournamentFull     = apperr.New(apperr.ErrCapacity, "tournament is full")
	ErrNotJoinable        = apperr.New(apperr.ErrConflict, "tournament is not accepting players")
	ErrWrongJoinCode      = apperr.New(apperr.ErrConflict, "wrong join code")
	ErrAlreadyStarted     = apperr.New(apperr.ErrConflict, "tournament already started")
	ErrNotEnoughPlayers   = apperr.New(apperr.ErrConflict, "tournament needs a full roster to start")
	ErrNotOwner           = apperr.New(apperr.ErrAuthorization, "only the owner can start a tournament")
	ErrJoinCodeRequired   = apperr.New(apperr.ErrValidation, "private tournaments need a join code")
	ErrInvalidVisibility  = apperr.New(apperr.ErrValidation, "visibility must be public or private")
	ErrWinnerNotInMatch   = apperr.New(apperr.ErrValidation, "winner is not part of this match")
	ErrNameTooLong        = apperr.New(apperr.ErrValidation, fmt.Sprintf("name exceeds %d characters", MaxNameLength))
	ErrJoinCodeTooLong    = apperr.New(apperr.ErrValidation, fmt.Sprintf("join code exceeds %d bytes", MaxJoinCodeBytes))
)

type CreateInput struct {
	Name       string
	Capacity   int
	Visibility Visibility
	// JoinCodeHash comes from HashJoinCode; required for private tournaments.
	JoinCodeHash []byte
}

// JoinInput carries the outcome of CheckJoinCode, which the caller runs
// before entering the hub loop.
type JoinInput struct {
	TournamentID string
	UserID       string
	CodeVerified bool
}

type Result struct {
	Tournament *Tournament
	Match      *Match
	// Parent is the match that received the winner, if any.
	Parent *Match
	// Changed is false when the match had already been reported.
	Changed bool
}

type roomRef struct {
	tournamentID string
	matchID      string
}

type Manager struct {
	tournaments map[string]*Tournament
	order       []string
	byRoom      map[string]roomRef
	now         func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		tournaments: make(map[string]*Tournament),
		byRoom:      make(map[string]roomRef),
		now:         time.Now,
	}
}

// Create registers a tournament owned by ownerID, who joins it as the first
// player. Capacities that are not a power of two in [2, MaxCapacity] fall
// back to DefaultCapacity.
func (m *Manager) Create(ownerID string, in CreateInput) (*Tournament, error) {
	name := norm.NFC.String(strings.TrimSpace(in.Name))
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, ErrNameTooLong
	}

	vis := in.Visibility
	switch vis {
	case "":
		vis = Public
	case Public, Private:
	default:
		return nil, ErrInvalidVisibility
	}
	if vis == Private && len(in.JoinCodeHash) == 0 {
		return nil, ErrJoinCodeRequired
	}

	capacity := in.Capacity
	if !validCapacity(capacity) {
		capacity = DefaultCapacity
	}

	t := &Tournament{
		ID:         uuid.NewString(),
		Name:       name,
		OwnerID:    ownerID,
		Capacity:   capacity,
		Visibility: vis,
		Status:     TournamentWaiting,
		Players:    []string{ownerID},
		Matches:    []*Match{},
		CreatedAt:  m.now(),
	}
	if vis == Private {
		t.joinCodeHash = in.JoinCodeHash
	}

	m.tournaments[t.ID] = t
	m.order = append(m.order, t.ID)
	return t, nil
}

func (m *Manager) Get(id string) (*Tournament, error) {
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return t, nil
}

// List returns public tournaments plus private ones viewerID belongs to, in
// creation order.
func (m *Manager) List(viewerID string) []*Tournament {
	out := []*Tournament{}
	for _, id := range m.order {
		t := m.tournaments[id]
		if t.Visibility == Public || t.OwnerID == viewerID || t.HasPlayer(viewerID) {
			out = append(out, t)
		}
	}
	return out
}

// Join adds a player. Joining twice returns the current state unchanged.
// A running two-player tournament with an open seat accepts a late joiner
// into the final.
func (m *Manager) Join(in JoinInput) (*Tournament, error) {
	t, err := m.Get(in.TournamentID)
	if err != nil {
		return nil, err
	}
	if t.HasPlayer(in.UserID) {
		return t, nil
	}

	lateJoin := t.Status == TournamentRunning && t.Capacity == 2 && len(t.Players) < 2
	if t.Status != TournamentWaiting && !lateJoin {
		return nil, ErrNotJoinable
	}
	if len(t.Players) >= t.Capacity {
		return nil, ErrTournamentFull
	}
	if t.Visibility == Private && !in.CodeVerified {
		return nil, ErrWrongJoinCode
	}

	if lateJoin {
		final := t.Final()
		if final == nil || final.Status == MatchFinished {
			return nil, ErrNotJoinable
		}
		fillSlot(final, in.UserID, 0)
	}
	t.Players = append(t.Players, in.UserID)
	return t, nil
}

// Start builds the bracket. Only the owner may start, and only with a full
// roster; a two-player tournament may start with just the owner, leaving the
// final's second seat open for a late joiner.
func (m *Manager) Start(tournamentID, userID string) (*Tournament, error) {
	t, err := m.Get(tournamentID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != userID {
		return nil, ErrNotOwner
	}
	if t.Status != TournamentWaiting {
		return nil, ErrAlreadyStarted
	}
	soloStart := t.Capacity == 2 && len(t.Players) == 1
	if len(t.Players) != t.Capacity && !soloStart {
		return nil, ErrNotEnoughPlayers
	}

	t.Matches = generateBracket(t.ID, t.Players, t.Capacity)
	for _, match := range t.Matches {
		m.byRoom[match.RoomID] = roomRef{tournamentID: t.ID, matchID: match.ID}
	}
	t.Status = TournamentRunning
	return t, nil
}

// MatchByRoomID resolves a bracket room id.
func (m *Manager) MatchByRoomID(roomID string) (*Tournament, *Match, bool) {
	ref, ok := m.byRoom[roomID]
	if !ok {
		return nil, nil, false
	}
	t := m.tournaments[ref.tournamentID]
	match := t.Match(ref.matchID)
	return t, match, match != nil
}

// MarkPlaying flags the match behind roomID as in progress.
func (m *Manager) MarkPlaying(roomID string) {
	if _, match, ok := m.MatchByRoomID(roomID); ok && match.Status == MatchPending {
		match.Status = MatchPlaying
	}
}

// ReportResultByRoomID records winnerID for the match behind roomID and
// moves the winner into the parent match. Reporting an already finished
// match returns it unchanged.
func (m *Manager) ReportResultByRoomID(roomID, winnerID string) (Result, error) {
	t, match, ok := m.MatchByRoomID(roomID)
	if !ok {
		return Result{}, ErrMatchNotFound
	}
	if match.Status == MatchFinished {
		return Result{Tournament: t, Match: match}, nil
	}
	if !match.HasPlayer(winnerID) {
		return Result{}, ErrWinnerNotInMatch
	}

	match.Status = MatchFinished
	match.WinnerID = ptr(winnerID)
	res := Result{Tournament: t, Match: match, Changed: true}

	if match.IsFinal {
		t.Status = TournamentFinished
		t.WinnerID = ptr(winnerID)
		return res, nil
	}

	for _, parent := range t.Matches {
		switch {
		case parent.SourceMatch1ID != nil && *parent.SourceMatch1ID == match.ID:
			fillSlot(parent, winnerID, 1)
		case parent.SourceMatch2ID != nil && *parent.SourceMatch2ID == match.ID:
			fillSlot(parent, winnerID, 2)
		default:
			continue
		}
		res.Parent = parent
		break
	}
	return res, nil
}

// fillSlot puts userID in the preferred slot (1 or 2) when it is empty, else
// the first empty slot.
func fillSlot(match *Match, userID string, preferred int) {
	switch {
	case preferred == 1 && match.Player1ID == nil:
		match.Player1ID = ptr(userID)
	case preferred == 2 && match.Player2ID == nil:
		match.Player2ID = ptr(userID)
	case match.Player1ID == nil:
		match.Player1ID = ptr(userID)
	case match.Player2ID == nil:
		match.Player2ID = ptr(userID)
	}
}

func validCapacity(n int) bool {
	return n >= 2 && n <= MaxCapacity && n&(n-1) == 0
}
