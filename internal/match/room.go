// Package match holds the per-room state machine of a two-seat match:
// seating, ready-gating, the physics tick, scoring and forfeits.
//
// A Room is not safe for concurrent use. Every method is called from the hub
// loop, which also owns the tick timer.
package match

import (
	"math/rand/v2"
	"time"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
)

var (
	ErrRoomFull     = apperr.New(apperr.ErrCapacity, "room is full")
	ErrRoomFinished = apperr.New(apperr.ErrConflict, "room is already finished")
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Seat struct {
	UserID      string
	DisplayName string
	Input       engine.Direction
}

type Scores struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type ReadyFlags struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type TournamentLink struct {
	TournamentID string
	MatchID      string
}

type Options struct {
	MaxScore   int
	ReadyGated bool
	Tournament *TournamentLink
	Rules      engine.Rules
	Rand       *rand.Rand
}

type Room struct {
	ID         string
	Status     Status
	Left       *Seat
	Right      *Seat
	Physics    engine.State
	Scores     Scores
	MaxScore   int
	ReadyGated bool
	Ready      ReadyFlags
	Tournament *TournamentLink

	Winner    engine.Side
	Forfeited bool
	CreatedAt time.Time

	rng *rand.Rand
}

func New(id string, opts Options) *Room {
	if opts.MaxScore <= 0 {
		opts.MaxScore = 5
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Room{
		ID:         id,
		Status:     StatusWaiting,
		Physics:    engine.NewState(opts.Rules),
		MaxScore:   opts.MaxScore,
		ReadyGated: opts.ReadyGated,
		Tournament: opts.Tournament,
		CreatedAt:  time.Now(),
		rng:        opts.Rand,
	}
}

func (r *Room) IsTournament() bool { return r.Tournament != nil }

func (r *Room) Seat(side engine.Side) *Seat {
	if side == engine.SideLeft {
		return r.Left
	}
	return r.Right
}

// SideOf reports which seat userID holds.
func (r *Room) SideOf(userID string) (engine.Side, bool) {
	switch {
	case r.Left != nil && r.Left.UserID == userID:
		return engine.SideLeft, true
	case r.Right != nil && r.Right.UserID == userID:
		return engine.SideRight, true
	default:
		return "", false
	}
}

func (r *Room) FreeSeats() int {
	n := 0
	if r.Left == nil {
		n++
	}
	if r.Right == nil {
		n++
	}
	return n
}

// UserIDs returns the seated users, left first.
func (r *Room) UserIDs() []string {
	var ids []string
	for _, s := range []*Seat{r.Left, r.Right} {
		if s != nil {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

// AssignSeat returns the user's existing side, or fills left then right.
func (r *Room) AssignSeat(userID, displayName string) (engine.Side, error) {
	if side, ok := r.SideOf(userID); ok {
		return side, nil
	}
	if r.Status == StatusFinished {
		return "", ErrRoomFinished
	}
	seat := &Seat{UserID: userID, DisplayName: displayName, Input: engine.DirNone}
	switch {
	case r.Left == nil:
		r.Left = seat
		return engine.SideLeft, nil
	case r.Right == nil:
		r.Right = seat
		return engine.SideRight, nil
	default:
		return "", ErrRoomFull
	}
}

// SetInput records the latest direction for userID's seat.
func (r *Room) SetInput(userID string, dir engine.Direction) bool {
	side, ok := r.SideOf(userID)
	if !ok || r.Status == StatusFinished {
		return false
	}
	r.Seat(side).Input = dir
	return true
}

// SetReady raises userID's ready flag. It is ignored unless the room is
// waiting.
func (r *Room) SetReady(userID string) bool {
	side, ok := r.SideOf(userID)
	if !ok || r.Status != StatusWaiting {
		return false
	}
	if side == engine.SideLeft {
		r.Ready.Left = true
	} else {
		r.Ready.Right = true
	}
	return true
}

// CanStart reports whether a waiting room has both seats filled and, when
// ready-gated, both ready flags set.
func (r *Room) CanStart() bool {
	if r.Status != StatusWaiting || r.FreeSeats() != 0 {
		return false
	}
	return !r.ReadyGated || (r.Ready.Left && r.Ready.Right)
}

// Start moves a startable room to playing and serves the first ball.
func (r *Room) Start() bool {
	if !r.CanStart() {
		return false
	}
	r.Status = StatusPlaying
	r.Ready = ReadyFlags{}
	r.Scores = Scores{}
	r.Physics = engine.NewState(r.Physics.Rules)
	engine.Serve(&r.Physics, engine.RandomSide(r.rng), r.rng)
	return true
}

// Tick advances a playing room by dt. It returns true when this tick
// finished the room.
func (r *Room) Tick(dt time.Duration) bool {
	if r.Status != StatusPlaying {
		return false
	}
	inputs := map[engine.Side]engine.Direction{}
	if r.Left != nil {
		inputs[engine.SideLeft] = r.Left.Input
	}
	if r.Right != nil {
		inputs[engine.SideRight] = r.Right.Input
	}

	for _, ev := range engine.Step(&r.Physics, inputs, dt.Seconds(), r.rng) {
		if ev.Type != engine.EvtPointScored {
			continue
		}
		if ev.Side == engine.SideLeft {
			r.Scores.Left++
		} else {
			r.Scores.Right++
		}
	}

	if r.Scores.Left >= r.MaxScore || r.Scores.Right >= r.MaxScore {
		winner := engine.SideLeft
		if r.Scores.Right > r.Scores.Left {
			winner = engine.SideRight
		}
		r.finish(winner, false)
		return true
	}
	return false
}

// Forfeit finishes the room in favour of the seat userID does not hold. It
// returns false when the room was already finished or userID is not seated.
func (r *Room) Forfeit(userID string) bool {
	side, ok := r.SideOf(userID)
	if !ok || r.Status == StatusFinished {
		return false
	}
	winner := side.Opponent()
	if r.Seat(winner) == nil {
		winner = ""
	}
	r.finish(winner, true)
	return true
}

func (r *Room) finish(winner engine.Side, forfeit bool) {
	if r.Status == StatusFinished {
		return
	}
	r.Status = StatusFinished
	r.Ready = ReadyFlags{}
	r.Winner = winner
	r.Forfeited = forfeit
}

// WinnerUserID is empty when the room is unfinished or ended without an
// opponent present.
func (r *Room) WinnerUserID() string {
	if r.Winner == "" {
		return ""
	}
	if s := r.Seat(r.Winner); s != nil {
		return s.UserID
	}
	return ""
}
