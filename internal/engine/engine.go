package engine

import (
	"math"
	"math/rand/v2"
)

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Opponent() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
	DirNone Direction = "none"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the physics state of one room. Paddle positions are the top edge;
// the ball position is its center.
type State struct {
	Rules   Rules
	LeftY   float64
	RightY  float64
	Ball    Vec2
	BallVel Vec2
}

type EventType string

const (
	EvtWallBounce  EventType = "WallBounce"
	EvtPaddleHit   EventType = "PaddleHit"
	EvtPointScored EventType = "PointScored"
)

// Event.Side is the paddle that was hit, or the side that scored.
type Event struct {
	Type EventType
	Side Side
}

// Step advances s by dt seconds. After a point the ball is served toward the
// side that conceded and both paddles are re-centered.
func Step(s *State, inputs map[Side]Direction, dt float64, rng *rand.Rand) []Event {
	r := s.Rules
	var events []Event

	maxY := r.FieldHeight - r.PaddleHeight
	s.LeftY = clamp(s.LeftY+direction(inputs[SideLeft])*r.PaddleSpeed*dt, 0, maxY)
	s.RightY = clamp(s.RightY+direction(inputs[SideRight])*r.PaddleSpeed*dt, 0, maxY)

	prev := s.Ball
	s.Ball = s.Ball.Add(s.BallVel.Scale(dt))

	half := r.BallSize / 2
	if s.Ball.Y-half < 0 {
		s.Ball.Y = half
		s.BallVel.Y = math.Abs(s.BallVel.Y)
		events = append(events, Event{Type: EvtWallBounce})
	} else if s.Ball.Y+half > r.FieldHeight {
		s.Ball.Y = r.FieldHeight - half
		s.BallVel.Y = -math.Abs(s.BallVel.Y)
		events = append(events, Event{Type: EvtWallBounce})
	}

	if s.BallVel.X < 0 && s.hitsPaddle(SideLeft, prev) {
		s.Ball.X = s.PaddleX(SideLeft) + r.PaddleWidth + half
		s.bounce(1, rng)
		events = append(events, Event{Type: EvtPaddleHit, Side: SideLeft})
	} else if s.BallVel.X > 0 && s.hitsPaddle(SideRight, prev) {
		s.Ball.X = s.PaddleX(SideRight) - half
		s.bounce(-1, rng)
		events = append(events, Event{Type: EvtPaddleHit, Side: SideRight})
	}

	var scorer Side
	switch {
	case s.Ball.X < 0:
		scorer = SideRight
	case s.Ball.X > r.FieldWidth:
		scorer = SideLeft
	default:
		return events
	}

	s.CenterPaddles()
	Serve(s, scorer.Opponent(), rng)
	return append(events, Event{Type: EvtPointScored, Side: scorer})
}

// Serve puts the ball at the center and launches it toward the given side at
// a random angle within MaxServeAngle of horizontal.
func Serve(s *State, toward Side, rng *rand.Rand) {
	r := s.Rules
	s.Ball = Vec2{X: r.FieldWidth / 2, Y: r.FieldHeight / 2}

	angle := (rng.Float64()*2 - 1) * r.MaxServeAngle
	dir := 1.0
	if toward == SideLeft {
		dir = -1
	}
	s.BallVel = Vec2{
		X: dir * r.ServeSpeed * math.Cos(angle),
		Y: r.ServeSpeed * math.Sin(angle),
	}
}

func (s *State) CenterPaddles() {
	y := (s.Rules.FieldHeight - s.Rules.PaddleHeight) / 2
	s.LeftY, s.RightY = y, y
}

// PaddleX returns the x of the paddle's left edge.
func (s *State) PaddleX(side Side) float64 {
	if side == SideLeft {
		return s.Rules.PaddleMargin
	}
	return s.Rules.FieldWidth - s.Rules.PaddleMargin - s.Rules.PaddleWidth
}

func (s *State) PaddleY(side Side) float64 {
	if side == SideLeft {
		return s.LeftY
	}
	return s.RightY
}

func (s *State) overlapsPaddle(side Side) bool {
	r := s.Rules
	half := r.BallSize / 2
	px, py := s.PaddleX(side), s.PaddleY(side)
	return s.Ball.X-half < px+r.PaddleWidth &&
		s.Ball.X+half > px &&
		s.Ball.Y-half < py+r.PaddleHeight &&
		s.Ball.Y+half > py
}

// hitsPaddle reports whether the ball ends the step overlapping the paddle or
// crossed its face since prev, using the ball's height where it met the face.
func (s *State) hitsPaddle(side Side, prev Vec2) bool {
	if s.overlapsPaddle(side) {
		return true
	}
	r := s.Rules
	half := r.BallSize / 2
	face := s.PaddleX(side) + r.PaddleWidth
	from, to := prev.X-half, s.Ball.X-half
	if side == SideRight {
		face = s.PaddleX(side)
		from, to = prev.X+half, s.Ball.X+half
	}
	if (from-face)*(to-face) > 0 || from == to {
		return false
	}
	if (side == SideLeft && from < face) || (side == SideRight && from > face) {
		return false
	}
	y := prev.Y + (s.Ball.Y-prev.Y)*(face-from)/(to-from)
	py := s.PaddleY(side)
	return y-half < py+r.PaddleHeight && y+half > py
}

// bounce sends the ball away from a paddle in direction dir (+1 right, -1
// left), speeding it up and picking a fresh vertical component.
func (s *State) bounce(dir float64, rng *rand.Rand) {
	speed := math.Min(math.Abs(s.BallVel.X)*s.Rules.SpeedUp, s.Rules.MaxBallSpeed)
	s.BallVel.X = dir * speed
	s.BallVel.Y = (rng.Float64()*2 - 1) * s.Rules.VerticalRatio * speed
}
