package engine

import "math/rand/v2"

// NewState returns a state with paddles centered and the ball at rest in the
// middle of the field.
func NewState(r Rules) State {
	s := State{Rules: r}
	s.CenterPaddles()
	s.Ball = Vec2{X: r.FieldWidth / 2, Y: r.FieldHeight / 2}
	return s
}

func ParseDirection(v string) (Direction, bool) {
	switch Direction(v) {
	case DirUp, DirDown, DirNone:
		return Direction(v), true
	case "":
		return DirNone, true
	default:
		return "", false
	}
}

// RandomSide picks the side that receives the opening serve.
func RandomSide(rng *rand.Rand) Side {
	if rng.IntN(2) == 0 {
		return SideLeft
	}
	return SideRight
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{v.X + w.X, v.Y + w.Y}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

func direction(d Direction) float64 {
	switch d {
	case DirUp:
		return -1
	case DirDown:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
