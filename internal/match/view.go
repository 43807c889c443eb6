package match

import "github.com/DoyleJ11/arcade-arena/internal/engine"

type PlayerView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type Players struct {
	Left  *PlayerView `json:"left"`
	Right *PlayerView `json:"right"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type BallView struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	Size float64 `json:"size"`
}

type PhysicsView struct {
	Field   Size `json:"field"`
	Paddle  Size `json:"paddle"`
	Paddles struct {
		Left  engine.Vec2 `json:"left"`
		Right engine.Vec2 `json:"right"`
	} `json:"paddles"`
	Ball BallView `json:"ball"`
}

// View is the client-facing projection of a room.
type View struct {
	RoomID   string      `json:"roomId"`
	Status   Status      `json:"status"`
	Scores   Scores      `json:"scores"`
	MaxScore int         `json:"maxScore"`
	Players  Players     `json:"players"`
	Ready    *ReadyFlags `json:"ready,omitempty"`
	State    PhysicsView `json:"state"`
}

func (r *Room) View() View {
	p := r.Physics
	v := View{
		RoomID:   r.ID,
		Status:   r.Status,
		Scores:   r.Scores,
		MaxScore: r.MaxScore,
		Players:  r.PlayersView(),
	}
	if r.ReadyGated {
		ready := r.Ready
		v.Ready = &ready
	}

	v.State.Field = Size{Width: p.Rules.FieldWidth, Height: p.Rules.FieldHeight}
	v.State.Paddle = Size{Width: p.Rules.PaddleWidth, Height: p.Rules.PaddleHeight}
	v.State.Paddles.Left = engine.Vec2{X: p.PaddleX(engine.SideLeft), Y: p.LeftY}
	v.State.Paddles.Right = engine.Vec2{X: p.PaddleX(engine.SideRight), Y: p.RightY}
	v.State.Ball = BallView{X: p.Ball.X, Y: p.Ball.Y, VX: p.BallVel.X, VY: p.BallVel.Y, Size: p.Rules.BallSize}
	return v
}

func (r *Room) PlayersView() Players {
	return Players{Left: seatView(r.Left), Right: seatView(r.Right)}
}

func seatView(s *Seat) *PlayerView {
	if s == nil {
		return nil
	}
	return &PlayerView{UserID: s.UserID, DisplayName: s.DisplayName}
}
