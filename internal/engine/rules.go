package engine

import "math"

// Rules holds the field geometry and tuning. Speeds are in field units per
// second; positions are scaled by the tick interval in Step.
type Rules struct {
	FieldWidth   float64
	FieldHeight  float64
	PaddleWidth  float64
	PaddleHeight float64
	PaddleMargin float64
	PaddleSpeed  float64
	BallSize     float64

	ServeSpeed    float64
	MaxBallSpeed  float64
	SpeedUp       float64 // multiplier applied to horizontal speed per paddle hit
	VerticalRatio float64 // max |vy| after a paddle hit, as a fraction of |vx|
	MaxServeAngle float64 // radians either side of horizontal
}

func DefaultRules() Rules {
	return Rules{
		FieldWidth:    800,
		FieldHeight:   600,
		PaddleWidth:   12,
		PaddleHeight:  90,
		PaddleMargin:  20,
		PaddleSpeed:   420,
		BallSize:      16,
		ServeSpeed:    360,
		MaxBallSpeed:  850,
		SpeedUp:       1.05,
		VerticalRatio: 0.75,
		MaxServeAngle: math.Pi / 6,
	}
}
