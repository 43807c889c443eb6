package types

import (
	"encoding/json"

	"github.com/DoyleJ11/arcade-arena/internal/apperr"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
)

var (
	ErrMalformed        = apperr.New(apperr.ErrValidation, "malformed message")
	ErrUnknownType      = apperr.New(apperr.ErrValidation, "unknown message type")
	ErrInvalidDirection = apperr.New(apperr.ErrValidation, "direction must be up, down or none")
)

// ClientMessage is a decoded inbound frame: one of JoinMsg, InputMsg,
// ReadyMsg or LeaveMsg.
type ClientMessage interface{ isClientMessage() }

type JoinMsg struct {
	// RoomID is empty for quick-match.
	RoomID string
}

type InputMsg struct {
	Direction engine.Direction
}

type ReadyMsg struct{}

type LeaveMsg struct{}

func (JoinMsg) isClientMessage()  {}
func (InputMsg) isClientMessage() {}
func (ReadyMsg) isClientMessage() {}
func (LeaveMsg) isClientMessage() {}

type envelope struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	Direction string `json:"direction"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformed
	}

	switch env.Type {
	case "join":
		return JoinMsg{RoomID: env.RoomID}, nil
	case "input":
		if env.Direction == "" {
			return nil, ErrInvalidDirection
		}
		dir, ok := engine.ParseDirection(env.Direction)
		if !ok {
			return nil, ErrInvalidDirection
		}
		return InputMsg{Direction: dir}, nil
	case "ready":
		return ReadyMsg{}, nil
	case "leave":
		return LeaveMsg{}, nil
	case "":
		return nil, ErrMalformed
	default:
		return nil, ErrUnknownType
	}
}
