// Package types defines the websocket wire messages exchanged with clients.
// Every frame is a JSON object whose "type" field selects its shape.
package types

import (
	"github.com/DoyleJ11/arcade-arena/internal/bracket"
	"github.com/DoyleJ11/arcade-arena/internal/engine"
	"github.com/DoyleJ11/arcade-arena/internal/match"
)

// Outbound message types.
const (
	TypeState      = "state"
	TypeJoined     = "joined"
	TypeReadyAck   = "ready:ack"
	TypeFinished   = "finished"
	TypeError      = "error"
	TypeCountdown  = "countdown"
	TypePresence   = "presence"
	TypeMatchReady = "match:ready"
	TypeTournament = "tournament"
)

// ServerMessage is any frame the server sends. The concrete types below are
// built by their constructors, which fill in Type.
type ServerMessage interface {
	MessageType() string
}

type StateMsg struct {
	Type string `json:"type"`
	match.View
	YourSide engine.Side `json:"yourSide,omitempty"`
}

func NewState(v match.View, yourSide engine.Side) StateMsg {
	return StateMsg{Type: TypeState, View: v, YourSide: yourSide}
}

type JoinedMsg struct {
	Type     string           `json:"type"`
	RoomID   string           `json:"roomId"`
	YourSide engine.Side      `json:"yourSide"`
	Ready    match.ReadyFlags `json:"ready"`
	Players  match.Players    `json:"players"`
	Status   match.Status     `json:"status"`
}

func NewJoined(r *match.Room, yourSide engine.Side) JoinedMsg {
	return JoinedMsg{
		Type:     TypeJoined,
		RoomID:   r.ID,
		YourSide: yourSide,
		Ready:    r.Ready,
		Players:  r.PlayersView(),
		Status:   r.Status,
	}
}

type ReadyAckMsg struct {
	Type   string           `json:"type"`
	RoomID string           `json:"roomId"`
	Ready  match.ReadyFlags `json:"ready"`
}

func NewReadyAck(roomID string, ready match.ReadyFlags) ReadyAckMsg {
	return ReadyAckMsg{Type: TypeReadyAck, RoomID: roomID, Ready: ready}
}

type FinishedMsg struct {
	Type         string       `json:"type"`
	RoomID       string       `json:"roomId"`
	WinnerUserID string       `json:"winnerUserId,omitempty"`
	Scores       match.Scores `json:"scores"`
	Forfeit      bool         `json:"forfeit"`
	IsTournament bool         `json:"isTournament"`
	TournamentID string       `json:"tournamentId,omitempty"`
	MatchID      string       `json:"matchId,omitempty"`
}

func NewFinished(r *match.Room) FinishedMsg {
	m := FinishedMsg{
		Type:         TypeFinished,
		RoomID:       r.ID,
		WinnerUserID: r.WinnerUserID(),
		Scores:       r.Scores,
		Forfeit:      r.Forfeited,
		IsTournament: r.IsTournament(),
	}
	if r.Tournament != nil {
		m.TournamentID = r.Tournament.TournamentID
		m.MatchID = r.Tournament.MatchID
	}
	return m
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}

type CountdownMsg struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Seconds int    `json:"seconds"`
}

func NewCountdown(roomID string, seconds int) CountdownMsg {
	return CountdownMsg{Type: TypeCountdown, RoomID: roomID, Seconds: seconds}
}

type PresenceMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

func NewPresence(userID string, online bool) PresenceMsg {
	return PresenceMsg{Type: TypePresence, UserID: userID, Online: online}
}

type MatchReadyMsg struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	RoomID       string `json:"roomId"`
}

func NewMatchReady(tournamentID string, m *bracket.Match) MatchReadyMsg {
	return MatchReadyMsg{Type: TypeMatchReady, TournamentID: tournamentID, MatchID: m.ID, RoomID: m.RoomID}
}

// TournamentMsg carries a snapshot; callers pass a Clone.
type TournamentMsg struct {
	Type       string              `json:"type"`
	Tournament *bracket.Tournament `json:"tournament"`
}

func NewTournament(t *bracket.Tournament) TournamentMsg {
	return TournamentMsg{Type: TypeTournament, Tournament: t}
}

func (m StateMsg) MessageType() string      { return m.Type }
func (m JoinedMsg) MessageType() string     { return m.Type }
func (m ReadyAckMsg) MessageType() string   { return m.Type }
func (m FinishedMsg) MessageType() string   { return m.Type }
func (m ErrorMsg) MessageType() string      { return m.Type }
func (m CountdownMsg) MessageType() string  { return m.Type }
func (m PresenceMsg) MessageType() string   { return m.Type }
func (m MatchReadyMsg) MessageType() string { return m.Type }
func (m TournamentMsg) MessageType() string { return m.Type }
