package bracket

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type TournamentStatus string

const (
	TournamentWaiting  TournamentStatus = "waiting"
	TournamentRunning  TournamentStatus = "running"
	TournamentFinished TournamentStatus = "finished"
)

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

type MatchStatus string

const (
	MatchPending  MatchStatus = "pending"
	MatchPlaying  MatchStatus = "playing"
	MatchFinished MatchStatus = "finished"
)

type Match struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`
	Round  int    `json:"round"`

	Player1ID *string     `json:"player1Id"`
	Player2ID *string     `json:"player2Id"`
	Status    MatchStatus `json:"status"`
	WinnerID  *string     `json:"winnerId"`
	IsFinal   bool        `json:"isFinal"`

	// Child matches whose winners fill Player1ID and Player2ID. Nil for
	// first-round matches.
	SourceMatch1ID *string `json:"sourceMatch1Id"`
	SourceMatch2ID *string `json:"sourceMatch2Id"`
}

func (m *Match) HasPlayer(userID string) bool {
	return (m.Player1ID != nil && *m.Player1ID == userID) ||
		(m.Player2ID != nil && *m.Player2ID == userID)
}

// Ready reports whether both players are known and the match is unplayed.
func (m *Match) Ready() bool {
	return m.Player1ID != nil && m.Player2ID != nil && m.Status != MatchFinished
}

// Players returns the assigned players in slot order.
func (m *Match) Players() []string {
	var out []string
	for _, p := range []*string{m.Player1ID, m.Player2ID} {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

type Tournament struct {
	ID         string           `json:"id"`
	Name       string           `json:"name,omitempty"`
	OwnerID    string           `json:"ownerId"`
	Capacity   int              `json:"capacity"`
	Visibility Visibility       `json:"visibility"`
	Status     TournamentStatus `json:"status"`
	Players    []string         `json:"players"`
	Matches    []*Match         `json:"matches"`
	WinnerID   *string          `json:"winnerId"`
	CreatedAt  time.Time        `json:"createdAt"`

	joinCodeHash []byte
}

func (t *Tournament) HasPlayer(userID string) bool {
	for _, p := range t.Players {
		if p == userID {
			return true
		}
	}
	return false
}

func (t *Tournament) Match(id string) *Match {
	for _, m := range t.Matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Final returns the match marked IsFinal, or nil before the bracket exists.
func (t *Tournament) Final() *Match {
	for _, m := range t.Matches {
		if m.IsFinal {
			return m
		}
	}
	return nil
}

// CheckJoinCode reports whether code opens a private tournament. Public
// tournaments accept any code. bcrypt is slow; call it outside the hub loop
// on a cloned tournament.
func (t *Tournament) CheckJoinCode(code string) bool {
	if t.Visibility != Private {
		return true
	}
	return bcrypt.CompareHashAndPassword(t.joinCodeHash, []byte(code)) == nil
}

// Clone returns a deep copy that can leave the hub loop.
func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Players = append([]string(nil), t.Players...)
	c.joinCodeHash = append([]byte(nil), t.joinCodeHash...)
	c.WinnerID = cloneStr(t.WinnerID)
	c.Matches = make([]*Match, len(t.Matches))
	for i, m := range t.Matches {
		mc := *m
		mc.Player1ID = cloneStr(m.Player1ID)
		mc.Player2ID = cloneStr(m.Player2ID)
		mc.WinnerID = cloneStr(m.WinnerID)
		mc.SourceMatch1ID = cloneStr(m.SourceMatch1ID)
		mc.SourceMatch2ID = cloneStr(m.SourceMatch2ID)
		c.Matches[i] = &mc
	}
	return &c
}

// HashJoinCode hashes a private join code for CreateInput.
func HashJoinCode(code string) ([]byte, error) {
	if len(code) > MaxJoinCodeBytes {
		return nil, ErrJoinCodeTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
