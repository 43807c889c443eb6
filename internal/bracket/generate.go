package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// RoomIDFor returns the namespaced room id of a bracket match.
func RoomIDFor(tournamentID, matchID string) string {
	return fmt.Sprintf("%s%s-%s", RoomPrefix, tournamentID, matchID)
}

// generateBracket pairs players in join order into first-round matches, then
// pairs each round's matches into parents until one match, the final, is
// left. Seats beyond len(players) stay empty.
func generateBracket(tournamentID string, players []string, capacity int) []*Match {
	var all []*Match

	newMatch := func(round int) *Match {
		id := uuid.NewString()
		return &Match{
			ID:     id,
			RoomID: RoomIDFor(tournamentID, id),
			Round:  round,
			Status: MatchPending,
		}
	}

	round := 1
	var current []*Match
	for i := 0; i < capacity; i += 2 {
		m := newMatch(round)
		if i < len(players) {
			m.Player1ID = ptr(players[i])
		}
		if i+1 < len(players) {
			m.Player2ID = ptr(players[i+1])
		}
		current = append(current, m)
	}
	all = append(all, current...)

	for len(current) > 1 {
		round++
		next := make([]*Match, 0, len(current)/2)
		for i := 0; i+1 < len(current); i += 2 {
			m := newMatch(round)
			m.SourceMatch1ID = ptr(current[i].ID)
			m.SourceMatch2ID = ptr(current[i+1].ID)
			next = append(next, m)
		}
		all = append(all, next...)
		current = next
	}

	current[0].IsFinal = true
	return all
}
