// game/score.go
package game

import (
	"sort"
	"time"

	"github.com/wfunc/broinkroyale/physics"
)

// Knockout credits PlayerID with eliminating VictimID. Timestamp is unix ms.
type Knockout struct {
	PlayerID  string `json:"playerId"`
	VictimID  string `json:"victimId"`
	Timestamp int64  `json:"timestamp"`
}

// Elimination is the outcome of one elimination pass. All slices are
// sorted by player id.
type Elimination struct {
	Eliminated []string
	Knockouts  []Knockout
	Alive      []string
}

// Winner returns the sole survivor, if exactly one player is alive.
func (e Elimination) Winner() (string, bool) {
	if len(e.Alive) != 1 {
		return "", false
	}
	return e.Alive[0], true
}

// ScoreKeeper decides who fell out of the arena and who gets credit.
type ScoreKeeper struct {
	contacts *ContactTracker
}

func NewScoreKeeper(contacts *ContactTracker) *ScoreKeeper {
	return &ScoreKeeper{contacts: contacts}
}

// Evaluate runs the elimination pass over every alive player.
//
// Bounds are checked against positions captured before the pass, so one
// player's elimination never influences another's check. A scorer must
// survive the pass to be credited: two players knocking each other out in
// the same tick both fall scoreless.
func (k *ScoreKeeper) Evaluate(arena *Arena, players map[string]*Player, positions map[string]physics.Vec2, now time.Time) Elimination {
	ids := make([]string, 0, len(players))
	for id, p := range players {
		if p.IsAlive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var res Elimination
	for _, id := range ids {
		if arena.Contains(positions[id]) {
			res.Alive = append(res.Alive, id)
		} else {
			res.Eliminated = append(res.Eliminated, id)
		}
	}

	for _, id := range res.Eliminated {
		players[id].IsAlive = false
	}

	for _, id := range res.Eliminated {
		scorerID, ok := k.contacts.Attribute(players[id], now)
		if !ok {
			continue
		}
		scorer, exists := players[scorerID]
		if !exists || !scorer.IsAlive {
			continue
		}
		scorer.Score++
		res.Knockouts = append(res.Knockouts, Knockout{
			PlayerID:  scorerID,
			VictimID:  id,
			Timestamp: now.UnixMilli(),
		})
	}
	return res
}
