package game

import (
	"math"
	"math/rand"

	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/config"
)

// hunterCount derives how many hunters a round gets for n eligible players:
// the tuned percentage, clamped to the configured bounds, and always leaving
// at least one survivor.
func hunterCount(n int, tuning config.Game) int {
	if n < 2 {
		return 0
	}
	count := int(math.Ceil(float64(n) * tuning.HunterPercentage))
	if count < tuning.MinHunters {
		count = tuning.MinHunters
	}
	if count > tuning.MaxHunters {
		count = tuning.MaxHunters
	}
	if count > n-1 {
		count = n - 1
	}
	if count < 1 {
		count = 1
	}
	return count
}

// pickHunters selects the round's hunters, preferring players who have not
// been a hunter in the current rotation cycle. When the cycle runs out of
// fresh candidates it reports that the rotation should reset.
func pickHunters(eligible []*Player, rotation set.Set[PlayerID], tuning config.Game, rng *rand.Rand) (ids []PlayerID, cycleReset bool) {
	count := hunterCount(len(eligible), tuning)
	if count == 0 {
		return nil, false
	}

	var fresh, seasoned []PlayerID
	for _, p := range eligible {
		if rotation.Has(p.ID) {
			seasoned = append(seasoned, p.ID)
		} else {
			fresh = append(fresh, p.ID)
		}
	}
	rng.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	rng.Shuffle(len(seasoned), func(i, j int) { seasoned[i], seasoned[j] = seasoned[j], seasoned[i] })

	ids = make([]PlayerID, 0, count)
	ids = append(ids, fresh...)
	if len(ids) >= count {
		return ids[:count], false
	}

	// Everyone left has already had a turn; this pick starts a new cycle.
	for _, id := range seasoned {
		if len(ids) == count {
			break
		}
		ids = append(ids, id)
	}
	return ids, true
}
