package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/config"
)

func TestHunterCount(t *testing.T) {
	tuning := config.DefaultGame()

	tests := []struct {
		players int
		want    int
	}{
		{0, 0},
		{1, 0},
		{2, 1},
		{3, 1},
		{4, 2},
		{5, 2},
		{10, 3},
		{20, 6},
		{100, 30},
		{101, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, hunterCount(tt.players, tuning), "players=%d", tt.players)
	}
}

func TestHunterCountAlwaysLeavesASurvivor(t *testing.T) {
	tuning := config.DefaultGame()
	tuning.HunterPercentage = 1.0

	for n := 2; n <= 12; n++ {
		count := hunterCount(n, tuning)
		assert.Less(t, count, n, "players=%d", n)
		assert.GreaterOrEqual(t, count, 1, "players=%d", n)
	}
}

func testPlayers(n int) []*Player {
	out := make([]*Player, n)
	for i := range out {
		out[i] = &Player{ID: PlayerID(fmt.Sprintf("p%d", i))}
	}
	return out
}

func TestPickHuntersPrefersFresh(t *testing.T) {
	tuning := config.DefaultGame()
	rng := rand.New(rand.NewSource(5))
	players := testPlayers(6)

	rotation := set.New[PlayerID]("p0", "p1")
	ids, reset := pickHunters(players, rotation, tuning, rng)
	require.Len(t, ids, 2)
	assert.False(t, reset)
	for _, id := range ids {
		assert.False(t, rotation.Has(id), "%s already had a turn this cycle", id)
	}
}

func TestPickHuntersEveryoneGetsATurn(t *testing.T) {
	tuning := config.DefaultGame()
	rng := rand.New(rand.NewSource(5))
	players := testPlayers(5)

	rotation := set.New[PlayerID]()
	seen := set.New[PlayerID]()
	rounds := 0
	for seen.Len() < len(players) && rounds < 20 {
		ids, reset := pickHunters(players, rotation, tuning, rng)
		require.NotEmpty(t, ids)
		if reset {
			rotation = set.New[PlayerID]()
		}
		for _, id := range ids {
			seen.Insert(id)
			rotation.Insert(id)
		}
		rounds++
	}
	assert.Equal(t, len(players), seen.Len(), "every player hunted within a cycle")
	assert.LessOrEqual(t, rounds, 5, "no repeats before the cycle completes")
}

func TestPickHuntersResetsWhenCycleExhausted(t *testing.T) {
	tuning := config.DefaultGame()
	rng := rand.New(rand.NewSource(5))
	players := testPlayers(3)

	rotation := set.New[PlayerID]("p0", "p1", "p2")
	ids, reset := pickHunters(players, rotation, tuning, rng)
	require.Len(t, ids, 1)
	assert.True(t, reset)
}

func TestPickHuntersTooFewPlayers(t *testing.T) {
	tuning := config.DefaultGame()
	rng := rand.New(rand.NewSource(5))

	ids, _ := pickHunters(testPlayers(1), set.New[PlayerID](), tuning, rng)
	assert.Empty(t, ids)
}
