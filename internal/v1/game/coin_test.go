package game

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

func newTestCoinManager() *CoinManager {
	return NewCoinManager(grid.DefaultMap(), config.DefaultGame(), rand.New(rand.NewSource(7)))
}

func TestSpawnInitialCoins(t *testing.T) {
	cm := newTestCoinManager()

	coins := cm.SpawnInitial(make(OccupiedSet))
	require.Len(t, coins, cm.tuning.CoinInitialCount)

	seen := make(map[grid.Cell]bool)
	for _, c := range coins {
		assert.True(t, cm.mapCfg.IsRoad(c.Cell), "coin %s on a wall", c.ID)
		assert.False(t, seen[c.Cell], "coin %s stacked on another coin", c.ID)
		seen[c.Cell] = true
	}
}

func TestSpawnInitialKeepsSpread(t *testing.T) {
	cm := newTestCoinManager()
	coins := cm.SpawnInitial(make(OccupiedSet))

	for i, a := range coins {
		for _, b := range coins[i+1:] {
			assert.GreaterOrEqual(t, grid.Chebyshev(a.Cell, b.Cell), cm.tuning.MinCoinDistance,
				"coins %s and %s too close", a.ID, b.ID)
		}
	}
}

func TestCollectCoinOnce(t *testing.T) {
	cm := newTestCoinManager()
	coins := cm.SpawnInitial(make(OccupiedSet))
	target := coins[0]

	got, ok := cm.Collect(target.ID, target.Cell)
	require.True(t, ok)
	assert.Equal(t, target.ID, got.ID)

	// Duplicate request for the same coin loses.
	_, ok = cm.Collect(target.ID, target.Cell)
	assert.False(t, ok)
}

func TestCollectCoinRequiresProximity(t *testing.T) {
	cm := newTestCoinManager()
	coins := cm.SpawnInitial(make(OccupiedSet))
	target := coins[0]

	far := grid.Cell{Row: target.Cell.Row + 10, Col: target.Cell.Col}
	_, ok := cm.Collect(target.ID, far)
	assert.False(t, ok)

	near := grid.Cell{Row: target.Cell.Row, Col: target.Cell.Col + 1}
	_, ok = cm.Collect(target.ID, near)
	assert.True(t, ok, "adjacent cell is inside the collection radius")
}

func TestCollectCoinConcurrentSingleWinner(t *testing.T) {
	cm := newTestCoinManager()
	coins := cm.SpawnInitial(make(OccupiedSet))
	target := coins[0]

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := cm.Collect(target.ID, target.Cell); ok {
				wins <- target.ID
			}
		}()
	}
	wg.Wait()
	close(wins)

	total := 0
	for range wins {
		total++
	}
	assert.LessOrEqual(t, total, 1, "at most one collect may win")
}

func TestRespawnMovesCoin(t *testing.T) {
	cm := newTestCoinManager()
	coins := cm.SpawnInitial(make(OccupiedSet))
	target := coins[0]

	_, ok := cm.Collect(target.ID, target.Cell)
	require.True(t, ok)

	// Not collected coins cannot respawn.
	_, ok = cm.Respawn(coins[1].ID, make(OccupiedSet))
	assert.False(t, ok)

	respawned, ok := cm.Respawn(target.ID, make(OccupiedSet))
	require.True(t, ok)
	assert.False(t, respawned.Collected)
	assert.True(t, cm.mapCfg.IsRoad(respawned.Cell))
}

func TestRespawnRelaxesSpreadWhenCrowded(t *testing.T) {
	mapCfg := grid.DefaultMap()
	tuning := config.DefaultGame()
	// A spread this wide cannot be satisfied; placement must still succeed.
	tuning.MinCoinDistance = 1000
	cm := NewCoinManager(mapCfg, tuning, rand.New(rand.NewSource(7)))

	coins := cm.SpawnInitial(make(OccupiedSet))
	require.Len(t, coins, tuning.CoinInitialCount)
}
