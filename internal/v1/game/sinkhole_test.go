package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

func newTestSinkholeManager() (*SinkholeManager, *fakeClock) {
	sm := NewSinkholeManager(grid.DefaultMap(), config.DefaultGame(), rand.New(rand.NewSource(3)))
	clock := newFakeClock()
	sm.now = clock.Now
	return sm, clock
}

func TestSinkholeSpawnInitial(t *testing.T) {
	sm, _ := newTestSinkholeManager()

	spawned := sm.SpawnInitial(make(OccupiedSet))
	require.Len(t, spawned, sm.tuning.SinkholeInitialCount)
	for _, s := range spawned {
		assert.True(t, sm.mapCfg.IsRoad(s.Cell))
		assert.NotEmpty(t, s.Color)
	}
}

func TestSinkholeSpawnRespectsCap(t *testing.T) {
	sm, _ := newTestSinkholeManager()
	sm.SpawnInitial(make(OccupiedSet))

	for i := 0; i < 20; i++ {
		if _, ok := sm.SpawnOne(make(OccupiedSet)); !ok {
			break
		}
	}
	assert.LessOrEqual(t, len(sm.sinkholes), sm.tuning.SinkholeMaxCount)
	assert.True(t, sm.AtCapacity())
	_, ok := sm.SpawnOne(make(OccupiedSet))
	assert.False(t, ok)
}

func TestTeleportPicksAnotherPad(t *testing.T) {
	sm, _ := newTestSinkholeManager()
	spawned := sm.SpawnInitial(make(OccupiedSet))
	require.GreaterOrEqual(t, len(spawned), 2)

	src := spawned[0]
	dest, ok := sm.Teleport("p1", src.ID, src.Cell)
	require.True(t, ok)
	assert.NotEqual(t, src.ID, dest.ID, "teleport never returns the entry pad")
}

func TestTeleportRequiresProximity(t *testing.T) {
	sm, _ := newTestSinkholeManager()
	spawned := sm.SpawnInitial(make(OccupiedSet))
	src := spawned[0]

	far := grid.Cell{Row: src.Cell.Row + 5, Col: src.Cell.Col}
	_, ok := sm.Teleport("p1", src.ID, far)
	assert.False(t, ok)
}

func TestTeleportCooldown(t *testing.T) {
	sm, clock := newTestSinkholeManager()
	spawned := sm.SpawnInitial(make(OccupiedSet))
	src := spawned[0]

	_, ok := sm.Teleport("p1", src.ID, src.Cell)
	require.True(t, ok)

	_, ok = sm.Teleport("p1", src.ID, src.Cell)
	assert.False(t, ok, "second teleport inside the cooldown")

	// A different player is unaffected by p1's cooldown.
	_, ok = sm.Teleport("p2", src.ID, src.Cell)
	assert.True(t, ok)

	clock.Advance(2100 * time.Millisecond)
	_, ok = sm.Teleport("p1", src.ID, src.Cell)
	assert.True(t, ok)
}

func TestTeleportNeedsTwoPads(t *testing.T) {
	mapCfg := grid.DefaultMap()
	tuning := config.DefaultGame()
	tuning.SinkholeInitialCount = 1
	sm := NewSinkholeManager(mapCfg, tuning, rand.New(rand.NewSource(3)))

	spawned := sm.SpawnInitial(make(OccupiedSet))
	require.Len(t, spawned, 1)

	_, ok := sm.Teleport("p1", spawned[0].ID, spawned[0].Cell)
	assert.False(t, ok)
}

func TestNextSpawnDelayWithinBounds(t *testing.T) {
	sm, _ := newTestSinkholeManager()
	for i := 0; i < 100; i++ {
		d := sm.NextSpawnDelay()
		assert.GreaterOrEqual(t, d, sm.tuning.SinkholeMinInterval)
		assert.Less(t, d, sm.tuning.SinkholeMaxInterval)
	}
}
