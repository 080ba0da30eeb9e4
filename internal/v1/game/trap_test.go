package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

func newTestTrapManager() *TrapManager {
	return NewTrapManager(grid.DefaultMap(), config.DefaultGame(), rand.New(rand.NewSource(11)))
}

func TestTrapSpawnInitial(t *testing.T) {
	tm := newTestTrapManager()

	traps := tm.SpawnInitial(make(OccupiedSet))
	require.Len(t, traps, tm.tuning.TrapInitialCount)
	for _, trap := range traps {
		assert.True(t, tm.mapCfg.IsRoad(trap.Cell))
	}
}

func TestTrapCollectOnce(t *testing.T) {
	tm := newTestTrapManager()
	traps := tm.SpawnInitial(make(OccupiedSet))
	target := traps[0]

	_, ok := tm.Collect(target.ID, target.Cell)
	require.True(t, ok)
	_, ok = tm.Collect(target.ID, target.Cell)
	assert.False(t, ok)
}

func TestTrapCollectRequiresProximity(t *testing.T) {
	tm := newTestTrapManager()
	traps := tm.SpawnInitial(make(OccupiedSet))
	target := traps[0]

	far := grid.Cell{Row: target.Cell.Row + 8, Col: target.Cell.Col}
	_, ok := tm.Collect(target.ID, far)
	assert.False(t, ok)
}

func TestDeployAndTrigger(t *testing.T) {
	tm := newTestTrapManager()

	cell := grid.Cell{Row: 0, Col: 8}
	dt, ok := tm.Deploy("owner", cell, make(OccupiedSet))
	require.True(t, ok)
	assert.Equal(t, PlayerID("owner"), dt.OwnerID)

	// The cell is taken until the trap fires.
	_, ok = tm.Deploy("other", cell, make(OccupiedSet))
	assert.False(t, ok)

	path := grid.PathCells(grid.Cell{Row: 0, Col: 4}, grid.Cell{Row: 0, Col: 12})
	fired, ok := tm.TriggerAlong(path)
	require.True(t, ok)
	assert.Equal(t, dt.ID, fired.ID)

	// One-shot: the trap is gone after firing.
	_, ok = tm.TriggerAlong(path)
	assert.False(t, ok)
	_, ok = tm.Deploy("other", cell, make(OccupiedSet))
	assert.True(t, ok, "cell is free again after the trap fired")
}

func TestDeployRejectsWalls(t *testing.T) {
	tm := newTestTrapManager()

	_, ok := tm.Deploy("owner", grid.Cell{Row: 1, Col: 1}, make(OccupiedSet))
	assert.False(t, ok)
	_, ok = tm.Deploy("owner", grid.Cell{Row: -1, Col: 0}, make(OccupiedSet))
	assert.False(t, ok)
}

func TestDeployRejectsOccupiedCell(t *testing.T) {
	tm := newTestTrapManager()

	taken := NewOccupiedSet([]grid.Cell{{Row: 0, Col: 8}})
	_, ok := tm.Deploy("owner", grid.Cell{Row: 0, Col: 8}, taken)
	assert.False(t, ok, "a cell holding another item cannot take a trap")
	_, ok = tm.Deploy("owner", grid.Cell{Row: 0, Col: 12}, taken)
	assert.True(t, ok)
}

func TestTriggerAlongMissesEmptyPath(t *testing.T) {
	tm := newTestTrapManager()
	tm.Deploy("owner", grid.Cell{Row: 0, Col: 8}, make(OccupiedSet))

	path := grid.PathCells(grid.Cell{Row: 4, Col: 0}, grid.Cell{Row: 4, Col: 12})
	_, ok := tm.TriggerAlong(path)
	assert.False(t, ok)
}
