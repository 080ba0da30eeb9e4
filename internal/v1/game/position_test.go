package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

// fakeClock is a manually advanced clock for manager tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestPositionManager() (*PositionManager, *fakeClock) {
	pm := NewPositionManager(grid.DefaultMap(), config.DefaultGame())
	clock := newFakeClock()
	pm.now = clock.Now
	return pm, clock
}

func TestAssignSpawnsUniqueCells(t *testing.T) {
	pm, _ := newTestPositionManager()

	ids := []PlayerID{"a", "b", "c", "d", "e", "f"}
	assigned := pm.AssignSpawns(ids)
	require.Len(t, assigned, len(ids))

	seen := make(map[grid.Cell]bool)
	for id, cell := range assigned {
		assert.False(t, seen[cell], "player %s shares spawn cell %v", id, cell)
		seen[cell] = true
		assert.True(t, pm.mapCfg.IsRoad(cell))
	}
}

func TestUpdateThrottle(t *testing.T) {
	pm, clock := newTestPositionManager()
	pm.Place("p1", grid.Cell{Row: 0, Col: 0}, false)

	clock.Advance(time.Second)
	_, ok := pm.Update("p1", codec.UpdatePositionPayload{X: 48, Y: 16, Row: 0, Col: 1})
	require.True(t, ok)

	// Inside the throttle window
	clock.Advance(10 * time.Millisecond)
	assert.True(t, pm.Throttled("p1"))

	clock.Advance(25 * time.Millisecond)
	assert.False(t, pm.Throttled("p1"))
}

func TestRespawnGraceBypassesThrottle(t *testing.T) {
	pm, clock := newTestPositionManager()
	pm.Place("p1", grid.Cell{Row: 0, Col: 0}, false)

	clock.Advance(time.Second)
	pm.Respawn("p1", make(OccupiedSet))

	// Immediately after a respawn the client's correction must land.
	clock.Advance(5 * time.Millisecond)
	assert.False(t, pm.Throttled("p1"))

	clock.Advance(200 * time.Millisecond)
	_, ok := pm.Update("p1", codec.UpdatePositionPayload{X: 16, Y: 16, Row: 0, Col: 0})
	require.True(t, ok)
	clock.Advance(10 * time.Millisecond)
	assert.True(t, pm.Throttled("p1"))
}

func TestUpdateClampsVerticalPreservesHorizontal(t *testing.T) {
	pm, _ := newTestPositionManager()

	pos, ok := pm.Update("p1", codec.UpdatePositionPayload{X: -40, Y: 99999, Row: 999, Col: -3})
	require.True(t, ok)
	assert.Equal(t, 47, pos.Cell.Row, "row clamped to last row")
	assert.Equal(t, -3, pos.Cell.Col, "column preserved as reported")
	assert.Equal(t, float64(-40), pos.X, "x preserved as reported")
	assert.Equal(t, float64(48*32), pos.Y, "y clamped to map height")
}

func TestUpdateRejectsGarbage(t *testing.T) {
	pm, _ := newTestPositionManager()

	_, ok := pm.Update("p1", codec.UpdatePositionPayload{X: math.NaN(), Y: 0})
	assert.False(t, ok)

	_, ok = pm.Update("p1", codec.UpdatePositionPayload{X: 0, Y: math.Inf(1)})
	assert.False(t, ok)

	_, ok = pm.Update("p1", codec.UpdatePositionPayload{X: 0, Y: 0, Row: 0, Col: 500})
	assert.False(t, ok, "column far outside any transition range")
}

func TestPathFromSkipsTeleportJump(t *testing.T) {
	pm, _ := newTestPositionManager()

	from := grid.Cell{Row: 0, Col: 0}
	to := grid.Cell{Row: 0, Col: 4}

	path := pm.PathFrom(from, false, to)
	assert.Len(t, path, 5, "normal move traces every cell")

	path = pm.PathFrom(from, true, to)
	require.Len(t, path, 1, "post-teleport move only lands")
	assert.Equal(t, to, path[0])
}

func TestRespawnAvoidsOccupiedCells(t *testing.T) {
	pm, _ := newTestPositionManager()

	occupied := make(OccupiedSet)
	for _, c := range pm.mapCfg.SpawnSlots[:4] {
		occupied.Add(c)
	}
	pos := pm.Respawn("p1", occupied)
	assert.False(t, occupied.Has(pos.Cell))
	assert.True(t, pos.Teleported, "respawn counts as a teleport for path tracing")
}
