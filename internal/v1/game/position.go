package game

import (
	"math"
	"time"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

// PlayerPosition is the authoritative position record for one player.
type PlayerPosition struct {
	Cell grid.Cell
	X    float64
	Y    float64

	UpdatedAt   time.Time
	RespawnedAt time.Time

	// Set when the last movement was a teleport or respawn; the next
	// update's tag path starts at the new cell instead of tracing the jump.
	Teleported bool
}

// PositionManager owns per-player positions, spawn placement, the update
// throttle and range validation. Keyed by persistent player id so a socket
// swap never touches position state.
type PositionManager struct {
	mapCfg *grid.MapConfig
	tuning config.Game
	now    func() time.Time

	positions map[PlayerID]*PlayerPosition
}

// NewPositionManager creates a position manager for the given map.
func NewPositionManager(mapCfg *grid.MapConfig, tuning config.Game) *PositionManager {
	return &PositionManager{
		mapCfg:    mapCfg,
		tuning:    tuning,
		now:       time.Now,
		positions: make(map[PlayerID]*PlayerPosition),
	}
}

// Get returns the player's position record, or nil.
func (pm *PositionManager) Get(id PlayerID) *PlayerPosition {
	return pm.positions[id]
}

// Remove forgets a player's position.
func (pm *PositionManager) Remove(id PlayerID) {
	delete(pm.positions, id)
}

// All returns the current positions as wire payloads, for state snapshots.
func (pm *PositionManager) All() []codec.PositionUpdatePayload {
	out := make([]codec.PositionUpdatePayload, 0, len(pm.positions))
	for id, pos := range pm.positions {
		out = append(out, codec.PositionUpdatePayload{
			PlayerID: string(id),
			X:        pos.X, Y: pos.Y,
			Row: pos.Cell.Row, Col: pos.Cell.Col,
		})
	}
	return out
}

// AssignSpawns places each player on its own spawn cell. Preferred slots
// are used first in order; overflow players land on free road intersections.
func (pm *PositionManager) AssignSpawns(ids []PlayerID) map[PlayerID]grid.Cell {
	candidates := make([]grid.Cell, 0, len(pm.mapCfg.SpawnSlots))
	candidates = append(candidates, pm.mapCfg.SpawnSlots...)
	candidates = append(candidates, pm.mapCfg.RoadIntersections()...)

	taken := make(OccupiedSet)
	assigned := make(map[PlayerID]grid.Cell, len(ids))
	i := 0
	for _, id := range ids {
		for i < len(candidates) {
			c := candidates[i]
			i++
			if pm.mapCfg.IsRoad(c) && !taken.Has(c) {
				taken.Add(c)
				assigned[id] = c
				pm.place(id, c, false)
				break
			}
		}
	}
	return assigned
}

// Throttled reports whether an update from this player arrived inside the
// throttle window. Updates within the respawn grace period are never
// throttled, so the client's post-respawn correction is not lost.
func (pm *PositionManager) Throttled(id PlayerID) bool {
	pos, ok := pm.positions[id]
	if !ok {
		return false
	}
	now := pm.now()
	if now.Sub(pos.RespawnedAt) < pm.tuning.RespawnGracePeriod {
		return false
	}
	return now.Sub(pos.UpdatedAt) < pm.tuning.PositionThrottle
}

// Update applies a client position report. The vertical axis is clamped
// into the map; the horizontal axis is preserved as reported, because
// clients legitimately report out-of-range X during screen transitions.
// Reports too far out of range to be a transition are rejected.
func (pm *PositionManager) Update(id PlayerID, p codec.UpdatePositionPayload) (*PlayerPosition, bool) {
	if !validReport(p) {
		return nil, false
	}
	if p.Col < -pm.mapCfg.Cols || p.Col > 2*pm.mapCfg.Cols {
		return nil, false
	}

	row := clampInt(p.Row, 0, pm.mapCfg.Rows-1)
	y := clampFloat(p.Y, 0, float64(pm.mapCfg.PixelHeight()))

	pos, ok := pm.positions[id]
	if !ok {
		pos = &PlayerPosition{}
		pm.positions[id] = pos
	}
	pos.Cell = grid.Cell{Row: row, Col: p.Col}
	pos.X = p.X
	pos.Y = y
	pos.UpdatedAt = pm.now()
	pos.Teleported = false
	return pos, true
}

// Place moves a player server-side (teleport, knockback, respawn). The
// teleport flag makes the next update skip path tracing across the jump.
func (pm *PositionManager) Place(id PlayerID, c grid.Cell, teleport bool) *PlayerPosition {
	return pm.place(id, c, teleport)
}

// Respawn places a player on a free spawn cell and opens the respawn
// grace window.
func (pm *PositionManager) Respawn(id PlayerID, occupied OccupiedSet) *PlayerPosition {
	cell := pm.spawnCell(occupied)
	pos := pm.place(id, cell, true)
	pos.RespawnedAt = pm.now()
	return pos
}

// PathFrom returns the tag-check path for a move that ended at the current
// position. A move following a teleport contributes only its landing cell.
func (pm *PositionManager) PathFrom(prev grid.Cell, prevTeleported bool, cur grid.Cell) []grid.Cell {
	if prevTeleported {
		return []grid.Cell{cur}
	}
	return grid.PathCells(prev, cur)
}

func (pm *PositionManager) place(id PlayerID, c grid.Cell, teleport bool) *PlayerPosition {
	px := pm.mapCfg.CellToPixel(c)
	pos, ok := pm.positions[id]
	if !ok {
		pos = &PlayerPosition{}
		pm.positions[id] = pos
	}
	pos.Cell = c
	pos.X = px.X
	pos.Y = px.Y
	pos.UpdatedAt = pm.now()
	pos.Teleported = teleport
	return pos
}

func (pm *PositionManager) spawnCell(occupied OccupiedSet) grid.Cell {
	for _, c := range pm.mapCfg.SpawnSlots {
		if pm.mapCfg.IsRoad(c) && !occupied.Has(c) && !pm.cellTakenByPlayer(c) {
			return c
		}
	}
	for _, c := range pm.mapCfg.RoadIntersections() {
		if !occupied.Has(c) && !pm.cellTakenByPlayer(c) {
			return c
		}
	}
	// Crowded map: fall back to the first spawn slot.
	return pm.mapCfg.SpawnSlots[0]
}

func (pm *PositionManager) cellTakenByPlayer(c grid.Cell) bool {
	for _, pos := range pm.positions {
		if pos.Cell == c {
			return true
		}
	}
	return false
}

// PlayerCells returns the cells currently occupied by players.
func (pm *PositionManager) PlayerCells() []grid.Cell {
	out := make([]grid.Cell, 0, len(pm.positions))
	for _, pos := range pm.positions {
		out = append(out, pos.Cell)
	}
	return out
}

func validReport(p codec.UpdatePositionPayload) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return false
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
