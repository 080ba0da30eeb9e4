package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

// Sinkhole is a fixed teleporter pad. Entering one moves the player to a
// random other sinkhole.
type Sinkhole struct {
	ID    string
	Cell  grid.Cell
	Color string
}

// sinkholeColors is the rendering palette cycled through as pads spawn.
var sinkholeColors = []string{"purple", "teal", "orange", "pink", "lime", "cyan"}

// SinkholeManager owns sinkhole placement, the growth schedule and the
// per-player teleport cooldown.
type SinkholeManager struct {
	mapCfg *grid.MapConfig
	tuning config.Game
	rng    *rand.Rand
	now    func() time.Time

	sinkholes map[string]*Sinkhole
	order     []string
	lastUse   map[PlayerID]time.Time
	nextID    int
}

// NewSinkholeManager creates a sinkhole manager.
func NewSinkholeManager(mapCfg *grid.MapConfig, tuning config.Game, rng *rand.Rand) *SinkholeManager {
	return &SinkholeManager{
		mapCfg:    mapCfg,
		tuning:    tuning,
		rng:       rng,
		now:       time.Now,
		sinkholes: make(map[string]*Sinkhole),
		lastUse:   make(map[PlayerID]time.Time),
	}
}

// SpawnInitial places the starting sinkholes on free slots.
func (sm *SinkholeManager) SpawnInitial(occupied OccupiedSet) []*Sinkhole {
	spawned := make([]*Sinkhole, 0, sm.tuning.SinkholeInitialCount)
	for i := 0; i < sm.tuning.SinkholeInitialCount; i++ {
		s, ok := sm.SpawnOne(occupied)
		if !ok {
			break
		}
		occupied.Add(s.Cell)
		spawned = append(spawned, s)
	}
	return spawned
}

// SpawnOne places a single new sinkhole if the cap allows and a free slot
// exists.
func (sm *SinkholeManager) SpawnOne(occupied OccupiedSet) (*Sinkhole, bool) {
	if len(sm.sinkholes) >= sm.tuning.SinkholeMaxCount {
		return nil, false
	}
	var free []grid.Cell
	for _, c := range sm.mapCfg.SinkholeSlots {
		if sm.mapCfg.IsRoad(c) && !occupied.Has(c) && !sm.cellTaken(c) {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return nil, false
	}

	sm.nextID++
	s := &Sinkhole{
		ID:    fmt.Sprintf("sinkhole_%d", sm.nextID),
		Cell:  free[sm.rng.Intn(len(free))],
		Color: sinkholeColors[(sm.nextID-1)%len(sinkholeColors)],
	}
	sm.sinkholes[s.ID] = s
	sm.order = append(sm.order, s.ID)
	return s, true
}

// NextSpawnDelay draws the delay until the next growth tick from the tuned
// interval.
func (sm *SinkholeManager) NextSpawnDelay() time.Duration {
	span := sm.tuning.SinkholeMaxInterval - sm.tuning.SinkholeMinInterval
	if span <= 0 {
		return sm.tuning.SinkholeMinInterval
	}
	return sm.tuning.SinkholeMinInterval + time.Duration(sm.rng.Int63n(int64(span)))
}

// AtCapacity reports whether the pad count has reached the cap.
func (sm *SinkholeManager) AtCapacity() bool {
	return len(sm.sinkholes) >= sm.tuning.SinkholeMaxCount
}

// Teleport resolves an enter request: the player must stand on or next to
// the pad, be off cooldown, and there must be at least one other pad.
// Returns the destination pad.
func (sm *SinkholeManager) Teleport(id PlayerID, sinkholeID string, playerCell grid.Cell) (*Sinkhole, bool) {
	src, ok := sm.sinkholes[sinkholeID]
	if !ok {
		return nil, false
	}
	if grid.Chebyshev(playerCell, src.Cell) > sm.tuning.CollectionRadius {
		return nil, false
	}
	now := sm.now()
	if last, used := sm.lastUse[id]; used && now.Sub(last) < sm.tuning.TeleportCooldown {
		return nil, false
	}

	others := make([]*Sinkhole, 0, len(sm.order)-1)
	for _, oid := range sm.order {
		if oid != sinkholeID {
			others = append(others, sm.sinkholes[oid])
		}
	}
	if len(others) == 0 {
		return nil, false
	}

	sm.lastUse[id] = now
	return others[sm.rng.Intn(len(others))], true
}

// Forget clears cooldown state for a removed player.
func (sm *SinkholeManager) Forget(id PlayerID) {
	delete(sm.lastUse, id)
}

// Cells returns the cells taken by sinkholes.
func (sm *SinkholeManager) Cells() []grid.Cell {
	out := make([]grid.Cell, 0, len(sm.sinkholes))
	for _, s := range sm.sinkholes {
		out = append(out, s.Cell)
	}
	return out
}

// All returns the sinkholes as wire payloads, in spawn order.
func (sm *SinkholeManager) All() []codec.SinkholeSpawnedPayload {
	out := make([]codec.SinkholeSpawnedPayload, 0, len(sm.order))
	for _, id := range sm.order {
		s := sm.sinkholes[id]
		out = append(out, codec.SinkholeSpawnedPayload{
			SinkholeID: s.ID, Row: s.Cell.Row, Col: s.Cell.Col, Color: s.Color,
		})
	}
	return out
}

func (sm *SinkholeManager) cellTaken(c grid.Cell) bool {
	for _, s := range sm.sinkholes {
		if s.Cell == c {
			return true
		}
	}
	return false
}
