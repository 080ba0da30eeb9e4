package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

// Trap is a collectible sink trap on the grid. Survivors pick them up and
// later deploy them; a hunter stepping on a deployed trap is frozen.
type Trap struct {
	ID        string
	Cell      grid.Cell
	Collected bool
}

// DeployedTrap is an armed trap waiting on a cell.
type DeployedTrap struct {
	ID      string
	Cell    grid.Cell
	OwnerID PlayerID
}

// TrapManager owns collectible trap placement, pickup, deployment and
// triggering. Pickup uses the same single-flight guard as coins.
type TrapManager struct {
	mapCfg *grid.MapConfig
	tuning config.Game
	rng    *rand.Rand

	collectibles map[string]*Trap
	deployed     map[grid.Cell]*DeployedTrap
	nextID       int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewTrapManager creates a trap manager.
func NewTrapManager(mapCfg *grid.MapConfig, tuning config.Game, rng *rand.Rand) *TrapManager {
	return &TrapManager{
		mapCfg:       mapCfg,
		tuning:       tuning,
		rng:          rng,
		collectibles: make(map[string]*Trap),
		deployed:     make(map[grid.Cell]*DeployedTrap),
		inflight:     make(map[string]struct{}),
	}
}

// SpawnInitial places the starting collectible traps on free slots.
func (tm *TrapManager) SpawnInitial(occupied OccupiedSet) []*Trap {
	slots := make([]grid.Cell, 0, len(tm.mapCfg.TrapSlots))
	for _, c := range tm.mapCfg.TrapSlots {
		if tm.mapCfg.IsRoad(c) && !occupied.Has(c) {
			slots = append(slots, c)
		}
	}
	tm.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })

	n := tm.tuning.TrapInitialCount
	if n > len(slots) {
		n = len(slots)
	}
	spawned := make([]*Trap, 0, n)
	for _, cell := range slots[:n] {
		occupied.Add(cell)
		tm.nextID++
		t := &Trap{ID: fmt.Sprintf("trap_%d", tm.nextID), Cell: cell}
		tm.collectibles[t.ID] = t
		spawned = append(spawned, t)
	}
	return spawned
}

// Collect settles a trap pickup. One winner per trap; duplicates are
// dropped silently.
func (tm *TrapManager) Collect(trapID string, playerCell grid.Cell) (*Trap, bool) {
	if !tm.acquire(trapID) {
		return nil, false
	}
	defer tm.release(trapID)

	t, ok := tm.collectibles[trapID]
	if !ok || t.Collected {
		return nil, false
	}
	if grid.Chebyshev(playerCell, t.Cell) > tm.tuning.CollectionRadius {
		return nil, false
	}
	t.Collected = true
	return t, true
}

// Deploy arms a trap on a cell. The cell must be road and free of every
// other live item; the caller checks and debits the player's inventory.
func (tm *TrapManager) Deploy(owner PlayerID, cell grid.Cell, occupied OccupiedSet) (*DeployedTrap, bool) {
	if !tm.mapCfg.IsRoad(cell) {
		return nil, false
	}
	if occupied.Has(cell) {
		return nil, false
	}
	if _, taken := tm.deployed[cell]; taken {
		return nil, false
	}
	tm.nextID++
	dt := &DeployedTrap{
		ID:      fmt.Sprintf("deployed_%d", tm.nextID),
		Cell:    cell,
		OwnerID: owner,
	}
	tm.deployed[cell] = dt
	return dt, true
}

// TriggerAlong returns and removes the first armed trap on the path, if any.
func (tm *TrapManager) TriggerAlong(path []grid.Cell) (*DeployedTrap, bool) {
	for _, cell := range path {
		if dt, ok := tm.deployed[cell]; ok {
			delete(tm.deployed, cell)
			return dt, true
		}
	}
	return nil, false
}

// LiveCells returns the cells taken by uncollected traps and armed traps.
func (tm *TrapManager) LiveCells() []grid.Cell {
	out := make([]grid.Cell, 0, len(tm.collectibles)+len(tm.deployed))
	for _, t := range tm.collectibles {
		if !t.Collected {
			out = append(out, t.Cell)
		}
	}
	for cell := range tm.deployed {
		out = append(out, cell)
	}
	return out
}

// Live returns the uncollected traps as wire payloads.
func (tm *TrapManager) Live() []codec.TrapSpawnedPayload {
	out := make([]codec.TrapSpawnedPayload, 0, len(tm.collectibles))
	for _, t := range tm.collectibles {
		if !t.Collected {
			out = append(out, codec.TrapSpawnedPayload{
				TrapID: t.ID, Row: t.Cell.Row, Col: t.Cell.Col,
			})
		}
	}
	return out
}

// Deployed returns the armed traps as wire payloads.
func (tm *TrapManager) Deployed() []codec.TrapDeployedPayload {
	out := make([]codec.TrapDeployedPayload, 0, len(tm.deployed))
	for _, dt := range tm.deployed {
		out = append(out, codec.TrapDeployedPayload{
			TrapID: dt.ID, PlayerID: string(dt.OwnerID),
			Row: dt.Cell.Row, Col: dt.Cell.Col,
		})
	}
	return out
}

func (tm *TrapManager) acquire(trapID string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, busy := tm.inflight[trapID]; busy {
		return false
	}
	tm.inflight[trapID] = struct{}{}
	return true
}

func (tm *TrapManager) release(trapID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.inflight, trapID)
}
