package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
	"github.com/mazehunt/server/internal/v1/metrics"
)

// Coin is a collectible coin on the grid.
type Coin struct {
	ID        string
	Cell      grid.Cell
	Collected bool
}

// CoinManager owns coin placement, collection and respawn scheduling. The
// runtime serializes all calls; the single-flight guard additionally pins
// each coin while its collection settles, so a duplicate client request can
// never double-credit even if the surrounding locking changes.
type CoinManager struct {
	mapCfg *grid.MapConfig
	tuning config.Game
	rng    *rand.Rand

	coins  map[string]*Coin
	nextID int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoinManager creates a coin manager.
func NewCoinManager(mapCfg *grid.MapConfig, tuning config.Game, rng *rand.Rand) *CoinManager {
	return &CoinManager{
		mapCfg:   mapCfg,
		tuning:   tuning,
		rng:      rng,
		coins:    make(map[string]*Coin),
		inflight: make(map[string]struct{}),
	}
}

// SpawnInitial places the starting coins on free slots, keeping the minimum
// spread between them. Returns the spawned coins.
func (cm *CoinManager) SpawnInitial(occupied OccupiedSet) []*Coin {
	spawned := make([]*Coin, 0, cm.tuning.CoinInitialCount)
	for i := 0; i < cm.tuning.CoinInitialCount; i++ {
		cell, ok := cm.pickCell(occupied)
		if !ok {
			break
		}
		occupied.Add(cell)
		spawned = append(spawned, cm.add(cell))
	}
	return spawned
}

// Collect settles a coin collection for a player. Exactly one of any number
// of concurrent or duplicate requests for the same coin wins; the rest are
// dropped silently.
func (cm *CoinManager) Collect(coinID string, playerCell grid.Cell) (*Coin, bool) {
	if !cm.acquire(coinID) {
		return nil, false
	}
	defer cm.release(coinID)

	coin, ok := cm.coins[coinID]
	if !ok || coin.Collected {
		return nil, false
	}
	if grid.Chebyshev(playerCell, coin.Cell) > cm.tuning.CollectionRadius {
		return nil, false
	}

	coin.Collected = true
	metrics.CoinsCollected.Inc()
	return coin, true
}

// Respawn moves a collected coin to a fresh cell and makes it live again.
// Placement prefers the full spread rule and relaxes to any free slot.
func (cm *CoinManager) Respawn(coinID string, occupied OccupiedSet) (*Coin, bool) {
	coin, ok := cm.coins[coinID]
	if !ok || !coin.Collected {
		return nil, false
	}
	cell, found := cm.pickCell(occupied)
	if !found {
		return nil, false
	}
	coin.Cell = cell
	coin.Collected = false
	return coin, true
}

// LiveCells returns the cells of uncollected coins.
func (cm *CoinManager) LiveCells() []grid.Cell {
	out := make([]grid.Cell, 0, len(cm.coins))
	for _, c := range cm.coins {
		if !c.Collected {
			out = append(out, c.Cell)
		}
	}
	return out
}

// Live returns the uncollected coins as wire payloads.
func (cm *CoinManager) Live() []codec.CoinSpawnedPayload {
	out := make([]codec.CoinSpawnedPayload, 0, len(cm.coins))
	for _, c := range cm.coins {
		if !c.Collected {
			out = append(out, codec.CoinSpawnedPayload{
				CoinID: c.ID, Row: c.Cell.Row, Col: c.Cell.Col,
			})
		}
	}
	return out
}

func (cm *CoinManager) add(cell grid.Cell) *Coin {
	cm.nextID++
	coin := &Coin{ID: fmt.Sprintf("coin_%d", cm.nextID), Cell: cell}
	cm.coins[coin.ID] = coin
	return coin
}

// pickCell chooses a random free coin slot, preferring cells at least the
// minimum distance from every live coin. When no cell satisfies the spread
// the rule relaxes to any free slot.
func (cm *CoinManager) pickCell(occupied OccupiedSet) (grid.Cell, bool) {
	live := cm.LiveCells()

	var spread, free []grid.Cell
	for _, c := range cm.mapCfg.CoinSlots {
		if !cm.mapCfg.IsRoad(c) || occupied.Has(c) {
			continue
		}
		free = append(free, c)
		if minDistanceOK(c, live, cm.tuning.MinCoinDistance) {
			spread = append(spread, c)
		}
	}

	if len(spread) > 0 {
		return spread[cm.rng.Intn(len(spread))], true
	}
	if len(free) > 0 {
		return free[cm.rng.Intn(len(free))], true
	}
	return grid.Cell{}, false
}

func (cm *CoinManager) acquire(coinID string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if _, busy := cm.inflight[coinID]; busy {
		return false
	}
	cm.inflight[coinID] = struct{}{}
	return true
}

func (cm *CoinManager) release(coinID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.inflight, coinID)
}

func minDistanceOK(c grid.Cell, others []grid.Cell, min int) bool {
	for _, o := range others {
		if grid.Chebyshev(c, o) < min {
			return false
		}
	}
	return true
}
