package game

import (
	"time"

	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
)

// pairKey identifies an attacker/victim pair for the collision cooldown.
type pairKey struct {
	attacker PlayerID
	victim   PlayerID
}

// cooldownGCThreshold is the map size above which stale cooldown entries
// are swept during normal operation.
const cooldownGCThreshold = 256

// cooldownGCAge is how old an entry must be before the sweep removes it.
const cooldownGCAge = 5 * time.Second

// TagResult describes one resolved hunter-on-survivor tag. The manager has
// already applied the state changes; the runtime emits the events and
// schedules the follow-up timers.
type TagResult struct {
	Attacker    *Player
	Victim      *Player
	Cell        grid.Cell
	Damage      int
	CoinsStolen int
	Frozen      bool
	Knockback   *grid.Cell
}

// CombatManager resolves path-based tag collisions: damage, coin stealing,
// freezing, knockback, per-pair cooldowns and invincibility frames.
type CombatManager struct {
	mapCfg *grid.MapConfig
	tuning config.Game
	now    func() time.Time

	cooldowns map[pairKey]time.Time
}

// NewCombatManager creates a combat manager.
func NewCombatManager(mapCfg *grid.MapConfig, tuning config.Game) *CombatManager {
	return &CombatManager{
		mapCfg:    mapCfg,
		tuning:    tuning,
		now:       time.Now,
		cooldowns: make(map[pairKey]time.Time),
	}
}

// ResolveMove checks a mover's path against every other player and applies
// any tags. Both directions count: a hunter walking through survivors tags
// them, and a survivor walking into a hunter is tagged by it. Candidates
// resolve in path order; players sharing a cell resolve in room order.
func (cm *CombatManager) ResolveMove(room *Room, positions *PositionManager, mover *Player, path []grid.Cell) []TagResult {
	var results []TagResult
	seen := make(map[PlayerID]bool, len(room.Players))
	for _, cell := range path {
		for _, other := range room.Players {
			if other.ID == mover.ID || seen[other.ID] || !other.Connected() {
				continue
			}
			pos := positions.Get(other.ID)
			if pos == nil || pos.Cell != cell {
				continue
			}
			seen[other.ID] = true

			var attacker, victim *Player
			switch {
			case mover.IsUnicorn && !other.IsUnicorn:
				attacker, victim = mover, other
			case !mover.IsUnicorn && other.IsUnicorn:
				attacker, victim = other, mover
			default:
				continue
			}
			if r, ok := cm.tag(positions, attacker, victim, cell); ok {
				results = append(results, r)
			}
		}
	}
	cm.sweepCooldowns()
	return results
}

// tag applies a single tag if the pair is off cooldown and the victim is
// taggable. Frozen attackers cannot tag; victims in i-frames or already
// frozen are skipped.
func (cm *CombatManager) tag(positions *PositionManager, attacker, victim *Player, cell grid.Cell) (TagResult, bool) {
	if attacker.State == StateFrozen || victim.State != StateActive {
		return TagResult{}, false
	}
	key := pairKey{attacker: attacker.ID, victim: victim.ID}
	now := cm.now()
	if until, ok := cm.cooldowns[key]; ok && now.Before(until) {
		return TagResult{}, false
	}
	cm.cooldowns[key] = now.Add(cm.tuning.CollisionCooldown)

	stolen := cm.tuning.TagScoreSteal
	if victim.Coins < stolen {
		stolen = victim.Coins
	}
	victim.Coins -= stolen
	attacker.Coins += stolen

	victim.Health -= cm.tuning.TagDamage
	if victim.Health < 0 {
		victim.Health = 0
	}

	r := TagResult{
		Attacker:    attacker,
		Victim:      victim,
		Cell:        cell,
		Damage:      cm.tuning.TagDamage,
		CoinsStolen: stolen,
	}

	if victim.Health == 0 {
		victim.State = StateFrozen
		r.Frozen = true
		return r, true
	}

	victim.State = StateIFrames
	if cm.tuning.KnockbackEnabled {
		if dest, ok := cm.knockbackCell(positions.Get(victim.ID).Cell, positions.Get(attacker.ID)); ok {
			positions.Place(victim.ID, dest, true)
			r.Knockback = &dest
		}
	}
	return r, true
}

// ExpireIFrames returns the player to Active if still in i-frames. A freeze
// in the meantime wins.
func (cm *CombatManager) ExpireIFrames(p *Player) bool {
	if p.State != StateIFrames {
		return false
	}
	p.State = StateActive
	return true
}

// knockbackCell walks the victim away from the attacker, up to the tuned
// distance, stopping at walls and map edges.
func (cm *CombatManager) knockbackCell(victim grid.Cell, attackerPos *PlayerPosition) (grid.Cell, bool) {
	dr, dc := 1, 0
	if attackerPos != nil {
		dr = sign(victim.Row - attackerPos.Cell.Row)
		dc = sign(victim.Col - attackerPos.Cell.Col)
		if dr == 0 && dc == 0 {
			dr = 1
		}
	}

	cur := victim
	for i := 0; i < cm.tuning.KnockbackDistance; i++ {
		next := grid.Cell{Row: cur.Row + dr, Col: cur.Col + dc}
		if !cm.mapCfg.IsRoad(next) {
			break
		}
		cur = next
	}
	if cur == victim {
		return grid.Cell{}, false
	}
	return cur, true
}

// Forget clears cooldown state involving a removed player.
func (cm *CombatManager) Forget(id PlayerID) {
	for key := range cm.cooldowns {
		if key.attacker == id || key.victim == id {
			delete(cm.cooldowns, key)
		}
	}
}

// sweepCooldowns drops long-expired entries once the map grows past the
// threshold, bounding memory over a long game.
func (cm *CombatManager) sweepCooldowns() {
	if len(cm.cooldowns) <= cooldownGCThreshold {
		return
	}
	cutoff := cm.now().Add(-cooldownGCAge)
	for key, until := range cm.cooldowns {
		if until.Before(cutoff) {
			delete(cm.cooldowns, key)
		}
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
