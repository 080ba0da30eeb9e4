package game

import (
	"context"

	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/grid"
	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
	"github.com/mazehunt/server/internal/v1/quiz"
)

// Timer purposes owned by the game loop.
const (
	timerGame     = "game"
	timerBlitz    = "blitz"
	timerRoundEnd = "roundend"
	timerHunt     = "hunt"
	timerSinkhole = "sinkhole"
)

// --- room control ---

func (rt *Runtime) handleStartGame(socketID string) {
	p := rt.room.PlayerBySocket(socketID)
	if p == nil {
		rt.sendError(socketID, codec.EventStartError, "not_in_room", "socket is not in this room")
		return
	}
	if p.ID != rt.room.HostID {
		rt.sendError(socketID, codec.EventStartError, "not_host", ErrNotHost.Error())
		return
	}
	if rt.room.Status != StatusWaiting {
		rt.sendError(socketID, codec.EventStartError, "wrong_phase", ErrWrongPhase.Error())
		return
	}
	if len(rt.room.ConnectedPlayers()) < 2 {
		rt.sendError(socketID, codec.EventStartError, "not_enough_players", "need at least two players")
		return
	}
	rt.startGame()
}

func (rt *Runtime) handleEndGame(socketID string) {
	p := rt.room.PlayerBySocket(socketID)
	if p == nil || p.ID != rt.room.HostID {
		rt.sendError(socketID, codec.EventStartError, "not_host", ErrNotHost.Error())
		return
	}
	if rt.room.Status != StatusPlaying {
		rt.sendError(socketID, codec.EventStartError, "wrong_phase", ErrWrongPhase.Error())
		return
	}
	rt.endGame("host_ended")
}

// startGame flips the room into play: spawns the world, kicks off the quiz
// fetch and enters the first blitz.
func (rt *Runtime) startGame() {
	rt.room.Status = StatusPlaying
	rt.room.round = 0
	rt.gameEndsAt = rt.now().Add(rt.room.Duration)

	if rt.room.QuizID != "" && rt.deps.Quiz != nil {
		quizID := rt.room.QuizID
		fetcher := rt.deps.Quiz
		go func() {
			questions, err := fetcher.Fetch(context.Background(), quizID)
			rt.post(questionsMessage{questions: questions, err: err})
		}()
	}

	ids := make([]PlayerID, 0, len(rt.room.Players))
	for _, p := range rt.room.Players {
		p.Coins = 0
		p.Traps = 0
		p.Health = rt.deps.Tuning.StartingHealth
		p.State = StateActive
		p.QuestionsAttempted = 0
		p.QuestionsCorrect = 0
		p.Attempted = set.New[string]()
		ids = append(ids, p.ID)
	}
	rt.positions.AssignSpawns(ids)

	occupied := NewOccupiedSet(rt.positions.PlayerCells())
	coins := rt.coins.SpawnInitial(occupied)
	sinkholes := rt.sinkholes.SpawnInitial(occupied)
	traps := rt.traps.SpawnInitial(occupied)

	rt.broadcast(codec.EventGameStarted, codec.GameStartedPayload{
		Room: rt.room.Snapshot(),
		Map: codec.MapInfo{
			Rows:     rt.deps.MapCfg.Rows,
			Cols:     rt.deps.MapCfg.Cols,
			CellSize: rt.deps.MapCfg.CellSize,
		},
		DurationMillis: rt.room.Duration.Milliseconds(),
	})
	for _, pos := range rt.positions.All() {
		rt.broadcast(codec.EventPositionUpdate, pos)
	}
	for _, c := range coins {
		rt.broadcast(codec.EventCoinSpawned, codec.CoinSpawnedPayload{
			CoinID: c.ID, Row: c.Cell.Row, Col: c.Cell.Col,
		})
	}
	for _, s := range sinkholes {
		rt.broadcast(codec.EventSinkholeSpawned, codec.SinkholeSpawnedPayload{
			SinkholeID: s.ID, Row: s.Cell.Row, Col: s.Cell.Col, Color: s.Color,
		})
	}
	for _, t := range traps {
		rt.broadcast(codec.EventTrapSpawned, codec.TrapSpawnedPayload{
			TrapID: t.ID, Row: t.Cell.Row, Col: t.Cell.Col,
		})
	}

	rt.schedule(timerGame, rt.room.Duration, func() { rt.endGame("time_up") })
	rt.scheduleSinkholeGrowth()
	rt.startBlitz()
	logging.Info(rt.ctx, "Game started",
		zap.Int("players", len(rt.room.Players)), zap.Duration("duration", rt.room.Duration))
}

func (rt *Runtime) scheduleSinkholeGrowth() {
	if rt.sinkholes.AtCapacity() {
		return
	}
	rt.schedule(timerSinkhole, rt.sinkholes.NextSpawnDelay(), func() {
		if rt.room.Status != StatusPlaying {
			return
		}
		// Growth only happens while a hunt is running; other phases just
		// push the timer forward.
		if rt.room.Phase != PhaseHunt {
			rt.scheduleSinkholeGrowth()
			return
		}
		if s, ok := rt.sinkholes.SpawnOne(rt.occupiedItems()); ok {
			rt.broadcast(codec.EventSinkholeSpawned, codec.SinkholeSpawnedPayload{
				SinkholeID: s.ID, Row: s.Cell.Row, Col: s.Cell.Col, Color: s.Color,
			})
		}
		rt.scheduleSinkholeGrowth()
	})
}

// --- blitz phase ---

func (rt *Runtime) startBlitz() {
	rt.room.round++
	rt.room.Phase = PhaseBlitzQuiz
	rt.broadcast(codec.EventPhaseChange, codec.PhaseChangePayload{Phase: string(PhaseBlitzQuiz)})

	for _, p := range rt.room.ConnectedPlayers() {
		rt.dealBlitz(p)
	}
	rt.schedule(timerBlitz, rt.deps.Tuning.BlitzDuration, rt.endBlitz)
}

// dealBlitz hands a player its personal question set for the round.
func (rt *Runtime) dealBlitz(p *Player) {
	p.Phase = PlayerPhaseBlitz
	p.entryQuestions = quiz.SelectForPlayer(rt.room.Questions, p.Attempted, rt.deps.Tuning.BlitzQuestions, rt.rng)
	p.entryIndex = 0
	p.entryCorrect = 0
	p.entryDone = false
	rt.unicast(p, codec.EventBlitzStart, codec.BlitzStartPayload{
		Questions:      questionViews(p.entryQuestions),
		DurationMillis: rt.deps.Tuning.BlitzDuration.Milliseconds(),
	})
}

func (rt *Runtime) handleBlitzAnswer(p *Player, msg codec.Message) {
	var payload codec.BlitzAnswerPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	if p.Phase != PlayerPhaseBlitz || p.entryDone {
		return
	}
	if payload.QuestionIndex != p.entryIndex || p.entryIndex >= len(p.entryQuestions) {
		return
	}

	q := p.entryQuestions[p.entryIndex]
	correct := payload.AnswerIndex == q.CorrectIndex
	p.Attempted.Insert(q.ID)
	p.QuestionsAttempted++
	if correct {
		p.entryCorrect++
		p.QuestionsCorrect++
	}
	rt.unicast(p, codec.EventBlitzAnswerResult, codec.BlitzAnswerResultPayload{
		QuestionIndex: payload.QuestionIndex,
		Correct:       correct,
		CorrectIndex:  q.CorrectIndex,
	})

	p.entryIndex++
	if p.entryIndex < len(p.entryQuestions) {
		return
	}
	p.entryDone = true

	switch rt.room.Phase {
	case PhaseBlitzQuiz:
		if rt.allBlitzDone() {
			rt.endBlitz()
		}
	case PhaseHunt:
		// Finished a personal blitz after the hunt already began
		// (mid-round rejoin): roll for a late hunter slot.
		rt.lateHuntEntry(p)
	}
}

func (rt *Runtime) allBlitzDone() bool {
	for _, p := range rt.room.ConnectedPlayers() {
		if !p.entryDone {
			return false
		}
	}
	return true
}

// endBlitz closes the quiz: awards bonuses, selects the round's hunters and
// moves to the round-end countdown.
func (rt *Runtime) endBlitz() {
	if rt.room.Phase != PhaseBlitzQuiz {
		return
	}
	rt.cancelTimer(timerBlitz)

	results := make([]codec.BlitzPlayerResult, 0, len(rt.room.Players))
	for _, p := range rt.room.Players {
		p.entryDone = true
		bonus := 0
		if len(p.entryQuestions) > 0 && p.entryCorrect == len(p.entryQuestions) {
			bonus = rt.deps.Tuning.BlitzWinnerBonus
			p.Coins += bonus
		}
		results = append(results, codec.BlitzPlayerResult{
			PlayerID: string(p.ID), Correct: p.entryCorrect, Bonus: bonus,
		})
	}

	eligible := rt.room.ConnectedPlayers()
	ids, cycleReset := pickHunters(eligible, rt.room.rotation, rt.deps.Tuning, rt.rng)
	if cycleReset {
		rt.room.rotation = set.New[PlayerID]()
	}
	rt.room.SetHunters(ids)

	rt.broadcast(codec.EventBlitzResult, codec.BlitzResultPayload{
		Results:    results,
		UnicornIDs: rt.room.UnicornIDStrings(),
	})
	rt.room.Phase = PhaseRoundEnd
	rt.broadcast(codec.EventPhaseChange, codec.PhaseChangePayload{Phase: string(PhaseRoundEnd)})
	rt.schedule(timerRoundEnd, rt.deps.Tuning.RoundEndDuration, rt.startHunt)
}

// lateHuntEntry rolls whether a late arrival joins the active hunt as an
// extra hunter or as a survivor.
func (rt *Runtime) lateHuntEntry(p *Player) {
	p.Phase = PlayerPhaseHunt
	if rt.rng.Float64() < rt.deps.Tuning.EnforcerChance {
		rt.room.Unicorns.Insert(p.ID)
		rt.room.rotation.Insert(p.ID)
		p.IsUnicorn = true
		rt.broadcast(codec.EventUnicornTransferred, codec.UnicornTransferredPayload{
			UnicornIDs: rt.room.UnicornIDStrings(),
		})
	}
}

// --- hunt phase ---

func (rt *Runtime) startHunt() {
	if rt.room.Status != StatusPlaying {
		return
	}
	rt.room.Phase = PhaseHunt
	for _, p := range rt.room.ConnectedPlayers() {
		p.Phase = PlayerPhaseHunt
	}
	rt.broadcast(codec.EventPhaseChange, codec.PhaseChangePayload{Phase: string(PhaseHunt)})
	rt.broadcast(codec.EventHuntStart, codec.HuntStartPayload{
		UnicornIDs:     rt.room.UnicornIDStrings(),
		DurationMillis: rt.deps.Tuning.HuntDuration.Milliseconds(),
	})
	rt.schedule(timerHunt, rt.deps.Tuning.HuntDuration, func() { rt.endHunt("time") })
}

func (rt *Runtime) endHunt(reason string) {
	if rt.room.Phase != PhaseHunt {
		return
	}
	rt.cancelTimer(timerHunt)
	rt.broadcast(codec.EventHuntEnd, codec.HuntEndPayload{Reason: reason})
	rt.startBlitz()
}

// --- game end ---

func (rt *Runtime) endGame(reason string) {
	if rt.room.Status == StatusFinished {
		return
	}
	rt.room.Status = StatusFinished
	rt.room.Phase = PhaseGameEnd
	rt.broadcast(codec.EventGameEnd, codec.GameEndPayload{
		Reason:      reason,
		Leaderboard: rt.room.Leaderboard(),
	})
	logging.Info(rt.ctx, "Game ended", zap.String("reason", reason))
	rt.destroyRoom(reason)
}

// --- quiz fetch result ---

func (rt *Runtime) handleQuestions(msg questionsMessage) {
	if msg.err != nil {
		// The fallback pool carries the game; nothing to roll back.
		logging.Warn(rt.ctx, "Quiz fetch failed, using fallback pool", zap.Error(msg.err))
		return
	}
	rt.room.Questions = msg.questions
	logging.Info(rt.ctx, "Quiz pool loaded", zap.Int("questions", len(msg.questions)))
}

// --- in-game hot path ---

func (rt *Runtime) dispatchGame(p *Player, msg codec.Message) {
	switch msg.Event {
	case codec.EventUpdatePosition:
		rt.handleUpdatePosition(p, msg)
	case codec.EventBlitzAnswer:
		rt.handleBlitzAnswer(p, msg)
	case codec.EventUnfreezeAnswer:
		rt.handleUnfreezeAnswer(p, msg)
	case codec.EventCollectCoin:
		rt.handleCollectCoin(p, msg)
	case codec.EventEnterSinkhole:
		rt.handleEnterSinkhole(p, msg)
	case codec.EventCollectTrap:
		rt.handleCollectTrap(p, msg)
	case codec.EventDeployTrap:
		rt.handleDeployTrap(p, msg)
	}
}

func (rt *Runtime) handleUpdatePosition(p *Player, msg codec.Message) {
	if rt.room.Phase != PhaseHunt || p.State == StateFrozen {
		return
	}
	if rt.positions.Throttled(p.ID) {
		return
	}
	var payload codec.UpdatePositionPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}

	var prevCell grid.Cell
	prevTeleported := false
	hadPrev := false
	if prev := rt.positions.Get(p.ID); prev != nil {
		prevCell = prev.Cell
		prevTeleported = prev.Teleported
		hadPrev = true
	}

	pos, ok := rt.positions.Update(p.ID, payload)
	if !ok {
		return
	}
	rt.broadcast(codec.EventPositionUpdate, codec.PositionUpdatePayload{
		PlayerID: string(p.ID),
		X:        pos.X, Y: pos.Y,
		Row: pos.Cell.Row, Col: pos.Cell.Col,
	})

	path := []grid.Cell{pos.Cell}
	if hadPrev {
		path = rt.positions.PathFrom(prevCell, prevTeleported, pos.Cell)
	}

	for _, tag := range rt.combat.ResolveMove(rt.room, rt.positions, p, path) {
		rt.emitTag(tag)
	}

	if p.IsUnicorn && p.State != StateFrozen {
		if dt, ok := rt.traps.TriggerAlong(path); ok {
			rt.freezeHunter(p, dt)
		}
	}
}

// emitTag publishes one resolved tag and arms the follow-up timers.
func (rt *Runtime) emitTag(tag TagResult) {
	metrics.PlayerTags.Inc()
	rt.broadcast(codec.EventPlayerTagged, codec.PlayerTaggedPayload{
		AttackerID:  string(tag.Attacker.ID),
		VictimID:    string(tag.Victim.ID),
		Damage:      tag.Damage,
		CoinsStolen: tag.CoinsStolen,
		Row:         tag.Cell.Row,
		Col:         tag.Cell.Col,
	})
	hit := codec.PlayerHitPayload{
		PlayerID:  string(tag.Victim.ID),
		Health:    tag.Victim.Health,
		Knockback: tag.Knockback,
	}
	if tag.Knockback != nil {
		hit.KnockbackMillis = rt.deps.Tuning.KnockbackDuration.Milliseconds()
	}
	rt.broadcast(codec.EventPlayerHit, hit)
	rt.broadcast(codec.EventHealthUpdate, codec.HealthUpdatePayload{
		PlayerID: string(tag.Victim.ID), Health: tag.Victim.Health,
	})
	rt.broadcast(codec.EventPlayerStateChange, codec.PlayerStateChangePayload{
		PlayerID: string(tag.Victim.ID), State: string(tag.Victim.State),
	})
	if tag.Knockback != nil {
		if pos := rt.positions.Get(tag.Victim.ID); pos != nil {
			rt.broadcast(codec.EventPositionUpdate, codec.PositionUpdatePayload{
				PlayerID: string(tag.Victim.ID),
				X:        pos.X, Y: pos.Y,
				Row: pos.Cell.Row, Col: pos.Cell.Col,
			})
		}
	}

	if tag.Frozen {
		rt.startUnfreezeQuiz(tag.Victim)
		return
	}
	rt.armIFrames(tag.Victim)
}

func (rt *Runtime) armIFrames(victim *Player) {
	id := victim.ID
	rt.schedule("iframe:"+string(id), rt.deps.Tuning.IFrameDuration, func() {
		p := rt.room.PlayerByID(id)
		if p == nil || !rt.combat.ExpireIFrames(p) {
			return
		}
		rt.broadcast(codec.EventPlayerStateChange, codec.PlayerStateChangePayload{
			PlayerID: string(id), State: string(StateActive),
		})
	})
}

// freezeHunter resolves a hunter stepping on a deployed sink trap.
func (rt *Runtime) freezeHunter(hunter *Player, dt *DeployedTrap) {
	rt.cancelTimer("iframe:" + string(hunter.ID))
	hunter.State = StateFrozen
	rt.broadcast(codec.EventTrapTriggered, codec.TrapTriggeredPayload{
		TrapID:   dt.ID,
		HunterID: string(hunter.ID),
		Row:      dt.Cell.Row,
		Col:      dt.Cell.Col,
	})
	rt.broadcast(codec.EventPlayerStateChange, codec.PlayerStateChangePayload{
		PlayerID: string(hunter.ID), State: string(StateFrozen),
	})
	rt.startUnfreezeQuiz(hunter)
}

// --- unfreeze quiz ---

func (rt *Runtime) startUnfreezeQuiz(p *Player) {
	p.unfreezeQuestions = quiz.SelectForPlayer(rt.room.Questions, p.Attempted, rt.deps.Tuning.BlitzQuestions, rt.rng)
	p.unfreezeIndex = 0
	p.unfreezeCorrect = 0
	rt.unicast(p, codec.EventUnfreezeQuizStart, codec.UnfreezeQuizStartPayload{
		Questions: questionViews(p.unfreezeQuestions),
		PassCount: rt.deps.Tuning.UnfreezePassCount,
	})
}

func (rt *Runtime) handleUnfreezeAnswer(p *Player, msg codec.Message) {
	var payload codec.BlitzAnswerPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	if p.State != StateFrozen || len(p.unfreezeQuestions) == 0 {
		return
	}
	if payload.QuestionIndex != p.unfreezeIndex || p.unfreezeIndex >= len(p.unfreezeQuestions) {
		return
	}

	q := p.unfreezeQuestions[p.unfreezeIndex]
	correct := payload.AnswerIndex == q.CorrectIndex
	p.Attempted.Insert(q.ID)
	p.QuestionsAttempted++
	if correct {
		p.unfreezeCorrect++
		p.QuestionsCorrect++
	}
	rt.unicast(p, codec.EventBlitzAnswerResult, codec.BlitzAnswerResultPayload{
		QuestionIndex: payload.QuestionIndex,
		Correct:       correct,
		CorrectIndex:  q.CorrectIndex,
	})

	p.unfreezeIndex++
	if p.unfreezeIndex < len(p.unfreezeQuestions) {
		return
	}

	passed := p.unfreezeCorrect >= rt.deps.Tuning.UnfreezePassCount
	rt.broadcast(codec.EventUnfreezeQuizResult, codec.UnfreezeQuizResultPayload{
		PlayerID: string(p.ID), Passed: passed, Correct: p.unfreezeCorrect,
	})
	if passed {
		rt.respawnPlayer(p)
		return
	}
	rt.startUnfreezeQuiz(p)
}

// respawnPlayer brings an unfrozen player back at a spawn cell with full
// health and a fresh invincibility window.
func (rt *Runtime) respawnPlayer(p *Player) {
	p.Health = rt.deps.Tuning.StartingHealth
	p.State = StateIFrames
	p.unfreezeQuestions = nil

	pos := rt.positions.Respawn(p.ID, rt.occupiedItems())
	rt.broadcast(codec.EventPlayerRespawn, codec.PlayerRespawnPayload{
		PlayerID: string(p.ID),
		Row:      pos.Cell.Row, Col: pos.Cell.Col,
		X: pos.X, Y: pos.Y,
	})
	rt.broadcast(codec.EventHealthUpdate, codec.HealthUpdatePayload{
		PlayerID: string(p.ID), Health: p.Health,
	})
	rt.broadcast(codec.EventPlayerStateChange, codec.PlayerStateChangePayload{
		PlayerID: string(p.ID), State: string(StateIFrames),
	})
	rt.armIFrames(p)
}

// --- item pickups ---

func (rt *Runtime) handleCollectCoin(p *Player, msg codec.Message) {
	if rt.room.Phase != PhaseHunt || p.State == StateFrozen {
		return
	}
	var payload codec.CollectCoinPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	pos := rt.positions.Get(p.ID)
	if pos == nil {
		return
	}
	coin, ok := rt.coins.Collect(payload.CoinID, pos.Cell)
	if !ok {
		return
	}

	p.Coins += rt.deps.Tuning.CoinValue
	rt.broadcast(codec.EventCoinCollected, codec.CoinCollectedPayload{
		CoinID: coin.ID, PlayerID: string(p.ID), Coins: p.Coins,
	})

	coinID := coin.ID
	rt.schedule("coin:"+coinID, rt.deps.Tuning.CoinRespawnTime, func() {
		if rt.room.Status != StatusPlaying {
			return
		}
		if c, ok := rt.coins.Respawn(coinID, rt.occupiedItems()); ok {
			rt.broadcast(codec.EventCoinSpawned, codec.CoinSpawnedPayload{
				CoinID: c.ID, Row: c.Cell.Row, Col: c.Cell.Col,
			})
		}
	})
}

func (rt *Runtime) handleEnterSinkhole(p *Player, msg codec.Message) {
	if rt.room.Phase != PhaseHunt || p.State == StateFrozen {
		return
	}
	var payload codec.EnterSinkholePayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	pos := rt.positions.Get(p.ID)
	if pos == nil {
		return
	}
	from := pos.Cell
	dest, ok := rt.sinkholes.Teleport(p.ID, payload.SinkholeID, from)
	if !ok {
		return
	}

	rt.positions.Place(p.ID, dest.Cell, true)
	rt.broadcast(codec.EventPlayerTeleported, codec.PlayerTeleportedPayload{
		PlayerID: string(p.ID),
		FromRow:  from.Row, FromCol: from.Col,
		ToRow: dest.Cell.Row, ToCol: dest.Cell.Col,
	})
}

func (rt *Runtime) handleCollectTrap(p *Player, msg codec.Message) {
	if rt.room.Phase != PhaseHunt || p.State == StateFrozen || p.IsUnicorn {
		return
	}
	var payload codec.CollectTrapPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	pos := rt.positions.Get(p.ID)
	if pos == nil {
		return
	}
	t, ok := rt.traps.Collect(payload.TrapID, pos.Cell)
	if !ok {
		return
	}
	p.Traps++
	rt.broadcast(codec.EventTrapCollected, codec.TrapCollectedPayload{
		TrapID: t.ID, PlayerID: string(p.ID),
	})
}

func (rt *Runtime) handleDeployTrap(p *Player, msg codec.Message) {
	if rt.room.Phase != PhaseHunt || p.State == StateFrozen || p.IsUnicorn || p.Traps == 0 {
		return
	}
	var payload codec.DeployTrapPayload
	if decodeInto(msg.Payload, &payload) != nil {
		return
	}
	pos := rt.positions.Get(p.ID)
	if pos == nil {
		return
	}
	cell := grid.Cell{Row: payload.Row, Col: payload.Col}
	if grid.Chebyshev(pos.Cell, cell) > rt.deps.Tuning.CollectionRadius {
		return
	}
	// Item cells stay pairwise disjoint; player cells do not block a deploy.
	occupied := NewOccupiedSet(rt.coins.LiveCells(), rt.sinkholes.Cells(), rt.traps.LiveCells())
	dt, ok := rt.traps.Deploy(p.ID, cell, occupied)
	if !ok {
		return
	}
	p.Traps--
	rt.broadcast(codec.EventTrapDeployed, codec.TrapDeployedPayload{
		TrapID:   dt.ID,
		PlayerID: string(p.ID),
		Row:      dt.Cell.Row,
		Col:      dt.Cell.Col,
	})
}

// --- snapshots ---

// gameState builds the mid-game world snapshot for a reconnecting client.
// Nil while the room is still waiting.
func (rt *Runtime) gameState() *codec.GameStatePayload {
	if rt.room.Status != StatusPlaying {
		return nil
	}
	remaining := rt.gameEndsAt.Sub(rt.now())
	if remaining < 0 {
		remaining = 0
	}
	return &codec.GameStatePayload{
		Phase:           string(rt.room.Phase),
		Positions:       rt.positions.All(),
		Coins:           rt.coins.Live(),
		Sinkholes:       rt.sinkholes.All(),
		Traps:           rt.traps.Live(),
		DeployedTraps:   rt.traps.Deployed(),
		RemainingMillis: remaining.Milliseconds(),
	}
}

// occupiedItems builds the placement exclusion set from everything alive on
// the grid right now.
func (rt *Runtime) occupiedItems() OccupiedSet {
	return NewOccupiedSet(
		rt.coins.LiveCells(),
		rt.sinkholes.Cells(),
		rt.traps.LiveCells(),
		rt.positions.PlayerCells(),
	)
}

func questionViews(qs []quiz.Question) []codec.QuestionView {
	out := make([]codec.QuestionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, codec.QuestionView{
			ID: q.ID, Text: q.Text, Options: q.Options, Images: q.Images,
		})
	}
	return out
}
