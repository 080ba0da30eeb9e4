package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/grid"
	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
	"github.com/mazehunt/server/internal/v1/quiz"
)

// Sender delivers encoded events to sockets and maintains the socket
// routing table. Implemented by the websocket hub; mocked in tests.
type Sender interface {
	Send(socketID string, event codec.Event, payload any)
	Bind(socketID, roomCode, playerID string)
	Unbind(socketID string)
}

// QuizFetcher fetches the question pool for a quiz id.
type QuizFetcher interface {
	Fetch(ctx context.Context, quizID string) ([]quiz.Question, error)
}

const inboxSize = 256

// message is anything the runtime's loop consumes.
type message interface{ isMessage() }

// clientMessage is a decoded frame from a client socket.
type clientMessage struct {
	socketID string
	msg      codec.Message
}

// disconnectMessage reports that a socket died.
type disconnectMessage struct {
	socketID string
}

// timerMessage is a scheduled callback re-entering the loop. The generation
// ties the firing back to the handle that armed it, so a fire queued behind
// a cancel or replacement is recognized as stale.
type timerMessage struct {
	purpose string
	gen     uint64
	fn      func()
}

// questionsMessage carries the result of an async quiz fetch.
type questionsMessage struct {
	questions []quiz.Question
	err       error
}

func (clientMessage) isMessage()     {}
func (disconnectMessage) isMessage() {}
func (timerMessage) isMessage()      {}
func (questionsMessage) isMessage()  {}

// Deps bundles what a runtime needs from the outside.
type Deps struct {
	Store  *Store
	Sender Sender
	Quiz   QuizFetcher
	MapCfg *grid.MapConfig
	Tuning config.Game
	// Seed for the room's RNG; 0 means derive from the clock.
	Seed int64
}

// Runtime is the actor owning one room. All room state, manager state and
// timers belong to its goroutine; the outside world only posts messages.
type Runtime struct {
	code   string
	room   *Room
	deps   Deps
	rng    *rand.Rand
	now    func() time.Time
	ctx    context.Context

	positions *PositionManager
	combat    *CombatManager
	coins     *CoinManager
	sinkholes *SinkholeManager
	traps     *TrapManager

	inbox   chan message
	quit    chan struct{}
	done    chan struct{}
	stopped atomic.Bool

	timers     map[string]roomTimer
	timerGen   uint64
	gameEndsAt time.Time
}

// roomTimer is one armed timer handle plus the generation it was armed under.
type roomTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewRuntime builds a runtime for a fresh room. Start must be called before
// posting to it; Store.Create does both.
func NewRuntime(code string, create codec.CreateRoomPayload, deps Deps) *Runtime {
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	room := NewRoom(code, create.MaxPlayers, deps.Tuning.GameTotalDuration)
	room.Name = create.Name
	room.QuizID = create.QuizID

	return &Runtime{
		code:      code,
		room:      room,
		deps:      deps,
		rng:       rng,
		now:       time.Now,
		ctx:       logging.WithRoom(context.Background(), code),
		positions: NewPositionManager(deps.MapCfg, deps.Tuning),
		combat:    NewCombatManager(deps.MapCfg, deps.Tuning),
		coins:     NewCoinManager(deps.MapCfg, deps.Tuning, rng),
		sinkholes: NewSinkholeManager(deps.MapCfg, deps.Tuning, rng),
		traps:     NewTrapManager(deps.MapCfg, deps.Tuning, rng),
		inbox:     make(chan message, inboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		timers:    make(map[string]roomTimer),
	}
}

// Code returns the room code.
func (rt *Runtime) Code() string { return rt.code }

// Start launches the message loop.
func (rt *Runtime) Start() {
	go rt.run()
}

// Stop signals the loop and waits for it to drain.
func (rt *Runtime) Stop() {
	rt.signalStop()
	<-rt.done
}

// Deliver posts a client frame to the room. Safe from any goroutine.
func (rt *Runtime) Deliver(socketID string, msg codec.Message) {
	rt.post(clientMessage{socketID: socketID, msg: msg})
}

// Disconnect posts a socket-death notification. Safe from any goroutine.
func (rt *Runtime) Disconnect(socketID string) {
	rt.post(disconnectMessage{socketID: socketID})
}

func (rt *Runtime) signalStop() {
	if rt.stopped.CompareAndSwap(false, true) {
		close(rt.quit)
	}
}

func (rt *Runtime) post(m message) {
	if rt.stopped.Load() {
		return
	}
	select {
	case rt.inbox <- m:
	default:
		// A full inbox means the room is being flooded; shedding here
		// protects every other room on the server.
		logging.Warn(rt.ctx, "Room inbox full, dropping message")
		metrics.WebsocketEvents.WithLabelValues("inbox", "dropped").Inc()
	}
}

func (rt *Runtime) run() {
	defer close(rt.done)
	for {
		select {
		case <-rt.quit:
			rt.cancelAllTimers()
			return
		case m := <-rt.inbox:
			rt.handle(m)
		}
	}
}

// handle processes one message with panic isolation: a bug in one room
// must not take down the server.
func (rt *Runtime) handle(m message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(rt.ctx, "Recovered panic in room loop", zap.Any("panic", r))
			metrics.WebsocketEvents.WithLabelValues("panic", "recovered").Inc()
		}
	}()

	switch msg := m.(type) {
	case clientMessage:
		start := time.Now()
		rt.dispatch(msg.socketID, msg.msg)
		metrics.MessageProcessingDuration.WithLabelValues(string(msg.msg.Event)).
			Observe(time.Since(start).Seconds())
	case disconnectMessage:
		rt.handleDisconnect(msg.socketID)
	case timerMessage:
		t, ok := rt.timers[msg.purpose]
		if !ok || t.gen != msg.gen {
			// Cancelled or replaced after firing; the queued callback is stale.
			return
		}
		delete(rt.timers, msg.purpose)
		msg.fn()
	case questionsMessage:
		rt.handleQuestions(msg)
	}
}

func (rt *Runtime) dispatch(socketID string, msg codec.Message) {
	switch msg.Event {
	case codec.EventCreateRoom:
		rt.handleCreate(socketID, msg)
	case codec.EventJoinRoom:
		rt.handleJoin(socketID, msg)
	case codec.EventRejoinRoom:
		rt.handleRejoin(socketID, msg)
	case codec.EventPing:
		rt.deps.Sender.Send(socketID, codec.EventPong, nil)
	case codec.EventLeaveRoom:
		rt.handleLeave(socketID)
	case codec.EventStartGame:
		rt.handleStartGame(socketID)
	case codec.EventEndGame:
		rt.handleEndGame(socketID)
	default:
		// In-game hot path: unknown sockets and malformed frames are
		// dropped without a reply.
		p := rt.room.PlayerBySocket(socketID)
		if p == nil {
			return
		}
		rt.dispatchGame(p, msg)
	}
}

// --- timers ---

// schedule (re)arms a named timer. The callback re-enters the loop as a
// message, so it runs serialized with everything else.
func (rt *Runtime) schedule(purpose string, d time.Duration, fn func()) {
	rt.cancelTimer(purpose)
	rt.timerGen++
	gen := rt.timerGen
	rt.timers[purpose] = roomTimer{
		timer: time.AfterFunc(d, func() {
			rt.post(timerMessage{purpose: purpose, gen: gen, fn: fn})
		}),
		gen: gen,
	}
}

func (rt *Runtime) cancelTimer(purpose string) {
	if t, ok := rt.timers[purpose]; ok {
		t.timer.Stop()
		delete(rt.timers, purpose)
	}
}

func (rt *Runtime) cancelAllTimers() {
	for purpose, t := range rt.timers {
		t.timer.Stop()
		delete(rt.timers, purpose)
	}
}

// --- emit helpers ---

func (rt *Runtime) broadcast(event codec.Event, payload any) {
	for _, p := range rt.room.Players {
		if p.Connected() {
			rt.deps.Sender.Send(p.SocketID, event, payload)
		}
	}
}

func (rt *Runtime) unicast(p *Player, event codec.Event, payload any) {
	if p.Connected() {
		rt.deps.Sender.Send(p.SocketID, event, payload)
	}
}

func (rt *Runtime) sendError(socketID string, event codec.Event, code, msg string) {
	rt.deps.Sender.Send(socketID, event, codec.ErrorPayload{Code: code, Message: msg})
}

// --- connection lifecycle ---

func (rt *Runtime) handleCreate(socketID string, msg codec.Message) {
	var payload codec.CreateRoomPayload
	if len(msg.Payload) > 0 {
		if err := decodeInto(msg.Payload, &payload); err != nil {
			rt.sendError(socketID, codec.EventCreateError, "bad_payload", "malformed create_room payload")
			return
		}
	}
	if len(rt.room.Players) > 0 {
		rt.sendError(socketID, codec.EventCreateError, "already_created", "room already has a host")
		return
	}

	host := rt.newPlayer(payload.Name, socketID)
	host.IsHost = true
	rt.room.HostID = host.ID
	if err := rt.room.AddPlayer(host); err != nil {
		rt.sendError(socketID, codec.EventCreateError, "room_full", err.Error())
		return
	}

	rt.deps.Sender.Bind(socketID, rt.code, string(host.ID))
	rt.unicast(host, codec.EventRoomCreated, codec.RoomCreatedPayload{
		RoomCode: rt.code,
		PlayerID: string(host.ID),
		Room:     rt.room.Snapshot(),
	})
	rt.trackPlayers()
	logging.Info(rt.ctx, "Room created",
		zap.String("hostId", string(host.ID)), zap.String("quizId", rt.room.QuizID))
}

func (rt *Runtime) handleJoin(socketID string, msg codec.Message) {
	var payload codec.JoinRoomPayload
	if err := decodeInto(msg.Payload, &payload); err != nil {
		rt.sendError(socketID, codec.EventJoinError, "bad_payload", "malformed join_room payload")
		return
	}
	if rt.room.Status != StatusWaiting {
		rt.sendError(socketID, codec.EventJoinError, "wrong_phase", ErrWrongPhase.Error())
		return
	}
	if existing := rt.room.PlayerBySocket(socketID); existing != nil {
		rt.sendError(socketID, codec.EventJoinError, "already_joined", ErrAlreadyJoined.Error())
		return
	}

	p := rt.newPlayer(payload.PlayerName, socketID)
	if err := rt.room.AddPlayer(p); err != nil {
		rt.sendError(socketID, codec.EventJoinError, "room_full", err.Error())
		return
	}

	rt.deps.Sender.Bind(socketID, rt.code, string(p.ID))
	rt.unicast(p, codec.EventRoomJoined, codec.RoomJoinedPayload{
		RoomCode: rt.code,
		PlayerID: string(p.ID),
		Room:     rt.room.Snapshot(),
	})
	rt.broadcast(codec.EventPlayerJoined, codec.PlayerJoinedPayload{Player: p.Info()})
	rt.broadcast(codec.EventRoomUpdate, codec.RoomUpdatePayload{Room: rt.room.Snapshot()})
	rt.trackPlayers()
	logging.Info(rt.ctx, "Player joined", zap.String("playerId", string(p.ID)))
}

func (rt *Runtime) handleRejoin(socketID string, msg codec.Message) {
	var payload codec.RejoinRoomPayload
	if err := decodeInto(msg.Payload, &payload); err != nil {
		rt.sendError(socketID, codec.EventRejoinError, "bad_payload", "malformed rejoin_room payload")
		return
	}
	p := rt.room.PlayerByID(PlayerID(payload.PlayerID))
	if p == nil {
		rt.sendError(socketID, codec.EventRejoinError, "unknown_player", ErrUnknownPlayer.Error())
		return
	}
	if rt.room.Status == StatusFinished {
		rt.sendError(socketID, codec.EventRejoinError, "game_over", "the game has ended")
		return
	}

	// A rejoin from a new socket while the old one is live replaces it.
	if p.Connected() && p.SocketID != socketID {
		rt.deps.Sender.Unbind(p.SocketID)
	}
	rt.cancelTimer("grace:" + string(p.ID))
	p.SocketID = socketID
	p.DisconnectedAt = nil

	rt.deps.Sender.Bind(socketID, rt.code, string(p.ID))
	rt.unicast(p, codec.EventRoomJoined, codec.RejoinedPayload{
		PlayerID: string(p.ID),
		Room:     rt.room.Snapshot(),
		Game:     rt.gameState(),
	})
	rt.broadcast(codec.EventPlayerReconnected, codec.PlayerReconnectedPayload{PlayerID: string(p.ID)})
	rt.broadcast(codec.EventRoomUpdate, codec.RoomUpdatePayload{Room: rt.room.Snapshot()})

	// Mid-blitz rejoiners get a personal question set so they are not
	// locked out of the round.
	if rt.room.Phase == PhaseBlitzQuiz && !p.entryDone && len(p.entryQuestions) == 0 {
		rt.dealBlitz(p)
	}
	logging.Info(rt.ctx, "Player reconnected", zap.String("playerId", string(p.ID)))
}

func (rt *Runtime) handleLeave(socketID string) {
	p := rt.room.PlayerBySocket(socketID)
	if p == nil {
		rt.sendError(socketID, codec.EventLeaveError, "not_in_room", "socket is not in this room")
		return
	}
	rt.deps.Sender.Unbind(socketID)
	rt.removePlayer(p, "left")
}

// handleDisconnect starts the reconnect grace window for a mid-game drop;
// otherwise the player is removed immediately.
func (rt *Runtime) handleDisconnect(socketID string) {
	p := rt.room.PlayerBySocket(socketID)
	if p == nil {
		return
	}
	if rt.room.Status != StatusPlaying {
		rt.removePlayer(p, "disconnected")
		return
	}

	now := rt.now()
	p.DisconnectedAt = &now
	grace := rt.deps.Tuning.ReconnectGracePeriod
	rt.broadcast(codec.EventPlayerDisconnected, codec.PlayerDisconnectedPayload{
		PlayerID:    string(p.ID),
		GraceMillis: grace.Milliseconds(),
	})

	id := p.ID
	rt.schedule("grace:"+string(id), grace, func() {
		// Re-check: a rejoin in the meantime cleared the stamp.
		if stale := rt.room.PlayerByID(id); stale != nil && !stale.Connected() {
			rt.removePlayer(stale, "grace_expired")
		}
	})
	logging.Info(rt.ctx, "Player disconnected, grace window open",
		zap.String("playerId", string(p.ID)), zap.Duration("grace", grace))
}

// removePlayer permanently removes a member and runs host and hunter
// succession.
func (rt *Runtime) removePlayer(p *Player, reason string) {
	removed := rt.room.RemovePlayer(p.ID)
	if removed == nil {
		return
	}
	wasUnicorn := removed.IsUnicorn
	wasHost := removed.ID == rt.room.HostID

	rt.positions.Remove(removed.ID)
	rt.combat.Forget(removed.ID)
	rt.sinkholes.Forget(removed.ID)
	rt.cancelTimer("grace:" + string(removed.ID))
	rt.cancelTimer("iframe:" + string(removed.ID))

	rt.broadcast(codec.EventPlayerLeft, codec.PlayerLeftPayload{
		PlayerID: string(removed.ID), Reason: reason,
	})
	rt.trackPlayers()
	logging.Info(rt.ctx, "Player removed",
		zap.String("playerId", string(removed.ID)), zap.String("reason", reason))

	if rt.room.Empty() {
		rt.destroyRoom("empty")
		return
	}

	if wasHost {
		rt.transferHost()
	}
	if wasUnicorn {
		rt.handleUnicornLoss()
	}
	if rt.room.Status == StatusPlaying && len(rt.room.Players) < 2 {
		rt.endGame("not_enough_players")
		return
	}
	rt.broadcast(codec.EventRoomUpdate, codec.RoomUpdatePayload{Room: rt.room.Snapshot()})
}

// transferHost promotes the first connected member, falling back to the
// first member still inside the grace window.
func (rt *Runtime) transferHost() {
	var next *Player
	for _, p := range rt.room.Players {
		if p.Connected() {
			next = p
			break
		}
	}
	if next == nil && len(rt.room.Players) > 0 {
		next = rt.room.Players[0]
	}
	if next == nil {
		return
	}
	rt.room.HostID = next.ID
	for _, p := range rt.room.Players {
		p.IsHost = p.ID == next.ID
	}
	rt.unicast(next, codec.EventHostTransferred, codec.HostTransferredPayload{
		HostID: string(next.ID),
	})
	logging.Info(rt.ctx, "Host transferred", zap.String("hostId", string(next.ID)))
}

// handleUnicornLoss reacts to a hunter leaving: with hunters remaining the
// set just shrinks; an empty set mid-hunt ends the round early.
func (rt *Runtime) handleUnicornLoss() {
	if rt.room.Status != StatusPlaying {
		return
	}
	if rt.room.Unicorns.Len() > 0 {
		rt.broadcast(codec.EventUnicornTransferred, codec.UnicornTransferredPayload{
			UnicornIDs: rt.room.UnicornIDStrings(),
		})
		return
	}
	if rt.room.Phase == PhaseHunt && len(rt.room.Players) >= 2 {
		rt.endHunt("unicorn_disconnected")
	}
}

func (rt *Runtime) destroyRoom(reason string) {
	for _, p := range rt.room.Players {
		if p.Connected() {
			rt.deps.Sender.Unbind(p.SocketID)
		}
	}
	rt.cancelAllTimers()
	if rt.deps.Store != nil {
		rt.deps.Store.Delete(rt.code)
	}
	rt.signalStop()
	logging.Info(rt.ctx, "Room destroyed", zap.String("reason", reason))
}

func (rt *Runtime) newPlayer(name, socketID string) *Player {
	if name == "" {
		name = defaultName(len(rt.room.Players) + 1)
	}
	return &Player{
		ID:        PlayerID(uuid.NewString()),
		SocketID:  socketID,
		Name:      name,
		Health:    rt.deps.Tuning.StartingHealth,
		State:     StateActive,
		Attempted: set.New[string](),
	}
}

func (rt *Runtime) trackPlayers() {
	metrics.RoomPlayers.WithLabelValues(rt.code).Set(float64(len(rt.room.Players)))
}

func decodeInto(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(raw, v)
}

func defaultName(n int) string {
	return fmt.Sprintf("Player %d", n)
}
