// Package codec defines the wire contract between clients and the server:
// event names and their JSON payload shapes. Every frame on the socket is a
// single JSON object {"event": <name>, "payload": <object>}.
package codec

// Event names a message on the wire.
type Event string

// Inbound events (client -> server).
const (
	EventCreateRoom     Event = "create_room"
	EventJoinRoom       Event = "join_room"
	EventRejoinRoom     Event = "rejoin_room"
	EventLeaveRoom      Event = "leave_room"
	EventStartGame      Event = "start_game"
	EventEndGame        Event = "end_game"
	EventUpdatePosition Event = "update_position"
	EventBlitzAnswer    Event = "blitz_answer"
	EventUnfreezeAnswer Event = "submit_unfreeze_quiz_answer"
	EventCollectCoin    Event = "collect_coin"
	EventEnterSinkhole  Event = "enter_sinkhole"
	EventCollectTrap    Event = "collect_sink_trap"
	EventDeployTrap     Event = "deploy_sink_trap"
	EventPing           Event = "ping"
)

// Outbound events (server -> one or many clients).
const (
	EventRoomCreated        Event = "room_created"
	EventRoomJoined         Event = "room_joined"
	EventRoomUpdate         Event = "room_update"
	EventPlayerJoined       Event = "player_joined"
	EventPlayerLeft         Event = "player_left"
	EventPlayerDisconnected Event = "player_disconnected"
	EventPlayerReconnected  Event = "player_reconnected"
	EventHostTransferred    Event = "host_transferred"
	EventUnicornTransferred Event = "unicorn_transferred"
	EventGameStarted        Event = "game_started"
	EventPhaseChange        Event = "phase_change"
	EventBlitzStart         Event = "blitz_start"
	EventBlitzAnswerResult  Event = "blitz_answer_result"
	EventBlitzResult        Event = "blitz_result"
	EventHuntStart          Event = "hunt_start"
	EventHuntEnd            Event = "hunt_end"
	EventPositionUpdate     Event = "player_position_update"
	EventPlayerTagged       Event = "player_tagged"
	EventPlayerHit          Event = "player_hit"
	EventPlayerStateChange  Event = "player_state_change"
	EventPlayerRespawn      Event = "player_respawn"
	EventHealthUpdate       Event = "health_update"
	EventCoinSpawned        Event = "coin_spawned"
	EventCoinCollected      Event = "coin_collected"
	EventSinkholeSpawned    Event = "sinkhole_spawned"
	EventPlayerTeleported   Event = "player_teleported"
	EventTrapSpawned        Event = "sink_trap_spawned"
	EventTrapCollected      Event = "sink_trap_collected"
	EventTrapDeployed       Event = "sink_trap_deployed"
	EventTrapTriggered      Event = "sink_trap_triggered"
	EventUnfreezeQuizStart  Event = "unfreeze_quiz_start"
	EventUnfreezeQuizResult Event = "unfreeze_quiz_result"
	EventGameEnd            Event = "game_end"
	EventPong               Event = "pong"
)

// Error events (server -> requesting socket).
const (
	EventJoinError   Event = "join_error"
	EventLeaveError  Event = "leave_error"
	EventStartError  Event = "start_error"
	EventRejoinError Event = "rejoin_error"
	EventCreateError Event = "create_error"
)

// Family groups inbound events by the subsystem that handles them.
type Family int

const (
	FamilyUnknown    Family = iota
	FamilyConnection        // create/join/rejoin: may arrive without a room binding
	FamilyRoom              // room control: leave, start, end
	FamilyGame              // in-game hot path: positions, answers, pickups
)

// FamilyOf returns the handler family for an inbound event.
func FamilyOf(e Event) Family {
	switch e {
	case EventCreateRoom, EventJoinRoom, EventRejoinRoom:
		return FamilyConnection
	case EventLeaveRoom, EventStartGame, EventEndGame:
		return FamilyRoom
	case EventUpdatePosition, EventBlitzAnswer, EventUnfreezeAnswer,
		EventCollectCoin, EventEnterSinkhole, EventCollectTrap, EventDeployTrap:
		return FamilyGame
	default:
		return FamilyUnknown
	}
}
