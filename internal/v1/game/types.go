// Package game implements the authoritative room runtime: the per-room
// actor, its managers (positions, combat, coins, sinkholes, traps) and the
// phased game loop. All mutable per-room state is owned by one Runtime and
// touched only from its message loop.
package game

import (
	"errors"
	"time"

	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/quiz"
)

// PlayerID is the persistent player identity, stable across reconnects.
// All cross-component references use this, never the socket id.
type PlayerID string

// RoomStatus is the coarse lifecycle state of a room.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "Waiting"
	StatusPlaying  RoomStatus = "Playing"
	StatusFinished RoomStatus = "Finished"
)

// RoomPhase is the room-level phase machine state.
type RoomPhase string

const (
	PhaseWaiting   RoomPhase = "Waiting"
	PhaseBlitzQuiz RoomPhase = "BlitzQuiz"
	PhaseHunt      RoomPhase = "Hunt"
	PhaseRoundEnd  RoomPhase = "RoundEnd"
	PhaseGameEnd   RoomPhase = "GameEnd"
)

// PlayerPhase is the per-player phase machine state.
type PlayerPhase string

const (
	PlayerPhaseBlitz PlayerPhase = "Blitz"
	PlayerPhaseHunt  PlayerPhase = "Hunt"
)

// PlayerState is the combat state of a player.
type PlayerState string

const (
	StateActive  PlayerState = "Active"
	StateFrozen  PlayerState = "Frozen"
	StateIFrames PlayerState = "InIFrames"
)

// Validation errors surfaced to the requesting socket as *_error events.
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotHost       = errors.New("only the host may do that")
	ErrWrongPhase    = errors.New("not allowed in the current phase")
	ErrAlreadyJoined = errors.New("already in the room")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrRoomCodeSpace = errors.New("could not allocate a unique room code")
)

// characterPalette is the fixed set of character ids handed out per room.
var characterPalette = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

// Player is a member of a room. Fields are mutated only by the owning
// room runtime.
type Player struct {
	ID          PlayerID
	SocketID    string
	Name        string
	IsHost      bool
	IsUnicorn   bool
	Coins       int
	Health      int
	State       PlayerState
	CharacterID int
	Phase       PlayerPhase
	Traps       int

	QuestionsAttempted int
	QuestionsCorrect   int
	Attempted          set.Set[string]

	// Nil while connected; set at the instant of disconnect.
	DisconnectedAt *time.Time

	// Entry-quiz progress for the current round.
	entryQuestions []quiz.Question
	entryIndex     int
	entryCorrect   int
	entryDone      bool

	// Unfreeze-quiz progress while Frozen.
	unfreezeQuestions []quiz.Question
	unfreezeIndex     int
	unfreezeCorrect   int
}

// Connected reports whether the player currently has a live socket.
func (p *Player) Connected() bool {
	return p.DisconnectedAt == nil
}

// Info returns the public wire view of the player.
func (p *Player) Info() codec.PlayerInfo {
	return codec.PlayerInfo{
		PlayerID:    string(p.ID),
		Name:        p.Name,
		IsHost:      p.IsHost,
		IsUnicorn:   p.IsUnicorn,
		Coins:       p.Coins,
		Health:      p.Health,
		State:       string(p.State),
		CharacterID: p.CharacterID,
		Connected:   p.Connected(),
	}
}

// Room is an independent game session. The ordered player list is the
// deterministic order used for tie-breaks and succession.
type Room struct {
	Code       string
	Name       string
	HostID     PlayerID
	MaxPlayers int
	Status     RoomStatus
	Phase      RoomPhase
	Players    []*Player
	Unicorns   set.Set[PlayerID]
	QuizID     string
	Questions  []quiz.Question
	Duration   time.Duration

	// Players who have been a hunter in the current rotation cycle.
	rotation set.Set[PlayerID]
	round    int
}

// NewRoom creates an empty room in the Waiting state.
func NewRoom(code string, maxPlayers int, duration time.Duration) *Room {
	if maxPlayers <= 0 {
		maxPlayers = len(characterPalette)
	}
	if maxPlayers > len(characterPalette) {
		maxPlayers = len(characterPalette)
	}
	return &Room{
		Code:       code,
		MaxPlayers: maxPlayers,
		Status:     StatusWaiting,
		Phase:      PhaseWaiting,
		Unicorns:   set.New[PlayerID](),
		Duration:   duration,
		rotation:   set.New[PlayerID](),
	}
}

// PlayerByID returns the player with the given persistent id, or nil.
func (r *Room) PlayerByID(id PlayerID) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerBySocket returns the player bound to the given socket, or nil.
func (r *Room) PlayerBySocket(socketID string) *Player {
	for _, p := range r.Players {
		if p.SocketID == socketID && p.Connected() {
			return p
		}
	}
	return nil
}

// AddPlayer appends a player, assigning the lowest free character id.
func (r *Room) AddPlayer(p *Player) error {
	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	if r.PlayerByID(p.ID) != nil {
		return ErrAlreadyJoined
	}
	p.CharacterID = r.freeCharacterID()
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer deletes a player and prunes the unicorn set atomically.
// Returns the removed player, or nil if not a member.
func (r *Room) RemovePlayer(id PlayerID) *Player {
	for i, p := range r.Players {
		if p.ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			r.Unicorns.Delete(id)
			r.rotation.Delete(id)
			return p
		}
	}
	return nil
}

// ConnectedPlayers returns the players with a live socket, in room order.
func (r *Room) ConnectedPlayers() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected() {
			out = append(out, p)
		}
	}
	return out
}

// Empty reports whether the room has no members at all.
func (r *Room) Empty() bool {
	return len(r.Players) == 0
}

// Hunters returns the current hunters in room order.
func (r *Room) Hunters() []*Player {
	out := make([]*Player, 0, r.Unicorns.Len())
	for _, p := range r.Players {
		if p.IsUnicorn {
			out = append(out, p)
		}
	}
	return out
}

// SetHunters replaces the hunter set. Keeps the player flags and the id set
// in lockstep and records the cycle in the rotation set.
func (r *Room) SetHunters(ids []PlayerID) {
	r.Unicorns = set.New[PlayerID]()
	for _, id := range ids {
		r.Unicorns.Insert(id)
		r.rotation.Insert(id)
	}
	for _, p := range r.Players {
		p.IsUnicorn = r.Unicorns.Has(p.ID)
	}
}

// UnicornIDStrings returns the hunter ids in room order for wire payloads.
func (r *Room) UnicornIDStrings() []string {
	out := make([]string, 0, r.Unicorns.Len())
	for _, p := range r.Players {
		if r.Unicorns.Has(p.ID) {
			out = append(out, string(p.ID))
		}
	}
	return out
}

// Snapshot returns the public wire view of the room.
func (r *Room) Snapshot() codec.RoomSnapshot {
	players := make([]codec.PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.Info())
	}
	return codec.RoomSnapshot{
		RoomCode:   r.Code,
		Status:     string(r.Status),
		Phase:      string(r.Phase),
		MaxPlayers: r.MaxPlayers,
		HostID:     string(r.HostID),
		Players:    players,
		UnicornIDs: r.UnicornIDStrings(),
	}
}

// Leaderboard returns the final standings: coins descending, correct
// answers as the tie-break, room order as the last resort.
func (r *Room) Leaderboard() []codec.LeaderboardEntry {
	entries := make([]codec.LeaderboardEntry, 0, len(r.Players))
	for _, p := range r.Players {
		entries = append(entries, codec.LeaderboardEntry{
			PlayerID: string(p.ID),
			Name:     p.Name,
			Coins:    p.Coins,
			Correct:  p.QuestionsCorrect,
		})
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if b.Coins > a.Coins || (b.Coins == a.Coins && b.Correct > a.Correct) {
				entries[j-1], entries[j] = b, a
			} else {
				break
			}
		}
	}
	return entries
}

func (r *Room) freeCharacterID() int {
	used := set.New[int]()
	for _, p := range r.Players {
		used.Insert(p.CharacterID)
	}
	for _, id := range characterPalette {
		if !used.Has(id) {
			return id
		}
	}
	return 0
}
