package codec

import (
	"encoding/json"

	"github.com/mazehunt/server/internal/v1/grid"
)

// Message is the wire envelope. Inbound payloads stay raw until the handler
// decodes them into their typed shape; outbound payloads are typed structs.
type Message struct {
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound is an envelope with an already-typed payload, used on the way out.
type Outbound struct {
	Event   Event `json:"event"`
	Payload any   `json:"payload,omitempty"`
}

// Encode marshals an outbound envelope to its wire form.
func Encode(event Event, payload any) ([]byte, error) {
	return json.Marshal(Outbound{Event: event, Payload: payload})
}

// Decode parses a wire frame into a Message.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}

// --- Inbound payloads ---

type CreateRoomPayload struct {
	Name       string `json:"name,omitempty"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
	QuizID     string `json:"quizId,omitempty"`
}

type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName,omitempty"`
}

type RejoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type UpdatePositionPayload struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Row int     `json:"row"`
	Col int     `json:"col"`
}

type BlitzAnswerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type CollectCoinPayload struct {
	CoinID string `json:"coinId"`
}

type EnterSinkholePayload struct {
	SinkholeID string `json:"sinkholeId"`
}

type CollectTrapPayload struct {
	TrapID string `json:"trapId"`
}

type DeployTrapPayload struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// --- Outbound payloads ---

// PlayerInfo is the public view of a player, embedded in room snapshots.
type PlayerInfo struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	IsHost      bool   `json:"isHost"`
	IsUnicorn   bool   `json:"isUnicorn"`
	Coins       int    `json:"coins"`
	Health      int    `json:"health"`
	State       string `json:"state"`
	CharacterID int    `json:"characterId"`
	Connected   bool   `json:"connected"`
}

// RoomSnapshot is the full public room state.
type RoomSnapshot struct {
	RoomCode   string       `json:"roomCode"`
	Status     string       `json:"status"`
	Phase      string       `json:"phase"`
	MaxPlayers int          `json:"maxPlayers"`
	HostID     string       `json:"hostId"`
	Players    []PlayerInfo `json:"players"`
	UnicornIDs []string     `json:"unicornIds"`
}

type RoomCreatedPayload struct {
	RoomCode string       `json:"roomCode"`
	PlayerID string       `json:"playerId"`
	Room     RoomSnapshot `json:"room"`
}

type RoomJoinedPayload struct {
	RoomCode string       `json:"roomCode"`
	PlayerID string       `json:"playerId"`
	Room     RoomSnapshot `json:"room"`
}

type RoomUpdatePayload struct {
	Room RoomSnapshot `json:"room"`
}

type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerDisconnectedPayload struct {
	PlayerID    string `json:"playerId"`
	GraceMillis int64  `json:"graceMillis"`
}

type PlayerReconnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type HostTransferredPayload struct {
	HostID string `json:"hostId"`
}

type UnicornTransferredPayload struct {
	UnicornIDs []string `json:"unicornIds"`
}

type PhaseChangePayload struct {
	Phase string `json:"phase"`
}

// QuestionView is a question as shown to a client: no correct index.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Images  []string `json:"images,omitempty"`
}

type BlitzStartPayload struct {
	Questions      []QuestionView `json:"questions"`
	DurationMillis int64          `json:"durationMillis"`
}

type BlitzAnswerResultPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	CorrectIndex  int  `json:"correctIndex"`
}

// BlitzPlayerResult is one row of the per-round blitz summary.
type BlitzPlayerResult struct {
	PlayerID string `json:"playerId"`
	Correct  int    `json:"correct"`
	Bonus    int    `json:"bonus"`
}

type BlitzResultPayload struct {
	Results    []BlitzPlayerResult `json:"results"`
	UnicornIDs []string            `json:"unicornIds"`
}

type HuntStartPayload struct {
	UnicornIDs     []string `json:"unicornIds"`
	DurationMillis int64    `json:"durationMillis"`
}

type HuntEndPayload struct {
	Reason string `json:"reason"`
}

type PositionUpdatePayload struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
}

type PlayerTaggedPayload struct {
	AttackerID  string `json:"attackerId"`
	VictimID    string `json:"victimId"`
	Damage      int    `json:"damage"`
	CoinsStolen int    `json:"coinsStolen"`
	Row         int    `json:"row"`
	Col         int    `json:"col"`
}

type PlayerHitPayload struct {
	PlayerID  string     `json:"playerId"`
	Health    int        `json:"health"`
	Knockback *grid.Cell `json:"knockback,omitempty"`
	// Client animation window for the knockback slide.
	KnockbackMillis int64 `json:"knockbackMillis,omitempty"`
}

type PlayerStateChangePayload struct {
	PlayerID string `json:"playerId"`
	State    string `json:"state"`
}

type PlayerRespawnPayload struct {
	PlayerID string  `json:"playerId"`
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type HealthUpdatePayload struct {
	PlayerID string `json:"playerId"`
	Health   int    `json:"health"`
}

type CoinSpawnedPayload struct {
	CoinID string `json:"coinId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type CoinCollectedPayload struct {
	CoinID   string `json:"coinId"`
	PlayerID string `json:"playerId"`
	Coins    int    `json:"coins"`
}

type SinkholeSpawnedPayload struct {
	SinkholeID string `json:"sinkholeId"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Color      string `json:"color"`
}

type PlayerTeleportedPayload struct {
	PlayerID string `json:"playerId"`
	FromRow  int    `json:"fromRow"`
	FromCol  int    `json:"fromCol"`
	ToRow    int    `json:"toRow"`
	ToCol    int    `json:"toCol"`
}

type TrapSpawnedPayload struct {
	TrapID string `json:"trapId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type TrapCollectedPayload struct {
	TrapID   string `json:"trapId"`
	PlayerID string `json:"playerId"`
}

type TrapDeployedPayload struct {
	TrapID   string `json:"trapId"`
	PlayerID string `json:"playerId"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
}

type TrapTriggeredPayload struct {
	TrapID   string `json:"trapId"`
	HunterID string `json:"hunterId"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
}

type UnfreezeQuizStartPayload struct {
	Questions []QuestionView `json:"questions"`
	PassCount int            `json:"passCount"`
}

type UnfreezeQuizResultPayload struct {
	PlayerID string `json:"playerId"`
	Passed   bool   `json:"passed"`
	Correct  int    `json:"correct"`
}

// LeaderboardEntry is one row of the final standings.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Coins    int    `json:"coins"`
	Correct  int    `json:"correct"`
}

type GameEndPayload struct {
	Reason      string             `json:"reason"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
