package codec

// MapInfo describes the grid so clients can render without a second fetch.
type MapInfo struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	CellSize int `json:"cellSize"`
}

type GameStartedPayload struct {
	Room           RoomSnapshot `json:"room"`
	Map            MapInfo      `json:"map"`
	DurationMillis int64        `json:"durationMillis"`
}

// GameStatePayload is the in-game world snapshot sent to a reconnecting
// client so it can resume mid-round.
type GameStatePayload struct {
	Phase           string                   `json:"phase"`
	Positions       []PositionUpdatePayload  `json:"positions"`
	Coins           []CoinSpawnedPayload     `json:"coins"`
	Sinkholes       []SinkholeSpawnedPayload `json:"sinkholes"`
	Traps           []TrapSpawnedPayload     `json:"traps"`
	DeployedTraps   []TrapDeployedPayload    `json:"deployedTraps"`
	RemainingMillis int64                    `json:"remainingMillis"`
}

type RejoinedPayload struct {
	PlayerID string            `json:"playerId"`
	Room     RoomSnapshot      `json:"room"`
	Game     *GameStatePayload `json:"game,omitempty"`
}
