// Package health exposes the liveness and readiness probe endpoints.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RoomCounter reports how many rooms are live. Satisfied by the game store.
type RoomCounter interface {
	Len() int
}

// Handler manages health check endpoints.
type Handler struct {
	rooms RoomCounter
}

// NewHandler creates a health check handler.
func NewHandler(rooms RoomCounter) *Handler {
	return &Handler{rooms: rooms}
}

// LivenessResponse represents the liveness probe response.
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response.
type ReadinessResponse struct {
	Status      string `json:"status"`
	ActiveRooms int    `json:"activeRooms"`
	Timestamp   string `json:"timestamp"`
}

// Liveness handles GET /health/live.
// Returns 200 if the process is alive (no dependency checks).
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /health/ready.
// The server holds all state in memory, so readiness is process liveness
// plus the room registry being reachable.
func (h *Handler) Readiness(c *gin.Context) {
	active := 0
	if h.rooms != nil {
		active = h.rooms.Len()
	}
	c.JSON(http.StatusOK, ReadinessResponse{
		Status:      "ready",
		ActiveRooms: active,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}
