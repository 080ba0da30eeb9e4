package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the maze game server.
//
// Naming convention: namespace_subsystem_name
// - namespace: maze_game (application-level grouping)
// - subsystem: websocket, room, game (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (messages processed, tags, coins)
// - Histogram: Latency distributions (processing time)

var (
	// ActiveWebSocketConnections tracks the current number of active WebSocket connections
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "maze_game",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of live rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "maze_game",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players in each room.
	// Gauge rather than Histogram: we want the current count per room,
	// not a distribution of historical counts.
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "maze_game",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_code"})

	// WebsocketEvents tracks the total number of WebSocket events processed
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maze_game",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks time spent inside a room runtime per message
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "maze_game",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing room runtime messages",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
	}, []string{"event_type"})

	// PlayerTags counts successful tag adjudications
	PlayerTags = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maze_game",
		Subsystem: "game",
		Name:      "tags_total",
		Help:      "Total successful hunter tags",
	})

	// CoinsCollected counts successful coin pickups
	CoinsCollected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maze_game",
		Subsystem: "game",
		Name:      "coins_collected_total",
		Help:      "Total coins collected by players",
	})

	// QuizFetchFailures counts failed external question fetches
	QuizFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maze_game",
		Subsystem: "game",
		Name:      "quiz_fetch_failures_total",
		Help:      "External question fetches that fell back to the local pool",
	})

	// RateLimitExceeded counts rejected websocket upgrades
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maze_game",
		Subsystem: "websocket",
		Name:      "rate_limit_exceeded_total",
		Help:      "Connection attempts rejected by the rate limiter",
	}, []string{"limit_type", "scope"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
