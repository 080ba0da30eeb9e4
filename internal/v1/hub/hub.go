// Package hub owns the websocket edge: upgrading connections, decoding
// frames, and routing them to room runtimes. Sockets are anonymous until a
// create, join or rejoin binds them to a (room, player) pair.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/game"
	"github.com/mazehunt/server/internal/v1/grid"
	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
	"github.com/mazehunt/server/internal/v1/ratelimit"
)

// binding ties a socket to the room and player it acts for.
type binding struct {
	roomCode string
	playerID string
}

// Hub coordinates all sockets and rooms. It implements game.Sender so room
// runtimes can reach sockets without knowing about websockets.
type Hub struct {
	store       *game.Store
	cfg         *config.Config
	tuning      config.Game
	mapCfg      *grid.MapConfig
	quiz        game.QuizFetcher
	rateLimiter *ratelimit.RateLimiter
	upgrader    websocket.Upgrader

	mu       sync.RWMutex
	clients  map[string]*Client
	bindings map[string]binding
}

// NewHub wires the hub with its collaborators.
func NewHub(store *game.Store, cfg *config.Config, tuning config.Game, mapCfg *grid.MapConfig, quiz game.QuizFetcher, rl *ratelimit.RateLimiter) *Hub {
	h := &Hub{
		store:       store,
		cfg:         cfg,
		tuning:      tuning,
		mapCfg:      mapCfg,
		quiz:        quiz,
		rateLimiter: rl,
		clients:     make(map[string]*Client),
		bindings:    make(map[string]binding),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.DevelopmentMode {
				return true
			}
			return r.Header.Get("Origin") == cfg.CORSOrigin
		},
	}
	return h
}

// Store exposes the room store for health reporting.
func (h *Hub) Store() *game.Store { return h.store }

// ServeWs upgrades an HTTP request to a websocket and starts its pumps.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.rateLimiter != nil && !h.rateLimiter.CheckWebSocket(c) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, h)
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	metrics.IncConnection()
	logging.Info(c.Request.Context(), "WebSocket connected",
		zap.String("socketId", client.id), zap.String("remote", c.ClientIP()))

	go client.writePump()
	go client.readPump()
}

// route dispatches one decoded frame. Connection-family events may arrive
// from unbound sockets; everything else requires a binding.
func (h *Hub) route(c *Client, msg codec.Message) {
	metrics.WebsocketEvents.WithLabelValues(string(msg.Event), "received").Inc()

	switch codec.FamilyOf(msg.Event) {
	case codec.FamilyConnection:
		h.routeConnection(c, msg)
	default:
		if msg.Event == codec.EventPing {
			if b, ok := h.bindingOf(c.id); ok {
				if rt := h.store.Get(b.roomCode); rt != nil {
					rt.Deliver(c.id, msg)
					return
				}
			}
			h.Send(c.id, codec.EventPong, nil)
			return
		}
		b, ok := h.bindingOf(c.id)
		if !ok {
			// Hot-path frames from unbound sockets are dropped silently.
			metrics.WebsocketEvents.WithLabelValues(string(msg.Event), "unbound").Inc()
			return
		}
		rt := h.store.Get(b.roomCode)
		if rt == nil {
			h.Unbind(c.id)
			return
		}
		rt.Deliver(c.id, msg)
	}
}

func (h *Hub) routeConnection(c *Client, msg codec.Message) {
	switch msg.Event {
	case codec.EventCreateRoom:
		h.handleCreate(c, msg)
	case codec.EventJoinRoom:
		var payload codec.JoinRoomPayload
		if err := decode(msg.Payload, &payload); err != nil {
			h.Send(c.id, codec.EventJoinError, codec.ErrorPayload{Code: "bad_payload", Message: "malformed join_room payload"})
			return
		}
		rt := h.store.Get(payload.RoomCode)
		if rt == nil {
			h.Send(c.id, codec.EventJoinError, codec.ErrorPayload{Code: "room_not_found", Message: game.ErrRoomNotFound.Error()})
			return
		}
		rt.Deliver(c.id, msg)
	case codec.EventRejoinRoom:
		var payload codec.RejoinRoomPayload
		if err := decode(msg.Payload, &payload); err != nil {
			h.Send(c.id, codec.EventRejoinError, codec.ErrorPayload{Code: "bad_payload", Message: "malformed rejoin_room payload"})
			return
		}
		rt := h.store.Get(payload.RoomCode)
		if rt == nil {
			h.Send(c.id, codec.EventRejoinError, codec.ErrorPayload{Code: "room_not_found", Message: game.ErrRoomNotFound.Error()})
			return
		}
		rt.Deliver(c.id, msg)
	}
}

func (h *Hub) handleCreate(c *Client, msg codec.Message) {
	var payload codec.CreateRoomPayload
	if len(msg.Payload) > 0 {
		if err := decode(msg.Payload, &payload); err != nil {
			h.Send(c.id, codec.EventCreateError, codec.ErrorPayload{Code: "bad_payload", Message: "malformed create_room payload"})
			return
		}
	}
	if _, bound := h.bindingOf(c.id); bound {
		h.Send(c.id, codec.EventCreateError, codec.ErrorPayload{Code: "already_in_room", Message: "leave the current room first"})
		return
	}

	rt, err := h.store.Create(func(code string) *game.Runtime {
		return game.NewRuntime(code, payload, game.Deps{
			Store:  h.store,
			Sender: h,
			Quiz:   h.quiz,
			MapCfg: h.mapCfg,
			Tuning: h.tuning,
		})
	})
	if err != nil {
		h.Send(c.id, codec.EventCreateError, codec.ErrorPayload{Code: "room_code_space", Message: err.Error()})
		return
	}
	rt.Deliver(c.id, msg)
}

// dropClient is called when a socket's read pump exits.
func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	b, bound := h.bindings[c.id]
	delete(h.bindings, c.id)
	h.mu.Unlock()

	c.Disconnect()
	if bound {
		if rt := h.store.Get(b.roomCode); rt != nil {
			rt.Disconnect(c.id)
		}
	}
	logging.Info(context.Background(), "WebSocket disconnected", zap.String("socketId", c.id))
}

func (h *Hub) bindingOf(socketID string) (binding, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bindings[socketID]
	return b, ok
}

// --- game.Sender ---

// Send encodes and queues one event for a socket.
func (h *Hub) Send(socketID string, event codec.Event, payload any) {
	h.mu.RLock()
	c, ok := h.clients[socketID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := codec.Encode(event, payload)
	if err != nil {
		logging.Error(context.Background(), "Failed to encode event",
			zap.String("event", string(event)), zap.Error(err))
		return
	}
	c.Send(data)
	metrics.WebsocketEvents.WithLabelValues(string(event), "sent").Inc()
}

// Bind routes a socket's future frames to a room as a specific player. A
// socket that died before the runtime processed its frame missed the drop
// notification, so the room is told about the disconnect here instead of
// keeping a phantom member.
func (h *Hub) Bind(socketID, roomCode, playerID string) {
	h.mu.Lock()
	_, alive := h.clients[socketID]
	if alive {
		h.bindings[socketID] = binding{roomCode: roomCode, playerID: playerID}
	}
	h.mu.Unlock()

	if alive {
		return
	}
	if rt := h.store.Get(roomCode); rt != nil {
		rt.Disconnect(socketID)
	}
}

// Unbind removes a socket's room binding. The socket stays open and may
// create or join another room.
func (h *Hub) Unbind(socketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.bindings, socketID)
}

// Shutdown stops all rooms and closes every socket.
func (h *Hub) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "Shutting down hub, closing all rooms and sockets")
	h.store.StopAll()

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.bindings = make(map[string]binding)
	h.mu.Unlock()

	for _, c := range clients {
		c.Disconnect()
	}
	logging.Info(ctx, "All sockets closed", zap.Int("count", len(clients)))
	return nil
}

func decode(raw []byte, v any) error {
	if len(raw) == 0 {
		return errEmptyPayload
	}
	return json.Unmarshal(raw, v)
}

var errEmptyPayload = errors.New("empty payload")
