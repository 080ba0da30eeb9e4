package hub

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mazehunt/server/internal/v1/codec"
	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/game"
	"github.com/mazehunt/server/internal/v1/grid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := &config.Config{
		Port:            "8080",
		CORSOrigin:      "https://game.example.com",
		DevelopmentMode: true,
	}
	h := NewHub(game.NewStore(17), cfg, config.DefaultGame(), grid.DefaultMap(), nil, nil)
	t.Cleanup(func() {
		require.NoError(t, h.Shutdown(t.Context()))
	})
	return h
}

// newTestClient registers a client without real pumps; frames queue on the
// send channel for inspection.
func newTestClient(h *Hub, id string) *Client {
	c := newClient(id, nil, h)
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

func rawMsg(t *testing.T, event codec.Event, payload any) codec.Message {
	t.Helper()
	if payload == nil {
		return codec.Message{Event: event}
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return codec.Message{Event: event, Payload: raw}
}

// nextFrame waits for the client's next queued frame and decodes its envelope.
func nextFrame(t *testing.T, c *Client) (codec.Event, json.RawMessage) {
	t.Helper()
	select {
	case data := <-c.send:
		var out struct {
			Event   codec.Event     `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &out))
		return out.Event, out.Payload
	case <-time.After(time.Second):
		t.Fatal("no frame arrived")
		return "", nil
	}
}

func TestCreateRoomBindsSocket(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")

	h.route(c, rawMsg(t, codec.EventCreateRoom, codec.CreateRoomPayload{Name: "Rose"}))

	event, payload := nextFrame(t, c)
	require.Equal(t, codec.EventRoomCreated, event)
	var created codec.RoomCreatedPayload
	require.NoError(t, json.Unmarshal(payload, &created))
	assert.Regexp(t, `^MAZ[A-Z]{4}$`, created.RoomCode)
	assert.NotNil(t, h.store.Get(created.RoomCode))

	require.Eventually(t, func() bool {
		b, ok := h.bindingOf("s1")
		return ok && b.roomCode == created.RoomCode && b.playerID == created.PlayerID
	}, time.Second, 5*time.Millisecond)
}

func TestCreateWhileBoundRejected(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")
	h.Bind("s1", "MAZAAAA", "p1")

	h.route(c, rawMsg(t, codec.EventCreateRoom, nil))

	event, payload := nextFrame(t, c)
	require.Equal(t, codec.EventCreateError, event)
	var e codec.ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &e))
	assert.Equal(t, "already_in_room", e.Code)
	assert.Equal(t, 0, h.store.Len())
}

func TestJoinUnknownRoom(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")

	h.route(c, rawMsg(t, codec.EventJoinRoom, codec.JoinRoomPayload{RoomCode: "MAZZZZZ"}))

	event, payload := nextFrame(t, c)
	require.Equal(t, codec.EventJoinError, event)
	var e codec.ErrorPayload
	require.NoError(t, json.Unmarshal(payload, &e))
	assert.Equal(t, "room_not_found", e.Code)
}

func TestRejoinUnknownRoom(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")

	h.route(c, rawMsg(t, codec.EventRejoinRoom, codec.RejoinRoomPayload{RoomCode: "MAZZZZZ", PlayerID: "p1"}))

	event, _ := nextFrame(t, c)
	assert.Equal(t, codec.EventRejoinError, event)
}

func TestJoinRoutesToRoom(t *testing.T) {
	h := newTestHub(t)
	host := newTestClient(h, "s1")
	h.route(host, rawMsg(t, codec.EventCreateRoom, nil))
	event, payload := nextFrame(t, host)
	require.Equal(t, codec.EventRoomCreated, event)
	var created codec.RoomCreatedPayload
	require.NoError(t, json.Unmarshal(payload, &created))

	joiner := newTestClient(h, "s2")
	h.route(joiner, rawMsg(t, codec.EventJoinRoom, codec.JoinRoomPayload{
		RoomCode: created.RoomCode, PlayerName: "Ada",
	}))

	event, payload = nextFrame(t, joiner)
	require.Equal(t, codec.EventRoomJoined, event)
	var joined codec.RoomJoinedPayload
	require.NoError(t, json.Unmarshal(payload, &joined))
	assert.Len(t, joined.Room.Players, 2)
}

func TestHotPathUnboundDropped(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")

	h.route(c, rawMsg(t, codec.EventUpdatePosition, codec.UpdatePositionPayload{X: 16, Y: 16}))
	h.route(c, rawMsg(t, codec.EventCollectCoin, codec.CollectCoinPayload{CoinID: "coin_1"}))

	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame for unbound socket: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPingWithoutRoom(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")

	h.route(c, rawMsg(t, codec.EventPing, nil))

	event, _ := nextFrame(t, c)
	assert.Equal(t, codec.EventPong, event)
}

func TestStaleBindingUnbound(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")
	h.Bind("s1", "MAZGONE", "p1")

	h.route(c, rawMsg(t, codec.EventUpdatePosition, codec.UpdatePositionPayload{X: 16, Y: 16}))

	_, bound := h.bindingOf("s1")
	assert.False(t, bound, "binding to a dead room is pruned")
}

func TestDropClientNotifiesRoom(t *testing.T) {
	h := newTestHub(t)
	c := newTestClient(h, "s1")
	h.route(c, rawMsg(t, codec.EventCreateRoom, nil))
	event, payload := nextFrame(t, c)
	require.Equal(t, codec.EventRoomCreated, event)
	var created codec.RoomCreatedPayload
	require.NoError(t, json.Unmarshal(payload, &created))
	require.Eventually(t, func() bool {
		_, ok := h.bindingOf("s1")
		return ok
	}, time.Second, 5*time.Millisecond)

	h.dropClient(c)

	_, bound := h.bindingOf("s1")
	assert.False(t, bound)
	// The lobby room empties and destroys itself.
	require.Eventually(t, func() bool {
		return h.store.Get(created.RoomCode) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestCreateFromDeadSocketSelfDestructs(t *testing.T) {
	h := newTestHub(t)
	// The socket dropped before the runtime ran: it is not registered with
	// the hub, so dropClient already came and went without a binding.
	c := newClient("s1", nil, h)

	h.route(c, rawMsg(t, codec.EventCreateRoom, codec.CreateRoomPayload{Name: "Ghost"}))

	// The runtime learns of the dead socket at bind time, removes the
	// phantom host and destroys the empty room.
	require.Eventually(t, func() bool {
		_, bound := h.bindingOf("s1")
		return !bound && h.store.Len() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSendToUnknownSocketIsNoop(t *testing.T) {
	h := newTestHub(t)
	h.Send("ghost", codec.EventPong, nil)
}

func TestShutdownStopsRoomsAndClients(t *testing.T) {
	cfg := &config.Config{DevelopmentMode: true}
	h := NewHub(game.NewStore(17), cfg, config.DefaultGame(), grid.DefaultMap(), nil, nil)
	c := newTestClient(h, "s1")
	h.route(c, rawMsg(t, codec.EventCreateRoom, nil))
	event, _ := nextFrame(t, c)
	require.Equal(t, codec.EventRoomCreated, event)

	require.NoError(t, h.Shutdown(t.Context()))

	assert.Equal(t, 0, h.store.Len())
	// The send channel is closed; queueing is a harmless no-op.
	c.Send([]byte("late"))
}

func TestCheckOrigin(t *testing.T) {
	mk := func(dev bool) *Hub {
		return NewHub(game.NewStore(17), &config.Config{
			DevelopmentMode: dev,
			CORSOrigin:      "https://game.example.com",
		}, config.DefaultGame(), grid.DefaultMap(), nil, nil)
	}
	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "/ws/hub", nil)
		r.Header.Set("Origin", origin)
		return r
	}

	dev := mk(true)
	assert.True(t, dev.upgrader.CheckOrigin(req("https://evil.example.com")))

	prod := mk(false)
	assert.True(t, prod.upgrader.CheckOrigin(req("https://game.example.com")))
	assert.False(t, prod.upgrader.CheckOrigin(req("https://evil.example.com")))
}
