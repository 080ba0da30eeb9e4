package game

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/set"

	"github.com/mazehunt/server/internal/v1/config"
)

func member(id PlayerID) *Player {
	return &Player{ID: id, SocketID: "sock-" + string(id), Health: 100, State: StateActive, Attempted: set.New[string]()}
}

func TestRoomAddRemovePlayers(t *testing.T) {
	room := NewRoom("MAZABCD", 3, time.Minute)

	a, b, c := member("a"), member("b"), member("c")
	require.NoError(t, room.AddPlayer(a))
	require.NoError(t, room.AddPlayer(b))
	require.NoError(t, room.AddPlayer(c))

	assert.ErrorIs(t, room.AddPlayer(member("d")), ErrRoomFull)
	assert.ErrorIs(t, room.AddPlayer(&Player{ID: "a"}), ErrAlreadyJoined)

	removed := room.RemovePlayer("b")
	require.NotNil(t, removed)
	assert.Nil(t, room.PlayerByID("b"))
	assert.Nil(t, room.RemovePlayer("b"))
	assert.Len(t, room.Players, 2)
}

func TestRemovePlayerPrunesUnicorns(t *testing.T) {
	room := NewRoom("MAZABCD", 4, time.Minute)
	require.NoError(t, room.AddPlayer(member("a")))
	require.NoError(t, room.AddPlayer(member("b")))
	room.SetHunters([]PlayerID{"a", "b"})

	room.RemovePlayer("a")
	assert.False(t, room.Unicorns.Has(PlayerID("a")))
	assert.Equal(t, 1, room.Unicorns.Len())
	assert.Equal(t, []string{"b"}, room.UnicornIDStrings())
}

func TestCharacterIDsAreUniqueAndReused(t *testing.T) {
	room := NewRoom("MAZABCD", 12, time.Minute)

	for i := 0; i < 5; i++ {
		p := member(PlayerID(fmt.Sprintf("p%d", i)))
		require.NoError(t, room.AddPlayer(p))
	}
	used := set.New[int]()
	for _, p := range room.Players {
		assert.False(t, used.Has(p.CharacterID))
		used.Insert(p.CharacterID)
	}

	// The freed character id goes to the next joiner.
	freed := room.PlayerByID("p2").CharacterID
	room.RemovePlayer("p2")
	p := member("late")
	require.NoError(t, room.AddPlayer(p))
	assert.Equal(t, freed, p.CharacterID)
}

func TestLeaderboardOrdering(t *testing.T) {
	room := NewRoom("MAZABCD", 8, time.Minute)
	a, b, c := member("a"), member("b"), member("c")
	a.Coins, a.QuestionsCorrect = 5, 2
	b.Coins, b.QuestionsCorrect = 9, 1
	c.Coins, c.QuestionsCorrect = 5, 7
	require.NoError(t, room.AddPlayer(a))
	require.NoError(t, room.AddPlayer(b))
	require.NoError(t, room.AddPlayer(c))

	lb := room.Leaderboard()
	require.Len(t, lb, 3)
	assert.Equal(t, "b", lb[0].PlayerID, "most coins first")
	assert.Equal(t, "c", lb[1].PlayerID, "correct answers break the tie")
	assert.Equal(t, "a", lb[2].PlayerID)
}

func TestConnectedPlayers(t *testing.T) {
	room := NewRoom("MAZABCD", 8, time.Minute)
	a, b := member("a"), member("b")
	require.NoError(t, room.AddPlayer(a))
	require.NoError(t, room.AddPlayer(b))

	now := time.Now()
	b.DisconnectedAt = &now
	connected := room.ConnectedPlayers()
	require.Len(t, connected, 1)
	assert.Equal(t, PlayerID("a"), connected[0].ID)
	assert.Nil(t, room.PlayerBySocket(b.SocketID), "disconnected sockets do not resolve")
}

func TestStoreRoomCodes(t *testing.T) {
	store := NewStore(42)
	codePattern := regexp.MustCompile(`^MAZ[A-Z]{4}$`)

	deps := Deps{Sender: &nopSender{}, MapCfg: nil, Tuning: config.DefaultGame()}
	seen := set.New[string]()
	for i := 0; i < 25; i++ {
		rt, err := store.Create(func(code string) *Runtime {
			return NewRuntime(code, codecCreatePayload(), deps)
		})
		require.NoError(t, err)
		assert.Regexp(t, codePattern, rt.Code())
		assert.False(t, seen.Has(rt.Code()), "duplicate room code %s", rt.Code())
		seen.Insert(rt.Code())
	}
	assert.Equal(t, 25, store.Len())

	store.StopAll()
	assert.Equal(t, 0, store.Len())
}

func TestStoreGetAndDelete(t *testing.T) {
	store := NewStore(42)
	deps := Deps{Sender: &nopSender{}, Tuning: config.DefaultGame()}

	rt, err := store.Create(func(code string) *Runtime {
		return NewRuntime(code, codecCreatePayload(), deps)
	})
	require.NoError(t, err)
	defer rt.Stop()

	assert.Same(t, rt, store.Get(rt.Code()))
	store.Delete(rt.Code())
	assert.Nil(t, store.Get(rt.Code()))
}
