package game

import (
	"context"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
)

const (
	roomCodePrefix   = "MAZ"
	roomCodeSuffix   = 4
	roomCodeAttempts = 64
)

// Store is the registry of live room runtimes, keyed by room code. It is the
// only shared mutable structure in the game package; everything behind a
// runtime belongs to that runtime's goroutine.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Runtime
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewStore creates an empty room store.
func NewStore(seed int64) *Store {
	return &Store{
		rooms: make(map[string]*Runtime),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Create allocates a unique room code, builds a runtime for it via the
// factory, registers it and starts its loop. Fails with ErrRoomCodeSpace
// when the code space is too crowded to find a free code.
func (s *Store) Create(factory func(code string) *Runtime) (*Runtime, error) {
	s.mu.Lock()
	code, err := s.uniqueCodeLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rt := factory(code)
	s.rooms[code] = rt
	total := len(s.rooms)
	s.mu.Unlock()

	metrics.ActiveRooms.Set(float64(total))
	logging.Info(context.Background(), "Room registered",
		zap.String("roomCode", code), zap.Int("activeRooms", total))

	rt.Start()
	return rt, nil
}

// Get returns the runtime for a room code, or nil.
func (s *Store) Get(code string) *Runtime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// Delete unregisters a room. The runtime itself is stopped by its owner.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	delete(s.rooms, code)
	total := len(s.rooms)
	s.mu.Unlock()

	metrics.ActiveRooms.Set(float64(total))
	metrics.RoomPlayers.DeleteLabelValues(code)
	logging.Info(context.Background(), "Room unregistered",
		zap.String("roomCode", code), zap.Int("activeRooms", total))
}

// Len returns the number of registered rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Codes returns the registered room codes.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		out = append(out, code)
	}
	return out
}

// StopAll stops every runtime. Used on shutdown.
func (s *Store) StopAll() {
	s.mu.Lock()
	runtimes := make([]*Runtime, 0, len(s.rooms))
	for _, rt := range s.rooms {
		runtimes = append(runtimes, rt)
	}
	s.rooms = make(map[string]*Runtime)
	s.mu.Unlock()

	for _, rt := range runtimes {
		rt.Stop()
	}
	metrics.ActiveRooms.Set(0)
}

func (s *Store) uniqueCodeLocked() (string, error) {
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		code := s.randomCode()
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrRoomCodeSpace
}

func (s *Store) randomCode() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	buf := make([]byte, 0, len(roomCodePrefix)+roomCodeSuffix)
	buf = append(buf, roomCodePrefix...)
	for i := 0; i < roomCodeSuffix; i++ {
		buf = append(buf, byte('A'+s.rng.Intn(26)))
	}
	return string(buf)
}
