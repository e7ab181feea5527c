// internal/room/registry.go
package room

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skrawlhq/skrawl/internal/words"
)

// Registry tracks all live rooms by code. Rooms are created on first use and
// removed once their last member leaves.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	bank  *words.Bank
	store SurfaceStore

	// Per-room game knobs, applied to rooms at creation.
	RoundDuration time.Duration
	MaxRounds     int
}

// NewRegistry builds an empty registry. store may be nil to disable surface
// persistence.
func NewRegistry(bank *words.Bank, store SurfaceStore) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		bank:  bank,
		store: store,
	}
}

// NewRoomCode mints a short shareable room code.
func NewRoomCode() string {
	id := uuid.NewString()
	return strings.ToUpper(strings.ReplaceAll(id, "-", "")[:6])
}

// GetOrCreate returns the room for code, creating it if absent. Newly created
// rooms attempt to restore a persisted canvas in the background.
func (reg *Registry) GetOrCreate(code string) *Room {
	reg.mu.Lock()
	if r, ok := reg.rooms[code]; ok {
		reg.mu.Unlock()
		return r
	}
	r := NewRoom(code, reg.bank, reg.store)
	if reg.RoundDuration > 0 {
		r.RoundDuration = reg.RoundDuration
	}
	if reg.MaxRounds > 0 {
		r.MaxRounds = reg.MaxRounds
	}
	r.OnEmpty = reg.Remove
	reg.rooms[code] = r
	reg.mu.Unlock()

	if reg.store != nil {
		go restoreSurface(r, reg.store)
	}
	return r
}

// Get returns the room for code, if it exists.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// Remove drops an empty room from the registry. Rooms that regained members
// since emptying are left alone.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[code]
	if !ok {
		return
	}
	if !r.Empty() {
		return
	}
	delete(reg.rooms, code)
	r.CloseJournal()
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func restoreSurface(r *Room, store SurfaceStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	blob, err := store.Load(ctx, r.Code)
	if err != nil {
		log.Printf("room %s: surface restore failed: %v", r.Code, err)
		return
	}
	if len(blob) == 0 {
		return
	}
	if err := r.RestoreSurface(blob); err != nil {
		log.Printf("room %s: surface blob corrupt, starting blank: %v", r.Code, err)
	}
}
