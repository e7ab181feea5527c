// internal/room/room.go
package room

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/skrawlhq/skrawl/internal/cache"
	"github.com/skrawlhq/skrawl/internal/game"
	"github.com/skrawlhq/skrawl/internal/models"
	"github.com/skrawlhq/skrawl/internal/words"
)

// Room is one drawing room: its membership, its canvas, and (while a game is
// running) its session. All room state is guarded by mu.
//
// Lock order: session.Mu -> room.mu. Session callbacks (roster, broadcast,
// journal) take room.mu while holding session.Mu, so room methods must never
// call into the session while holding room.mu.
type Room struct {
	Code string

	mu      sync.Mutex
	host    string
	order   []string         // join order; order[0] is promoted when the host leaves
	members map[string]*Conn // nil value = seat reserved over HTTP, socket not attached yet

	canvas   surface
	session  *game.Session
	eventSeq int

	// Journal records are queued here and drained by a single per-room
	// worker so they reach the external queue in acceptance order.
	journalEnabled bool
	journalCh      chan cache.RoomEventRecord
	journalDone    chan struct{}
	journalOnce    sync.Once
	publishJournal func(ctx context.Context, rec cache.RoomEventRecord) error

	bank  *words.Bank
	store SurfaceStore

	RoundDuration time.Duration
	MaxRounds     int
	TickInterval  time.Duration

	// OnEmpty is invoked (outside the lock) after the last member leaves.
	OnEmpty func(code string)
}

// SurfaceStore persists canvas blobs across engine restarts. Implementations
// treat an empty blob as a delete.
type SurfaceStore interface {
	Save(ctx context.Context, roomCode string, blob []byte) error
	Load(ctx context.Context, roomCode string) ([]byte, error)
}

// NewRoom builds an empty room and starts its journal worker.
func NewRoom(code string, bank *words.Bank, store SurfaceStore) *Room {
	r := &Room{
		Code:           code,
		members:        make(map[string]*Conn),
		journalEnabled: cache.Enabled(),
		journalCh:      make(chan cache.RoomEventRecord, 256),
		journalDone:    make(chan struct{}),
		publishJournal: cache.PublishRoomEvent,
		bank:           bank,
		store:          store,
		RoundDuration:  game.DefaultRoundDuration,
		MaxRounds:      game.DefaultMaxRounds,
		TickInterval:   game.DefaultTickInterval,
	}
	go r.journalWorker()
	return r
}

// Join adds a participant, or attaches a socket to a seat reserved earlier
// over HTTP. The first joiner becomes host. A name already held by a live
// connection is rejected with ErrDuplicateName; the holder keeps the name.
// Returns the roster after the join.
func (r *Room) Join(username string, conn *Conn) ([]string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyName
	}

	r.mu.Lock()
	existing, present := r.members[username]
	if present {
		if conn == nil || existing != nil {
			r.mu.Unlock()
			return nil, ErrDuplicateName
		}
		// Socket attaching to an HTTP-reserved seat.
		r.members[username] = conn
	} else {
		r.members[username] = conn
		r.order = append(r.order, username)
		if r.host == "" {
			r.host = username
		}
		r.broadcastLocked(map[string]interface{}{
			"type":     "user-joined",
			"roomCode": r.Code,
			"username": username,
		})
		r.journalLocked(username, "user_joined", nil)
	}
	roster := r.rosterLocked()
	strokes := r.canvas.snapshot()
	r.mu.Unlock()

	if conn != nil {
		// Late joiners replay the accepted stroke log so their canvas
		// converges with the room's.
		conn.Write(map[string]interface{}{
			"type":     "canvas-state",
			"roomCode": r.Code,
			"strokes":  strokes,
		})
		if sess := r.Session(); sess != nil {
			state := sess.SnapshotFor(username)
			state["type"] = "game-state"
			state["roomCode"] = r.Code
			conn.Write(state)
		}
	}
	return roster, nil
}

// Leave removes a participant. Safe to call twice; the second call is a
// no-op. Handles host promotion, session reconciliation, and teardown of the
// room when it empties.
func (r *Room) Leave(username string) {
	r.mu.Lock()
	conn, present := r.members[username]
	if !present {
		r.mu.Unlock()
		return
	}
	delete(r.members, username)
	for i, name := range r.order {
		if name == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.host == username {
		r.host = ""
		if len(r.order) > 0 {
			r.host = r.order[0]
			r.journalLocked(r.host, "host_promoted", nil)
		}
	}
	r.broadcastLocked(map[string]interface{}{
		"type":     "user-left",
		"roomCode": r.Code,
		"username": username,
	})
	r.journalLocked(username, "user_left", nil)

	empty := len(r.order) == 0
	sess := r.session
	r.mu.Unlock()

	if conn != nil && conn.Cancel != nil {
		conn.Cancel()
	}

	if sess != nil {
		if empty {
			sess.Cancel()
			r.clearSession()
		} else {
			sess.HandleLeave(username)
		}
	}
	if empty {
		r.persistSurface()
		if r.OnEmpty != nil {
			r.OnEmpty(r.Code)
		}
	}
}

// StartGame begins a session. Host-only; requires at least two participants
// and no session already running.
func (r *Room) StartGame(username string) error {
	r.mu.Lock()
	if r.host != username {
		r.mu.Unlock()
		return ErrNotHost
	}
	if r.session != nil {
		r.mu.Unlock()
		return ErrGameInProgress
	}
	if len(r.order) < 2 {
		r.mu.Unlock()
		return ErrNotEnoughPlayers
	}

	sess := game.NewSession(r.Code, r.bank)
	sess.RoundDuration = r.RoundDuration
	sess.MaxRounds = r.MaxRounds
	sess.TickInterval = r.TickInterval
	sess.RosterFn = r.Roster
	sess.BroadcastFn = func(ev game.Event) { r.Broadcast(ev) }
	sess.BroadcastToFn = func(name string, ev game.Event) { r.SendTo(name, ev) }
	sess.BroadcastExceptFn = func(name string, ev game.Event) { r.BroadcastExcept(name, ev) }
	sess.OnRoundStart = r.resetCanvasForRound
	sess.OnEnded = r.clearSession
	sess.LogFn = r.Journal
	r.session = sess
	r.mu.Unlock()

	sess.Begin()
	return nil
}

// AbortGame ends a running session early. Host-only.
func (r *Room) AbortGame(username string) error {
	r.mu.Lock()
	if r.host != username {
		r.mu.Unlock()
		return ErrNotHost
	}
	sess := r.session
	r.mu.Unlock()

	if sess == nil {
		return ErrNoActiveSession
	}
	sess.Abort()
	return nil
}

// AppendStroke validates and accepts one stroke from username, folds it into
// the canvas, and relays it to everyone else in acceptance order. During an
// active round only the drawer may draw.
func (r *Room) AppendStroke(username string, st models.Stroke) error {
	if sess := r.Session(); sess != nil {
		if drawer := sess.Drawer(); drawer != "" && drawer != username {
			return ErrNotDrawer
		}
	}

	r.mu.Lock()
	if _, present := r.members[username]; !present {
		r.mu.Unlock()
		return ErrNotMember
	}
	r.canvas.apply(st)

	var ev map[string]interface{}
	switch st.Action {
	case models.StrokeBegin:
		ev = map[string]interface{}{"type": "beginPath", "roomCode": r.Code, "x": st.X, "y": st.Y}
	case models.StrokeReset:
		ev = map[string]interface{}{"type": "resetCanvas", "roomCode": r.Code}
		r.journalLocked(username, "canvas_reset", nil)
	default:
		ev = map[string]interface{}{"type": "draw-data", "roomCode": r.Code, "x": st.X, "y": st.Y}
	}
	r.broadcastExceptLocked(username, ev)
	r.mu.Unlock()

	if st.Action == models.StrokeReset {
		r.persistSurface()
	}
	return nil
}

// SubmitChat routes one chat line. Lines that score as a fresh correct guess
// are consumed by the session (which announces the guesser without the word);
// everything else is relayed verbatim.
func (r *Room) SubmitChat(username, text string, ts time.Time) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if sess := r.Session(); sess != nil && sess.Guess(username, text) {
		return
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := models.ChatMessage{Username: username, Message: text, Timestamp: ts}

	r.mu.Lock()
	r.broadcastLocked(map[string]interface{}{
		"type":    "message",
		"message": msg,
	})
	r.journalLocked(username, "chat_message", map[string]interface{}{"message": text})
	r.mu.Unlock()
}

// Roster returns the membership in join order.
func (r *Room) Roster() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Host returns the current host's name.
func (r *Room) Host() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// Empty reports whether the room has no members.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order) == 0
}

// Session returns the running session, or nil.
func (r *Room) Session() *game.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *Room) clearSession() {
	r.mu.Lock()
	r.session = nil
	r.mu.Unlock()
}

// StrokeSnapshot returns the accepted stroke log in acceptance order.
func (r *Room) StrokeSnapshot() []models.Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.snapshot()
}

// resetCanvasForRound clears the canvas at a round boundary and tells clients
// to do the same. Called from the session with session.Mu held.
func (r *Room) resetCanvasForRound() {
	r.mu.Lock()
	r.canvas.apply(models.Stroke{Action: models.StrokeReset})
	r.broadcastLocked(map[string]interface{}{"type": "resetCanvas", "roomCode": r.Code})
	r.mu.Unlock()
}

// RestoreSurface loads a persisted canvas blob into the room.
func (r *Room) RestoreSurface(blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.restore(blob)
}

// persistSurface pushes the current canvas blob to the surface store, when
// one is configured.
func (r *Room) persistSurface() {
	if r.store == nil {
		return
	}
	r.mu.Lock()
	blob, err := r.canvas.blob()
	r.mu.Unlock()
	if err != nil {
		log.Printf("room %s: failed to serialize surface: %v", r.Code, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.store.Save(ctx, r.Code, blob); err != nil {
		log.Printf("room %s: failed to persist surface: %v", r.Code, err)
	}
}

// Broadcast sends msg to every attached connection.
func (r *Room) Broadcast(msg interface{}) {
	r.mu.Lock()
	r.broadcastLocked(msg)
	r.mu.Unlock()
}

// BroadcastExcept sends msg to every attached connection but one.
func (r *Room) BroadcastExcept(username string, msg interface{}) {
	r.mu.Lock()
	r.broadcastExceptLocked(username, msg)
	r.mu.Unlock()
}

// SendTo sends msg to one named participant, if attached.
func (r *Room) SendTo(username string, msg interface{}) {
	r.mu.Lock()
	conn := r.members[username]
	r.mu.Unlock()
	conn.Write(msg)
}

// broadcastLocked fans msg out to every live connection. Writes are
// non-blocking, so holding the lock here preserves acceptance order without
// risking a stall on a slow client. Caller holds r.mu.
func (r *Room) broadcastLocked(msg interface{}) {
	for _, conn := range r.members {
		conn.Write(msg)
	}
}

func (r *Room) broadcastExceptLocked(username string, msg interface{}) {
	for name, conn := range r.members {
		if name == username {
			continue
		}
		conn.Write(msg)
	}
}

// Journal records a room event to the external journal queue, when Redis is
// connected. The sequence number orders events within the room.
func (r *Room) Journal(actor, eventType string, payload map[string]interface{}) {
	r.mu.Lock()
	r.journalLocked(actor, eventType, payload)
	r.mu.Unlock()
}

func (r *Room) journalLocked(actor, eventType string, payload map[string]interface{}) {
	if !r.journalEnabled {
		return
	}
	r.eventSeq++
	rec := cache.RoomEventRecord{
		RoomCode:  r.Code,
		Seq:       r.eventSeq,
		Actor:     actor,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	select {
	case r.journalCh <- rec:
	default:
		log.Printf("room %s: journal queue full, dropping %s", r.Code, eventType)
	}
}

// journalWorker publishes queued records one at a time, preserving the
// acceptance order the sequence numbers describe.
func (r *Room) journalWorker() {
	for {
		select {
		case rec := <-r.journalCh:
			r.publishRecord(rec)
		case <-r.journalDone:
			for {
				select {
				case rec := <-r.journalCh:
					r.publishRecord(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Room) publishRecord(rec cache.RoomEventRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.publishJournal(ctx, rec); err != nil {
		log.Printf("room %s: journal publish failed: %v", r.Code, err)
	}
}

// CloseJournal stops the journal worker once the pending queue drains.
// Called when the room is dropped from the registry; safe to call twice.
func (r *Room) CloseJournal() {
	r.journalOnce.Do(func() { close(r.journalDone) })
}
