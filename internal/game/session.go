// internal/game/session.go
package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/skrawlhq/skrawl/internal/models"
	"github.com/skrawlhq/skrawl/internal/words"
)

// State tracks where a session is in its lifecycle. Starting and RoundResolved
// only exist inside a locked transition; observers see Idle, RoundActive, or Ended.
type State string

const (
	StateIdle          State = "idle"
	StateStarting      State = "starting"
	StateRoundActive   State = "round_active"
	StateRoundResolved State = "round_resolved"
	StateEnded         State = "ended"
)

const (
	// CorrectGuessScore is awarded per correct guess.
	CorrectGuessScore = 100

	// DefaultRoundDuration is the guessing window per round.
	DefaultRoundDuration = 80 * time.Second

	// DefaultMaxRounds ends the game after this many rounds resolve.
	DefaultMaxRounds = 5

	// DefaultTickInterval is the cadence of timer-update broadcasts.
	DefaultTickInterval = 1 * time.Second
)

// BroadcastFunc sends an event to every connection in the room.
type BroadcastFunc func(ev Event)

// BroadcastToFunc sends an event to one named participant.
type BroadcastToFunc func(username string, ev Event)

// RosterFunc returns the room's current membership in join order. The session
// calls it while holding its own lock, so the room must never call back into
// the session while holding the room lock.
type RosterFunc func() []string

// LogFunc records a session event for the room's journal.
type LogFunc func(actor, eventType string, payload map[string]interface{})

// Session drives one game for one room: drawer rotation, word assignment,
// the guess window timer, and scorekeeping. All mutation happens under Mu.
type Session struct {
	RoomCode string

	Mu    sync.Mutex
	state State

	round   int
	drawer  string
	word    string
	masked  string
	started time.Time

	deadline time.Time
	// roundID is bumped on every round transition; a ticker that wakes up and
	// finds a different roundID belongs to a dead round and must exit.
	roundID  int
	stopTick chan struct{}

	usedDrawers map[string]bool
	correct     map[string]bool
	scores      map[string]int

	bank *words.Bank
	rng  *rand.Rand

	RoundDuration time.Duration
	MaxRounds     int
	TickInterval  time.Duration

	RosterFn          RosterFunc
	BroadcastFn       BroadcastFunc
	BroadcastToFn     BroadcastToFunc
	BroadcastExceptFn BroadcastToFunc

	// OnRoundStart fires at each round boundary so the room can clear its
	// canvas. OnEnded fires once when the session reaches Ended.
	OnRoundStart func()
	OnEnded      func()

	LogFn LogFunc
}

// NewSession builds an idle session for the given room. The caller wires the
// broadcast and roster callbacks before Begin.
func NewSession(roomCode string, bank *words.Bank) *Session {
	return &Session{
		RoomCode:      roomCode,
		state:         StateIdle,
		bank:          bank,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		usedDrawers:   make(map[string]bool),
		correct:       make(map[string]bool),
		scores:        make(map[string]int),
		RoundDuration: DefaultRoundDuration,
		MaxRounds:     DefaultMaxRounds,
		TickInterval:  DefaultTickInterval,
	}
}

// Begin starts round one. It is a no-op unless the session is idle.
func (s *Session) Begin() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.state != StateIdle {
		return
	}
	s.startRoundLocked(1)
}

// startRoundLocked picks a drawer and word, announces the round, and arms the
// timer. Caller holds s.Mu.
func (s *Session) startRoundLocked(round int) {
	s.state = StateStarting

	roster := s.RosterFn()
	if len(roster) < 2 {
		// Not enough people left to draw and guess; settle up.
		s.endLocked()
		return
	}

	candidates := make([]string, 0, len(roster))
	for _, name := range roster {
		if !s.usedDrawers[name] {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		// Everyone present has drawn; start a fresh rotation.
		s.usedDrawers = make(map[string]bool)
		candidates = roster
	}

	s.round = round
	s.drawer = candidates[s.rng.Intn(len(candidates))]
	s.usedDrawers[s.drawer] = true
	s.word = s.bank.Pick()
	s.masked = MaskWord(s.word)
	s.correct = make(map[string]bool)
	s.started = time.Now()
	s.deadline = s.started.Add(s.RoundDuration)
	s.roundID++

	if s.OnRoundStart != nil {
		s.OnRoundStart()
	}

	if round > 1 {
		s.BroadcastFn(Event{
			Type:          EventNextRound,
			RoomCode:      s.RoomCode,
			CurrentRound:  round,
			CurrentDrawer: s.drawer,
			CurrentWord:   s.masked,
		})
	}
	s.BroadcastExceptFn(s.drawer, Event{
		Type:          EventDrawerAssigned,
		RoomCode:      s.RoomCode,
		CurrentRound:  round,
		CurrentDrawer: s.drawer,
		CurrentWord:   s.masked,
	})
	s.BroadcastToFn(s.drawer, Event{
		Type:          EventDrawerAssigned,
		RoomCode:      s.RoomCode,
		CurrentRound:  round,
		CurrentDrawer: s.drawer,
		CurrentWord:   s.word,
	})

	s.logLocked("", "round_start", map[string]interface{}{
		"round":  round,
		"drawer": s.drawer,
	})

	s.state = StateRoundActive
	s.stopTick = make(chan struct{})
	go s.runRoundTicker(s.roundID, s.stopTick)
}

// runRoundTicker pushes remaining-time updates until the deadline passes or
// the round is resolved out from under it.
func (s *Session) runRoundTicker(roundID int, stop chan struct{}) {
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Mu.Lock()
			if s.state != StateRoundActive || s.roundID != roundID {
				s.Mu.Unlock()
				return
			}
			remaining := secondsUntil(s.deadline)
			if remaining <= 0 {
				s.resolveRoundLocked("timeout")
				s.Mu.Unlock()
				return
			}
			s.BroadcastFn(Event{
				Type:          EventTimerUpdate,
				RoomCode:      s.RoomCode,
				RemainingTime: &remaining,
			})
			s.Mu.Unlock()
		}
	}
}

// Guess checks one chat line against the current word. It returns true only
// when the line is a fresh correct guess, in which case the guess has been
// scored and announced and the raw text must not be relayed. Everything else
// (no active round, drawer talking, repeat guessers, wrong words) is ordinary
// chat and returns false.
func (s *Session) Guess(username, text string) bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.state != StateRoundActive {
		return false
	}
	if username == s.drawer || s.correct[username] {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(text), s.word) {
		return false
	}

	s.correct[username] = true
	s.scores[username] += CorrectGuessScore

	s.BroadcastFn(Event{
		Type:     EventCorrectGuess,
		RoomCode: s.RoomCode,
		Username: username,
	})
	s.logLocked(username, "correct_guess", map[string]interface{}{"round": s.round})

	if s.allGuessedLocked() {
		s.resolveRoundLocked("all_guessed")
	}
	return true
}

// allGuessedLocked reports whether every present non-drawer has guessed the
// word. Caller holds s.Mu.
func (s *Session) allGuessedLocked() bool {
	eligible := 0
	for _, name := range s.RosterFn() {
		if name == s.drawer {
			continue
		}
		eligible++
		if !s.correct[name] {
			return false
		}
	}
	return eligible > 0
}

// HandleLeave reconciles the session with a departure the room has already
// applied to its roster. A departing drawer forfeits the round; a departing
// guesser may leave the round all-guessed.
func (s *Session) HandleLeave(username string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.state != StateRoundActive {
		return
	}
	if username == s.drawer {
		s.resolveRoundLocked("drawer_left")
		return
	}
	delete(s.correct, username)
	if s.allGuessedLocked() {
		s.resolveRoundLocked("all_guessed")
	}
}

// resolveRoundLocked ends the active round: stops the ticker, reveals the
// word, then either advances to the next round or ends the game. Caller
// holds s.Mu.
func (s *Session) resolveRoundLocked(reason string) {
	if s.state != StateRoundActive {
		return
	}
	s.state = StateRoundResolved
	s.roundID++
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}

	s.BroadcastFn(Event{Type: EventTimerEnded, RoomCode: s.RoomCode})
	s.BroadcastFn(Event{
		Type:     EventMessage,
		RoomCode: s.RoomCode,
		Message: &models.ChatMessage{
			Username:  "System",
			Message:   "The word was: " + s.word,
			Timestamp: time.Now(),
			IsSystem:  true,
		},
	})
	s.logLocked("", "round_resolved", map[string]interface{}{
		"round":  s.round,
		"word":   s.word,
		"reason": reason,
	})

	if s.round >= s.MaxRounds {
		s.endLocked()
		return
	}
	s.startRoundLocked(s.round + 1)
}

// endLocked finalizes the session and publishes scores. Caller holds s.Mu.
func (s *Session) endLocked() {
	s.state = StateEnded
	s.roundID++
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}

	s.BroadcastFn(Event{
		Type:     EventGameEnded,
		RoomCode: s.RoomCode,
		Scores:   s.scoresCopyLocked(),
	})
	s.logLocked("", "game_ended", map[string]interface{}{"scores": s.scoresCopyLocked()})

	if s.OnEnded != nil {
		s.OnEnded()
	}
}

// Abort ends the session immediately (host action), publishing final scores.
func (s *Session) Abort() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.state == StateEnded {
		return
	}
	s.endLocked()
}

// Cancel tears the session down without broadcasting anything. Used when the
// room has emptied and there is nobody left to tell.
func (s *Session) Cancel() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.state == StateEnded {
		return
	}
	s.state = StateEnded
	s.roundID++
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
	s.logLocked("", "session_cancelled", nil)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.state
}

// Drawer returns the current drawer, or "" outside an active round.
func (s *Session) Drawer() string {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.state != StateRoundActive {
		return ""
	}
	return s.drawer
}

// Round returns the current round number (1-based, 0 before Begin).
func (s *Session) Round() int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.round
}

// Scores returns a copy of the score table.
func (s *Session) Scores() map[string]int {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.scoresCopyLocked()
}

func (s *Session) scoresCopyLocked() map[string]int {
	out := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// SnapshotFor renders the session for one viewer. The word is masked unless
// the viewer is the drawer.
func (s *Session) SnapshotFor(viewer string) map[string]interface{} {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	word := s.masked
	if viewer != "" && viewer == s.drawer {
		word = s.word
	}
	remaining := 0
	if s.state == StateRoundActive {
		if r := secondsUntil(s.deadline); r > 0 {
			remaining = r
		}
	}
	return map[string]interface{}{
		"gameStarted":   s.state == StateRoundActive,
		"currentRound":  s.round,
		"currentDrawer": s.drawer,
		"currentWord":   word,
		"remainingTime": remaining,
		"scores":        s.scoresCopyLocked(),
	}
}

// logLocked forwards to LogFn when wired. Caller holds s.Mu.
func (s *Session) logLocked(actor, eventType string, payload map[string]interface{}) {
	if s.LogFn != nil {
		s.LogFn(actor, eventType, payload)
	}
}

// secondsUntil reports whole seconds remaining until t, rounded up so a
// partially elapsed second still counts as remaining time.
func secondsUntil(t time.Time) int {
	d := time.Until(t)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// MaskWord replaces every letter with an underscore, preserving spaces so
// guessers can see the word shape.
func MaskWord(word string) string {
	out := make([]rune, 0, len(word))
	for _, r := range word {
		if r == ' ' {
			out = append(out, ' ')
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
