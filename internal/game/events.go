// internal/game/events.go
package game

import "github.com/skrawlhq/skrawl/internal/models"

// EventType is an enum-like type for events the session broadcasts to clients.
type EventType string

const (
	EventDrawerAssigned EventType = "drawer-assigned" // round start; carries the word only on the drawer's connection
	EventNextRound      EventType = "next-round"      // rounds 2..n re-enter immediately after the previous resolves
	EventCorrectGuess   EventType = "correct-guess"   // name only; the guessed word is never echoed mid-round
	EventTimerUpdate    EventType = "timer-update"    // 1 Hz remaining-seconds tick
	EventTimerEnded     EventType = "timer-ended"     // round resolved (deadline, all guessed, or drawer left)
	EventGameEnded      EventType = "game-ended"      // final round resolved; carries scores
	EventMessage        EventType = "message"         // chat payload, including system reveals
)

// Event holds data about a session event in a consistent wire format.
// Fields are omitted when empty so each event type only carries its payload.
type Event struct {
	Type          EventType           `json:"type"`
	RoomCode      string              `json:"roomCode,omitempty"`
	Username      string              `json:"username,omitempty"`
	CurrentRound  int                 `json:"currentRound,omitempty"`
	CurrentDrawer string              `json:"currentDrawer,omitempty"`
	CurrentWord   string              `json:"currentWord,omitempty"`
	RemainingTime *int                `json:"remainingTime,omitempty"` // pointer so zero seconds still serializes
	Scores        map[string]int      `json:"scores,omitempty"`
	Message       *models.ChatMessage `json:"message,omitempty"`
}
