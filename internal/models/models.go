// internal/models/models.go
package models

import "time"

// StrokeAction identifies what a stroke event does to the drawing surface.
type StrokeAction string

const (
	StrokeBegin StrokeAction = "begin" // start a new path at (x, y)
	StrokeDraw  StrokeAction = "draw"  // extend the current path to (x, y)
	StrokeReset StrokeAction = "reset" // clear the surface; truncates the stroke buffer
)

// Stroke is a single drawing input event relayed to all room members.
// Strokes belong to the room's surface, not to a specific round.
type Stroke struct {
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Action StrokeAction `json:"action"`
}

// ChatMessage is an ephemeral chat (or guess) message. It is not persisted
// beyond the in-memory fan-out; scrollback is the client's problem.
type ChatMessage struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"isSystem,omitempty"`
}
