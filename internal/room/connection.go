// internal/room/connection.go
package room

import (
	"log"

	"github.com/google/uuid"
)

// Conn represents one participant's live websocket attachment to a room.
// OutChan is drained by the connection's write pump; Cancel tears the pump
// down. A member entry with a nil *Conn is an HTTP-reserved seat that has not
// attached a socket yet.
type Conn struct {
	ID       uuid.UUID
	Username string
	RoomCode string
	Cancel   func()

	OutChan chan interface{}
}

// Write enqueues msg for the write pump without blocking. If the client has
// stopped draining, the message is dropped rather than stalling the room.
func (c *Conn) Write(msg interface{}) {
	if c == nil || c.OutChan == nil {
		return
	}
	select {
	case c.OutChan <- msg:
	default:
		log.Printf("room %s: dropping message to %s, channel full", c.RoomCode, c.Username)
	}
}

// WriteError sends a structured error event to this connection only.
func (c *Conn) WriteError(message string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
