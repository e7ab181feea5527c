// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skrawlhq/skrawl/internal/middleware"
	"github.com/skrawlhq/skrawl/internal/models"
	"github.com/skrawlhq/skrawl/internal/room"
)

// wsMessage is the envelope for every client-to-server frame.
type wsMessage struct {
	Type      string  `json:"type"`
	RoomCode  string  `json:"roomCode,omitempty"`
	Username  string  `json:"username,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// RoomWSHandler upgrades the connection and runs the room socket protocol.
// The first frame must be a join-room carrying the room code and display
// name; after that the read loop dispatches game traffic until the socket
// drops, which counts as leaving the room.
func RoomWSHandler(logger *logrus.Logger, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:       []string{"skrawl"},
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		if c.Subprotocol() != "skrawl" {
			c.Close(BadSubprotocolError, "client must speak the skrawl subprotocol")
			return
		}

		joinCtx, joinCancel := context.WithTimeout(r.Context(), 10*time.Second)
		var join wsMessage
		err = wsjson.Read(joinCtx, c, &join)
		joinCancel()
		if err != nil || join.Type != "join-room" {
			c.Close(MalformedJoinError, "expected a join-room message")
			return
		}

		code := strings.ToUpper(strings.TrimSpace(join.RoomCode))
		username := strings.TrimSpace(join.Username)
		if username == "" {
			// Reconnects may rely on the session cookie instead.
			username = sessionUsername(r)
		}
		if code == "" {
			c.Close(InvalidRoomCodeError, "roomCode is required")
			return
		}
		if username == "" {
			c.Close(InvalidSessionError, "username is required")
			return
		}

		rm := reg.GetOrCreate(code)

		ctx, cancel := context.WithCancel(context.Background())
		conn := &room.Conn{
			ID:       uuid.New(),
			Username: username,
			RoomCode: code,
			Cancel:   cancel,
			OutChan:  make(chan interface{}, 64),
		}
		if _, err := rm.Join(username, conn); err != nil {
			cancel()
			if errors.Is(err, room.ErrDuplicateName) {
				c.Close(DuplicateNameError, err.Error())
			} else {
				c.Close(websocket.StatusPolicyViolation, err.Error())
			}
			return
		}
		middleware.LogRoomSocketOpen(logger, r.RemoteAddr, code, username)

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, rm, conn, logger)

		// A dropped or closed socket is an implicit leave. Leave is
		// idempotent, so an explicit leave-room before the drop is fine.
		rm.Leave(username)
		cancel()
		middleware.LogRoomSocketClose(logger, r.RemoteAddr, code, username, readErr)
		c.Close(websocket.StatusNormalClosure, "closing")
	}
}

// readPump consumes frames from the client until the socket errors or the
// client leaves. Returns the terminal read error, if any.
func readPump(ctx context.Context, c *websocket.Conn, rm *room.Room, conn *room.Conn, logger *logrus.Logger) error {
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch msg.Type {
		case "leave-room":
			rm.Leave(conn.Username)
			return nil

		case "start-game":
			if err := rm.StartGame(conn.Username); err != nil {
				conn.WriteError(err.Error())
			}

		case "end-game":
			if err := rm.AbortGame(conn.Username); err != nil {
				conn.WriteError(err.Error())
			}

		case "beginPath":
			appendStroke(rm, conn, models.Stroke{X: msg.X, Y: msg.Y, Action: models.StrokeBegin}, logger)

		case "draw":
			appendStroke(rm, conn, models.Stroke{X: msg.X, Y: msg.Y, Action: models.StrokeDraw}, logger)

		case "resetCanvas":
			appendStroke(rm, conn, models.Stroke{Action: models.StrokeReset}, logger)

		case "chatMessage":
			rm.SubmitChat(conn.Username, msg.Message, parseClientTimestamp(msg.Timestamp))

		case "ping":
			conn.Write(map[string]interface{}{"type": "pong"})

		default:
			conn.WriteError("unknown message type: " + msg.Type)
		}
	}
}

// appendStroke relays one stroke. Strokes from anyone but the drawer are
// dropped without a broadcast; the sender's canvas self-corrects on the next
// canvas-state replay.
func appendStroke(rm *room.Room, conn *room.Conn, st models.Stroke, logger *logrus.Logger) {
	if err := rm.AppendStroke(conn.Username, st); err != nil {
		logger.WithFields(logrus.Fields{
			"room_code": conn.RoomCode,
			"username":  conn.Username,
		}).Debugf("stroke rejected: %v", err)
	}
}

// writePump drains the connection's out channel onto the socket, pinging
// periodically to keep intermediaries from idling the connection out.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-conn.OutChan:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outbound message: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Debugf("websocket write to %s failed: %v", conn.Username, err)
				return
			}
		case <-pingTicker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// parseClientTimestamp accepts the client's RFC 3339 timestamp, falling back
// to server time when absent or unparseable.
func parseClientTimestamp(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}
