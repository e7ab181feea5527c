// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/skrawlhq/skrawl/internal/room"
)

// CreateRoomHandler mints a fresh room and returns its shareable code.
//
// POST /rooms/create -> {"room":{"roomCode":"ABC123"}}
func CreateRoomHandler(logger *logrus.Logger, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := room.NewRoomCode()
		reg.GetOrCreate(code)
		logger.WithField("room_code", code).Info("room created")

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"room": map[string]string{"roomCode": code},
		})
	}
}

// JoinRoomHandler reserves a seat in a room under a display name and issues
// a session cookie for it. The socket attaches separately. Joining an unknown
// code creates the room, so a shared code works no matter who arrives first.
//
// POST /rooms/join {"roomCode":..., "username":...} -> {"users":[...]}
func JoinRoomHandler(logger *logrus.Logger, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			RoomCode string `json:"roomCode"`
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		req.RoomCode = strings.ToUpper(strings.TrimSpace(req.RoomCode))
		req.Username = strings.TrimSpace(req.Username)
		if req.RoomCode == "" || req.Username == "" {
			http.Error(w, "roomCode and username are required", http.StatusBadRequest)
			return
		}

		rm := reg.GetOrCreate(req.RoomCode)
		roster, err := rm.Join(req.Username, nil)
		if err != nil {
			if errors.Is(err, room.ErrDuplicateName) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		issueSessionCookie(w, logger, req.Username)
		logger.WithFields(logrus.Fields{
			"room_code": req.RoomCode,
			"username":  req.Username,
		}).Info("user joined room")

		writeJSON(w, http.StatusOK, map[string]interface{}{"users": roster})
	}
}

// RoomHandler serves the /rooms/{code} subtree:
//
//	GET  /rooms/{code}        -> room snapshot (word masked unless caller is the drawer)
//	GET  /rooms/{code}/users  -> {"users":[...]}
//	POST /rooms/{code}/leave  -> 204
func RoomHandler(logger *logrus.Logger, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, rest, ok := parseRoomPath(r.URL.Path)
		if !ok {
			http.Error(w, "invalid room path", http.StatusBadRequest)
			return
		}
		rm, found := reg.Get(code)
		if !found {
			http.Error(w, room.ErrRoomNotFound.Error(), http.StatusNotFound)
			return
		}

		switch {
		case rest == "" && r.Method == http.MethodGet:
			serveRoomState(w, r, rm)
		case rest == "users" && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]interface{}{"users": rm.Roster()})
		case rest == "leave" && r.Method == http.MethodPost:
			var req struct {
				Username string `json:"username"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Username) == "" {
				http.Error(w, "username is required", http.StatusBadRequest)
				return
			}
			rm.Leave(strings.TrimSpace(req.Username))
			logger.WithFields(logrus.Fields{
				"room_code": code,
				"username":  req.Username,
			}).Info("user left room")
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}
}

// serveRoomState renders the room snapshot for the caller. The caller's
// identity comes from the session cookie; without one the word stays masked.
func serveRoomState(w http.ResponseWriter, r *http.Request, rm *room.Room) {
	viewer := sessionUsername(r)
	state := map[string]interface{}{
		"roomCode":    rm.Code,
		"host":        rm.Host(),
		"users":       rm.Roster(),
		"gameStarted": false,
	}
	if sess := rm.Session(); sess != nil {
		for k, v := range sess.SnapshotFor(viewer) {
			state[k] = v
		}
	}
	writeJSON(w, http.StatusOK, state)
}

// parseRoomPath splits "/rooms/{code}[/rest]" into its code and trailing
// segment. Codes are case-insensitive.
func parseRoomPath(path string) (code, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/rooms/")
	if trimmed == path || trimmed == "" {
		return "", "", false
	}
	parts := strings.SplitN(strings.Trim(trimmed, "/"), "/", 2)
	code = strings.ToUpper(parts[0])
	if code == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		rest = parts[1]
	}
	return code, rest, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
