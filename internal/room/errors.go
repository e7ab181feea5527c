// internal/room/errors.go
package room

import "errors"

// Sentinel errors surfaced to HTTP handlers and the websocket layer. Handlers
// map these to status codes / close codes; callers match with errors.Is.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrEmptyName        = errors.New("display name must not be empty")
	ErrDuplicateName    = errors.New("display name already taken in this room")
	ErrNotMember        = errors.New("sender is not a member of this room")
	ErrNotHost          = errors.New("only the host may do that")
	ErrNotDrawer        = errors.New("only the drawer may draw")
	ErrNoActiveSession  = errors.New("no game in progress")
	ErrGameInProgress   = errors.New("a game is already in progress")
	ErrNotEnoughPlayers = errors.New("need at least two players to start")
)
