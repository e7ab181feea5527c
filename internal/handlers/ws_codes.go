// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom close codes in the 3000+ application range.
const (
	BadSubprotocolError  websocket.StatusCode = 3000
	InvalidSessionError  websocket.StatusCode = 3001
	InvalidRoomCodeError websocket.StatusCode = 3003
	DuplicateNameError   websocket.StatusCode = 3004
	MalformedJoinError   websocket.StatusCode = 3005
)
