package types

import "github.com/DoyleJ11/blackjack-backend/internal/engine"

// Client -> Server message types.
const (
	MsgCreateSession = "create-session"
	MsgJoinSession   = "join-session"
	MsgStartSession  = "start-session"
	MsgHit           = "hit"
	MsgStand         = "stand"
)

// MsgError reports a message the server could not understand.
const MsgError = "error"

type ClientMessage struct {
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // an engine event type or "error"
	Version int           `json:"version,omitempty"`
	Data    *engine.Event `json:"data,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// FromEvent wraps an engine event for the wire.
func FromEvent(version int, evt engine.Event) ServerMessage {
	return ServerMessage{Type: string(evt.Type), Version: version, Data: &evt}
}
