package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const (
	ActionCreate      = "session:create"
	ActionJoin        = "session:join"
	ActionGet         = "session:get"
	ActionMove        = "game:move"
	ActionFlip        = "game:flip"
	ActionReset       = "game:reset"
	ActionRematch     = "rematch:request"
	ActionAccept      = "rematch:accept"
	ActionDecline     = "rematch:decline"
	ActionSubscribe   = "session:subscribe"
	ActionUnsubscribe = "session:unsubscribe"

	// ActionUpdated is pushed to subscribers for every committed revision.
	ActionUpdated = "session:updated"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is the body of every client request.
type Payload struct {
	Game      entity.Kind        `json:"game"`
	SessionID string             `json:"session_id,omitempty"`
	Player    *entity.Player     `json:"player,omitempty"`
	PlayerID  string             `json:"player_id,omitempty"`
	Cell      *int               `json:"cell,omitempty"`
	Card      *int               `json:"card,omitempty"`
	Grid      *entity.GridConfig `json:"grid,omitempty"`
}

// ResponsePayload is the body of every reply and push.
type ResponsePayload struct {
	Game         entity.Kind   `json:"game,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
	Session      any           `json:"session,omitempty"`
	NewSessionID string        `json:"new_session_id,omitempty"`
	Error        string        `json:"error,omitempty"`
	Code         apperror.Kind `json:"code,omitempty"`
}
