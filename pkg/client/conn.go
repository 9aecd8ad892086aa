package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Conn sends intents over one socket and waits for their replies.
// Calls are serialized; pushes arriving in between are skipped.
type Conn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string, httpClient *http.Client) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: httpClient})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	return &Conn{conn: conn}, nil
}

// Result is a successful reply: the record after the intent and, for an
// accepted rematch, the id of the new session.
type Result struct {
	Session      json.RawMessage
	NewSessionID string
}

// Do sends action with payload and returns the matching reply.
func (that *Conn) Do(ctx context.Context, action string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if err = wsjson.Write(ctx, that.conn, envelope{Action: action, Payload: body}); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", action, err)
	}

	for {
		var message envelope
		if err = wsjson.Read(ctx, that.conn, &message); err != nil {
			return nil, fmt.Errorf("failed to read reply: %w", err)
		}

		if message.Action != action {
			continue
		}

		decoded, err := decodeReply(message)
		if err != nil {
			return nil, err
		}

		return &Result{Session: decoded.Session, NewSessionID: decoded.NewSessionID}, nil
	}
}

func (that *Conn) Close() error {
	return that.conn.Close(websocket.StatusNormalClosure, "")
}
