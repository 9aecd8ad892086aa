package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	writeTimeout = 10 * time.Second
)

// connection is one client socket with its own set of session subscriptions.
type connection struct {
	id     string
	logger *slog.Logger
	conn   *websocket.Conn
	send   chan Message

	mu            sync.Mutex
	subscriptions map[string]func()
	closed        bool
}

func newConnection(logger *slog.Logger, conn *websocket.Conn) *connection {
	return &connection{
		id:            uuid.NewString(),
		logger:        logger,
		conn:          conn,
		send:          make(chan Message, sendBuffer),
		subscriptions: make(map[string]func()),
	}
}

func subscriptionKey(kind entity.Kind, id string) string {
	return string(kind) + ":" + id
}

func (that *connection) read(ctx context.Context) (*Message, error) {
	for {
		_, data, err := that.conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			that.logger.Warn("failed to unmarshal message", "connection_id", that.id, "error", err)
			continue
		}

		return &message, nil
	}
}

// enqueue hands a message to the writer. Slow clients lose pushes rather than
// stalling the feed; they catch up from the next revision or a fetch.
func (that *connection) enqueue(message Message) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	select {
	case that.send <- message:
	default:
		that.logger.Warn("send buffer full, dropping message", "connection_id", that.id, "action", message.Action)
	}
}

func (that *connection) writeLoop(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-that.send:
			if !ok {
				return
			}

			if err := that.write(ctx, message); err != nil {
				that.logger.Debug("failed to write message", "connection_id", that.id, "error", err)
				return
			}
		case <-ping.C:
			if err := that.conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (that *connection) write(ctx context.Context, message Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return wsjson.Write(ctx, that.conn, message)
}

// subscribe registers unsubscribe under key, replacing any previous subscription.
func (that *connection) subscribe(key string, unsubscribe func()) {
	that.mu.Lock()
	previous, ok := that.subscriptions[key]
	that.subscriptions[key] = unsubscribe
	that.mu.Unlock()

	if ok {
		previous()
	}
}

func (that *connection) unsubscribe(key string) bool {
	that.mu.Lock()
	unsubscribe, ok := that.subscriptions[key]
	delete(that.subscriptions, key)
	that.mu.Unlock()

	if ok {
		unsubscribe()
	}

	return ok
}

// close tears down every subscription and the socket.
func (that *connection) close() {
	that.mu.Lock()
	subscriptions := that.subscriptions
	that.subscriptions = make(map[string]func())
	that.closed = true
	close(that.send)
	that.mu.Unlock()

	for _, unsubscribe := range subscriptions {
		unsubscribe()
	}

	_ = that.conn.Close(websocket.StatusNormalClosure, "bye")
}
