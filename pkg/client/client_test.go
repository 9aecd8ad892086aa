package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// fakeSocket answers subscribes with a snapshot, then pushes one update.
// While down it refuses every upgrade.
type fakeSocket struct {
	down atomic.Bool
}

func (that *fakeSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if that.down.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx := r.Context()

	for {
		var message envelope
		if err = wsjson.Read(ctx, conn, &message); err != nil {
			return
		}

		var req request
		_ = json.Unmarshal(message.Payload, &req)

		switch message.Action {
		case actionSubscribe:
			_ = wsjson.Write(ctx, conn, replyEnvelope(actionSubscribe, reply{SessionID: req.SessionID, Session: record(1)}))
			_ = wsjson.Write(ctx, conn, replyEnvelope(actionUpdated, reply{SessionID: req.SessionID, Session: record(2)}))
		case "game:move":
			_ = wsjson.Write(ctx, conn, replyEnvelope(actionUpdated, reply{SessionID: req.SessionID, Session: record(3)}))
			_ = wsjson.Write(ctx, conn, replyEnvelope("game:move", reply{SessionID: req.SessionID, Session: record(3)}))
		case "game:flip":
			_ = wsjson.Write(ctx, conn, replyEnvelope("game:flip", reply{Error: "it's not your turn", Code: apperror.KindTurnViolation}))
		case "rematch:accept":
			_ = wsjson.Write(ctx, conn, replyEnvelope("rematch:accept", reply{Session: record(4), NewSessionID: "s-2"}))
		}
	}
}

func record(revision int) json.RawMessage {
	return json.RawMessage(`{"id":"s-1","revision":` + strconv.Itoa(revision) + `}`)
}

func replyEnvelope(action string, body reply) envelope {
	payload, _ := json.Marshal(body)
	return envelope{Action: action, Payload: payload}
}

func socketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type recorder struct {
	mu      sync.Mutex
	records []string
}

func (that *recorder) add(record json.RawMessage) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.records = append(that.records, string(record))
}

func (that *recorder) count() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.records)
}

func newTestWatcher(socket, rest *httptest.Server) *Watcher {
	return NewWatcher(Options{
		SocketURL:    socketURL(socket),
		HTTPURL:      rest.URL,
		PollInterval: 10 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(30 * time.Millisecond)
		},
	})
}

func TestWatcher(t *testing.T) {
	t.Run("Live feed delivers the snapshot and pushes", func(t *testing.T) {
		// Given: a healthy socket
		socket := httptest.NewServer(&fakeSocket{})
		defer socket.Close()
		rest := httptest.NewServer(http.NotFoundHandler())
		defer rest.Close()

		records := &recorder{}

		// When: watching a session
		view := newTestWatcher(socket, rest).Watch(context.Background(), entity.KindTicTacToe, "s-1", records.add)
		defer view.Close()

		// Then: the view goes live with both records
		assert.Eventually(t, func() bool { return records.count() == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, StatusLive, view.Status())
	})

	t.Run("Falls back to polling and recovers", func(t *testing.T) {
		// Given: a socket that is down and a REST endpoint that serves the record
		fake := &fakeSocket{}
		fake.down.Store(true)
		socket := httptest.NewServer(fake)
		defer socket.Close()

		var polled atomic.Int32
		rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/tictactoe/s-1", r.URL.Path)
			polled.Add(1)
			_, _ = w.Write(record(1))
		}))
		defer rest.Close()

		var statuses sync.Map
		watcher := newTestWatcher(socket, rest)
		watcher.options.OnStatus = func(status Status) { statuses.Store(status, true) }

		// When: watching while the feed is unavailable
		view := watcher.Watch(context.Background(), entity.KindTicTacToe, "s-1", func(json.RawMessage) {})

		// Then: the view polls
		assert.Eventually(t, func() bool { return view.Status() == StatusPolling && polled.Load() > 0 }, time.Second, 5*time.Millisecond)

		// When: the socket comes back
		fake.down.Store(false)

		// Then: the view returns to live
		assert.Eventually(t, func() bool { return view.Status() == StatusLive }, time.Second, 5*time.Millisecond)

		// When: the view is closed
		view.Close()

		// Then: it reports closed and every status was announced
		assert.Equal(t, StatusClosed, view.Status())
		for _, status := range []Status{StatusPolling, StatusLive, StatusClosed} {
			_, ok := statuses.Load(status)
			assert.True(t, ok, status)
		}
	})
}

func TestConn(t *testing.T) {
	socket := httptest.NewServer(&fakeSocket{})
	defer socket.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, socketURL(socket), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	t.Run("Pushes before the reply are skipped", func(t *testing.T) {
		// When: sending a move the server answers after a push
		result, err := conn.Do(ctx, "game:move", map[string]any{"game": "tictactoe", "session_id": "s-1", "cell": 4})

		// Then: the reply is returned
		require.NoError(t, err)
		assert.JSONEq(t, string(record(3)), string(result.Session))
	})

	t.Run("Error replies keep their category", func(t *testing.T) {
		// When: sending a flip the server refuses
		_, err := conn.Do(ctx, "game:flip", map[string]any{"game": "memory", "session_id": "m-1", "card": 0})

		// Then: the error matches the turn-violation category
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrTurnViolation)

		var replyErr *ReplyError
		require.ErrorAs(t, err, &replyErr)
		assert.Equal(t, apperror.KindTurnViolation, replyErr.Code)
	})

	t.Run("Accepted rematch carries the new session", func(t *testing.T) {
		// When: accepting a rematch
		result, err := conn.Do(ctx, "rematch:accept", map[string]any{"game": "tictactoe", "session_id": "s-1", "player_id": "bob"})

		// Then: the sibling id is returned
		require.NoError(t, err)
		assert.Equal(t, "s-2", result.NewSessionID)
	})
}
