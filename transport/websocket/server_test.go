package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
)

type mockGames struct {
	mock.Mock
}

func (that *mockGames) Create(ctx context.Context, kind entity.Kind, player entity.Player, grid entity.GridConfig) (usecase.Session, error) {
	args := that.Called(ctx, kind, player, grid)
	return sessionArg(args, 0), args.Error(1)
}

func (that *mockGames) Join(ctx context.Context, kind entity.Kind, id string, player entity.Player) (usecase.Session, error) {
	args := that.Called(ctx, kind, id, player)
	return sessionArg(args, 0), args.Error(1)
}

func (that *mockGames) Get(ctx context.Context, kind entity.Kind, id string) (usecase.Session, error) {
	args := that.Called(ctx, kind, id)
	return sessionArg(args, 0), args.Error(1)
}

func (that *mockGames) Play(ctx context.Context, kind entity.Kind, id, playerID string, index int) (usecase.Session, error) {
	args := that.Called(ctx, kind, id, playerID, index)
	return sessionArg(args, 0), args.Error(1)
}

func (that *mockGames) Reset(ctx context.Context, kind entity.Kind, id, playerID string) (usecase.Session, error) {
	args := that.Called(ctx, kind, id, playerID)
	return sessionArg(args, 0), args.Error(1)
}

func (that *mockGames) Rematch(ctx context.Context, kind entity.Kind, step usecase.RematchStep, id, playerID string) (usecase.Session, string, error) {
	args := that.Called(ctx, kind, step, id, playerID)
	return sessionArg(args, 0), args.String(1), args.Error(2)
}

func sessionArg(args mock.Arguments, index int) usecase.Session {
	if session, ok := args.Get(index).(usecase.Session); ok {
		return session
	}

	return nil
}

// stubSubscriptions hands the registered callback back to the test.
type stubSubscriptions struct {
	onChange chan func(feed.Update)
	closed   chan struct{}
}

func newStubSubscriptions() *stubSubscriptions {
	return &stubSubscriptions{
		onChange: make(chan func(feed.Update), 1),
		closed:   make(chan struct{}, 1),
	}
}

func (that *stubSubscriptions) Subscribe(_ context.Context, _ entity.Kind, _ string, onChange func(feed.Update)) (func(), error) {
	that.onChange <- onChange

	return func() { that.closed <- struct{}{} }, nil
}

type response struct {
	Action  string `json:"action"`
	Payload struct {
		Game         entity.Kind     `json:"game"`
		SessionID    string          `json:"session_id"`
		Session      json.RawMessage `json:"session"`
		NewSessionID string          `json:"new_session_id"`
		Error        string          `json:"error"`
		Code         apperror.Kind   `json:"code"`
	} `json:"payload"`
}

func setup(t *testing.T, games uGames, subscriptions uSubscriptions) (context.Context, *websocket.Conn) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := New(logger, games, subscriptions, nil)

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	return ctx, conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, wsjson.Write(ctx, conn, Message{Action: action, Payload: body}))
}

func receive(ctx context.Context, t *testing.T, conn *websocket.Conn) response {
	t.Helper()

	var message response
	require.NoError(t, wsjson.Read(ctx, conn, &message))

	return message
}

func TestServer(t *testing.T) {
	alice := entity.Player{ID: "alice", Nickname: "Alice"}
	bob := entity.Player{ID: "bob", Nickname: "Bob"}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Create replies with the session", func(t *testing.T) {
		// Given: a server that creates tic-tac-toe sessions
		games := new(mockGames)
		session := entity.NewTicTacToeSession("s-1", alice, now)
		games.On("Create", mock.Anything, entity.KindTicTacToe, alice, entity.GridConfig{}).Return(session, nil)

		ctx, conn := setup(t, games, newStubSubscriptions())

		// When: the client asks to create a session
		send(ctx, t, conn, ActionCreate, Payload{Game: entity.KindTicTacToe, Player: &alice})

		// Then: the reply carries the new session
		reply := receive(ctx, t, conn)
		assert.Equal(t, ActionCreate, reply.Action)
		assert.Equal(t, "s-1", reply.Payload.SessionID)
		assert.Empty(t, reply.Payload.Error)
		assert.Contains(t, string(reply.Payload.Session), `"player_x"`)
		games.AssertExpectations(t)
	})

	t.Run("Flip uses the card index", func(t *testing.T) {
		// Given: a memory game in progress
		games := new(mockGames)
		session := entity.NewMemorySession("m-1", alice, entity.DefaultGrid, now)
		games.On("Play", mock.Anything, entity.KindMemory, "m-1", "alice", 3).Return(session, nil)

		ctx, conn := setup(t, games, newStubSubscriptions())
		card := 3

		// When: the client flips card 3
		send(ctx, t, conn, ActionFlip, Payload{Game: entity.KindMemory, SessionID: "m-1", PlayerID: "alice", Card: &card})

		// Then: the flip is forwarded with that index
		reply := receive(ctx, t, conn)
		assert.Equal(t, ActionFlip, reply.Action)
		assert.Equal(t, entity.KindMemory, reply.Payload.Game)
		games.AssertExpectations(t)
	})

	t.Run("Domain errors carry their category", func(t *testing.T) {
		// Given: a move out of turn
		games := new(mockGames)
		games.On("Play", mock.Anything, entity.KindTicTacToe, "s-1", "bob", 4).Return(nil, apperror.ErrNotYourTurn)

		ctx, conn := setup(t, games, newStubSubscriptions())
		cell := 4

		// When: the client sends the move
		send(ctx, t, conn, ActionMove, Payload{Game: entity.KindTicTacToe, SessionID: "s-1", PlayerID: "bob", Cell: &cell})

		// Then: the error reply names the category
		reply := receive(ctx, t, conn)
		assert.Equal(t, ActionMove, reply.Action)
		assert.Equal(t, apperror.KindTurnViolation, reply.Payload.Code)
		assert.NotEmpty(t, reply.Payload.Error)
	})

	t.Run("Malformed requests are rejected without a call", func(t *testing.T) {
		// Given: a server with no expectations
		games := new(mockGames)
		ctx, conn := setup(t, games, newStubSubscriptions())

		// When: sending a move with no cell, then an unknown action
		send(ctx, t, conn, ActionMove, Payload{Game: entity.KindTicTacToe, SessionID: "s-1", PlayerID: "bob"})
		first := receive(ctx, t, conn)

		send(ctx, t, conn, "game:cheat", Payload{Game: entity.KindTicTacToe})
		second := receive(ctx, t, conn)

		// Then: both fail validation and nothing reaches the games
		assert.Equal(t, apperror.KindValidation, first.Payload.Code)
		assert.Equal(t, apperror.KindValidation, second.Payload.Code)
		assert.Equal(t, "game:cheat", second.Action)
		games.AssertNotCalled(t, "Play", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown game kinds are rejected", func(t *testing.T) {
		// Given: a server
		games := new(mockGames)
		ctx, conn := setup(t, games, newStubSubscriptions())

		// When: asking for a game that does not exist
		send(ctx, t, conn, ActionGet, Payload{Game: "chess", SessionID: "s-1"})

		// Then: a validation error comes back
		reply := receive(ctx, t, conn)
		assert.Equal(t, apperror.KindValidation, reply.Payload.Code)
	})

	t.Run("Rematch accept returns the sibling id", func(t *testing.T) {
		// Given: a finished game with a pending request
		games := new(mockGames)
		session := entity.NewTicTacToeSession("s-1", alice, now)
		session.Seat(bob)
		games.On("Rematch", mock.Anything, entity.KindTicTacToe, usecase.RematchAccept, "s-1", "bob").
			Return(session, "s-2", nil)

		ctx, conn := setup(t, games, newStubSubscriptions())

		// When: bob accepts
		send(ctx, t, conn, ActionAccept, Payload{Game: entity.KindTicTacToe, SessionID: "s-1", PlayerID: "bob"})

		// Then: the reply points at the new session
		reply := receive(ctx, t, conn)
		assert.Equal(t, "s-2", reply.Payload.NewSessionID)
		games.AssertExpectations(t)
	})

	t.Run("Subscribers get the snapshot then pushes", func(t *testing.T) {
		// Given: a subscribable session
		games := new(mockGames)
		session := entity.NewTicTacToeSession("s-1", alice, now)
		games.On("Get", mock.Anything, entity.KindTicTacToe, "s-1").Return(session, nil)

		subscriptions := newStubSubscriptions()
		ctx, conn := setup(t, games, subscriptions)

		// When: subscribing and then committing a new revision
		send(ctx, t, conn, ActionSubscribe, Payload{Game: entity.KindTicTacToe, SessionID: "s-1"})
		snapshot := receive(ctx, t, conn)

		onChange := <-subscriptions.onChange
		onChange(feed.Update{Kind: entity.KindTicTacToe, SessionID: "s-1", Revision: 1, Record: json.RawMessage(`{"revision":1}`)})
		pushed := receive(ctx, t, conn)

		// Then: the snapshot arrives first and the push carries the raw record
		assert.Equal(t, ActionSubscribe, snapshot.Action)
		assert.Equal(t, ActionUpdated, pushed.Action)
		assert.JSONEq(t, `{"revision":1}`, string(pushed.Payload.Session))

		// When: unsubscribing
		send(ctx, t, conn, ActionUnsubscribe, Payload{Game: entity.KindTicTacToe, SessionID: "s-1"})
		receive(ctx, t, conn)

		// Then: the feed subscription is released
		select {
		case <-subscriptions.closed:
		case <-ctx.Done():
			t.Fatal("subscription was not released")
		}
	})
}
