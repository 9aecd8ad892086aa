package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type uGames interface {
	Create(ctx context.Context, kind entity.Kind, player entity.Player, grid entity.GridConfig) (usecase.Session, error)
	Join(ctx context.Context, kind entity.Kind, id string, player entity.Player) (usecase.Session, error)
	Get(ctx context.Context, kind entity.Kind, id string) (usecase.Session, error)
	Play(ctx context.Context, kind entity.Kind, id, playerID string, index int) (usecase.Session, error)
	Reset(ctx context.Context, kind entity.Kind, id, playerID string) (usecase.Session, error)
	Rematch(ctx context.Context, kind entity.Kind, step usecase.RematchStep, id, playerID string) (usecase.Session, string, error)
}

type uSubscriptions interface {
	Subscribe(ctx context.Context, kind entity.Kind, id string, onChange func(feed.Update)) (func(), error)
}

type handlerFunc func(ctx context.Context, conn *connection, message *Message) error

type Server struct {
	logger        *slog.Logger
	games         uGames
	subscriptions uSubscriptions
	origins       []string

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, games uGames, subscriptions uSubscriptions, origins []string) *Server {
	server := &Server{
		logger:        logger.With("component", "websocket"),
		games:         games,
		subscriptions: subscriptions,
		origins:       origins,

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[ActionCreate] = server.handleCreate
	server.handlers[ActionJoin] = server.handleJoin
	server.handlers[ActionGet] = server.handleGet
	server.handlers[ActionMove] = server.handlePlay
	server.handlers[ActionFlip] = server.handlePlay
	server.handlers[ActionReset] = server.handleReset
	server.handlers[ActionRematch] = server.rematchHandler(usecase.RematchRequest)
	server.handlers[ActionAccept] = server.rematchHandler(usecase.RematchAccept)
	server.handlers[ActionDecline] = server.rematchHandler(usecase.RematchDecline)
	server.handlers[ActionSubscribe] = server.handleSubscribe
	server.handlers[ActionUnsubscribe] = server.handleUnsubscribe

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server and stops it when ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - upgrades the connection and serves it until the client leaves.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{
		OriginPatterns: that.origins,
	})
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	client := newConnection(that.logger, conn)
	defer client.close()

	go client.writeLoop(ctx)

	log.Info("WebSocket connection established", "connection_id", client.id)

	if err = that.handleMessages(ctx, client); err != nil {
		log.Debug("connection closed", "connection_id", client.id, "error", err)
	}
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, client *connection) error {
	log := that.logger.With("method", "handleMessages", "connection_id", client.id)

	for {
		message, err := client.read(ctx)
		if err != nil {
			return err
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendError(client, message.Action, fmt.Errorf("%w: %s", apperror.ErrUnknownAction, message.Action))
			continue
		}

		if err = handler(ctx, client, message); err != nil {
			log.Debug("error processing message", "action", message.Action, "error", err)
			that.sendError(client, message.Action, err)
		}
	}
}
