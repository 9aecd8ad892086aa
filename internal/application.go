package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rocketscienceinc/gameroom-backend/internal/config"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
	"github.com/rocketscienceinc/gameroom-backend/internal/memory"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository/storage"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
	"github.com/rocketscienceinc/gameroom-backend/transport/rest"
	"github.com/rocketscienceinc/gameroom-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.NewRedisClient(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	db, err := storage.NewPostgres(conf.Postgres.DSN, &repository.GameResult{})
	if err != nil {
		return fmt.Errorf("could not connect to results database: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	results := repository.NewResultsStore(db)
	options := usecase.Options{
		Logger:  logger,
		Players: repository.NewPlayerRegistry(redisClient),
		Metrics: usecase.NewMetrics(registry),
	}

	if results.Enabled() {
		options.Results = results
	} else {
		log.Info("Results archive disabled")
	}

	memoryUseCase := usecase.NewMemoryUseCase(
		repository.NewMemoryRepository(redisClient),
		memory.NewRandomDealer(),
		conf.Game.RevealWindow,
		options,
	)
	games := &usecase.Games{
		TicTacToe: usecase.NewTicTacToeUseCase(repository.NewTicTacToeRepository(redisClient), options),
		Memory:    memoryUseCase,
	}
	subscriptions := usecase.NewSubscriptionUseCase(logger, feed.New(logger, redisClient))

	sweeper, err := usecase.NewSweeper(logger, memoryUseCase, conf.Game.SweepInterval)
	if err != nil {
		return fmt.Errorf("could not create sweeper: %w", err)
	}

	if err = sweeper.Start(ctx); err != nil {
		return fmt.Errorf("could not start sweeper: %w", err)
	}

	defer func() {
		if err = sweeper.Stop(); err != nil {
			log.Error("could not stop sweeper", "error", err)
		}
	}()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		httpServer := rest.New(logger, games, results, registry)
		if httpErr := httpServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, games, subscriptions, conf.Origins)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
