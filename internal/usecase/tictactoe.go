package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/rematch"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
	"github.com/rocketscienceinc/gameroom-backend/internal/tictactoe"
)

type TicTacToeUseCase interface {
	Create(ctx context.Context, player entity.Player) (*entity.TicTacToeSession, error)
	Join(ctx context.Context, id string, player entity.Player) (*entity.TicTacToeSession, error)
	Get(ctx context.Context, id string) (*entity.TicTacToeSession, error)
	Move(ctx context.Context, id, playerID string, cell int) (*entity.TicTacToeSession, error)

	RequestRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error)
	AcceptRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error)
	DeclineRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error)
}

type ticTacToe struct {
	logger   *slog.Logger
	sessions sessionRepo[entity.TicTacToeSession]
	players  playerRepo
	results  resultsArchive
	metrics  *Metrics
	now      func() time.Time
	newID    func() string
}

func NewTicTacToeUseCase(sessions sessionRepo[entity.TicTacToeSession], options Options) TicTacToeUseCase {
	options = options.withDefaults()

	return &ticTacToe{
		logger:   options.Logger.With("component", "tictactoe"),
		sessions: sessions,
		players:  options.Players,
		results:  options.Results,
		metrics:  options.Metrics,
		now:      options.Now,
		newID:    options.NewID,
	}
}

func (that *ticTacToe) Create(ctx context.Context, player entity.Player) (*entity.TicTacToeSession, error) {
	session, err := that.create(ctx, player)
	that.metrics.observe(entity.KindTicTacToe, "create", err)

	return session, err
}

func (that *ticTacToe) create(ctx context.Context, player entity.Player) (*entity.TicTacToeSession, error) {
	player, err := knownPlayer(ctx, that.players, player)
	if err != nil {
		return nil, err
	}

	if err := player.Validate(); err != nil {
		return nil, err
	}

	session := entity.NewTicTacToeSession(that.newID(), player, that.now())
	if err := that.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	rememberPlayer(ctx, that.logger, that.players, player, that.now())

	return session, nil
}

func (that *ticTacToe) Join(ctx context.Context, id string, player entity.Player) (*entity.TicTacToeSession, error) {
	player, err := knownPlayer(ctx, that.players, player)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	session, _, err := update(ctx, that.sessions, id, that.now(), func(s *entity.TicTacToeSession) (bool, error) {
		return true, tictactoe.Join(s, player)
	})
	that.metrics.observe(entity.KindTicTacToe, "join", err)

	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	rememberPlayer(ctx, that.logger, that.players, player, that.now())

	return session, nil
}

func (that *ticTacToe) Get(ctx context.Context, id string) (*entity.TicTacToeSession, error) {
	session, err := that.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *ticTacToe) Move(ctx context.Context, id, playerID string, cell int) (*entity.TicTacToeSession, error) {
	log := that.logger.With("method", "Move", "session_id", id, "player_id", playerID)

	now := that.now()
	session, _, err := update(ctx, that.sessions, id, now, func(s *entity.TicTacToeSession) (bool, error) {
		return true, tictactoe.MakeTurn(s, playerID, cell, now)
	})
	that.metrics.observe(entity.KindTicTacToe, "move", err)

	if err != nil {
		log.Debug("move rejected", "cell", cell, "error", err)
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if session.IsFinished() {
		log.Info("game finished", "winner_id", session.WinnerID)
		that.archive(ctx, session)
	}

	return session, nil
}

func (that *ticTacToe) archive(ctx context.Context, session *entity.TicTacToeSession) {
	that.metrics.finish(entity.KindTicTacToe, session.WinnerID)

	if that.results == nil || session.PlayerO == nil {
		return
	}

	results := make([]repository.GameResult, 0, 2)
	for _, player := range []entity.Player{session.PlayerX, *session.PlayerO} {
		outcome := repository.OutcomeFor(session.WinnerID, player.ID)

		var score int
		if outcome == repository.OutcomeWin {
			score = 1
		}

		results = append(results, repository.GameResult{
			SessionID:  session.ID,
			PlayerID:   player.ID,
			OpponentID: session.Opponent(player.ID),
			Kind:       entity.KindTicTacToe,
			Outcome:    outcome,
			Score:      score,
			FinishedAt: session.UpdatedAt,
		})
	}

	if err := that.results.Record(ctx, results...); err != nil {
		that.logger.Error("could not archive results", "session_id", session.ID, "error", err)
	}
}

func (that *ticTacToe) RequestRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error) {
	return that.negotiate(ctx, "rematch_request", id, playerID, rematch.Request)
}

func (that *ticTacToe) AcceptRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error) {
	return that.negotiate(ctx, "rematch_accept", id, playerID, rematch.Accept)
}

func (that *ticTacToe) DeclineRematch(ctx context.Context, id, playerID string) (RematchResult[entity.TicTacToeSession], error) {
	return that.negotiate(ctx, "rematch_decline", id, playerID, rematch.Decline)
}

func (that *ticTacToe) negotiate(
	ctx context.Context,
	action, id, playerID string,
	step func(rematch.Session, string) (rematch.Outcome, error),
) (RematchResult[entity.TicTacToeSession], error) {
	now := that.now()

	result, outcome, err := negotiate(ctx, that.logger, that.sessions, id, playerID, now, step,
		func(original *entity.TicTacToeSession, accepterID, siblingID string) (*entity.TicTacToeSession, error) {
			return tictactoe.Rematch(original, accepterID, siblingID, now), nil
		},
	)
	that.metrics.observe(entity.KindTicTacToe, action, err)

	if err != nil {
		return RematchResult[entity.TicTacToeSession]{}, fmt.Errorf("failed to negotiate rematch: %w", err)
	}

	that.logger.Debug("rematch negotiated", "method", action, "session_id", id, "outcome", outcome.String())

	return result, nil
}
