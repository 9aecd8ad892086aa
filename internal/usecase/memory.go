package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/memory"
	"github.com/rocketscienceinc/gameroom-backend/internal/rematch"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
)

const DefaultRevealWindow = 1500 * time.Millisecond

type MemoryUseCase interface {
	Create(ctx context.Context, player entity.Player, grid entity.GridConfig) (*entity.MemorySession, error)
	Join(ctx context.Context, id string, player entity.Player) (*entity.MemorySession, error)
	Get(ctx context.Context, id string) (*entity.MemorySession, error)
	Flip(ctx context.Context, id, playerID string, index int) (*entity.MemorySession, error)
	// ResolveMismatch clears an expired mismatched pair. actorID is empty when
	// the server sweeper asks.
	ResolveMismatch(ctx context.Context, id, actorID string) (*entity.MemorySession, error)
	// ResolveExpired clears every mismatch whose reveal window has elapsed and
	// returns how many sessions it changed.
	ResolveExpired(ctx context.Context) (int, error)

	RequestRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error)
	AcceptRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error)
	DeclineRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error)
}

type memoryGame struct {
	logger       *slog.Logger
	sessions     sessionRepo[entity.MemorySession]
	dealer       memory.Dealer
	revealWindow time.Duration
	players      playerRepo
	results      resultsArchive
	metrics      *Metrics
	now          func() time.Time
	newID        func() string
}

func NewMemoryUseCase(
	sessions sessionRepo[entity.MemorySession],
	dealer memory.Dealer,
	revealWindow time.Duration,
	options Options,
) MemoryUseCase {
	options = options.withDefaults()

	if dealer == nil {
		dealer = memory.NewRandomDealer()
	}

	if revealWindow <= 0 {
		revealWindow = DefaultRevealWindow
	}

	return &memoryGame{
		logger:       options.Logger.With("component", "memory"),
		sessions:     sessions,
		dealer:       dealer,
		revealWindow: revealWindow,
		players:      options.Players,
		results:      options.Results,
		metrics:      options.Metrics,
		now:          options.Now,
		newID:        options.NewID,
	}
}

func (that *memoryGame) Create(ctx context.Context, player entity.Player, grid entity.GridConfig) (*entity.MemorySession, error) {
	session, err := that.create(ctx, player, grid)
	that.metrics.observe(entity.KindMemory, "create", err)

	return session, err
}

func (that *memoryGame) create(ctx context.Context, player entity.Player, grid entity.GridConfig) (*entity.MemorySession, error) {
	player, err := knownPlayer(ctx, that.players, player)
	if err != nil {
		return nil, err
	}

	if err := player.Validate(); err != nil {
		return nil, err
	}

	if grid == (entity.GridConfig{}) {
		grid = entity.DefaultGrid
	}

	if err := grid.Validate(); err != nil {
		return nil, err
	}

	session := entity.NewMemorySession(that.newID(), player, grid, that.now())
	if err := that.sessions.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	rememberPlayer(ctx, that.logger, that.players, player, that.now())

	return session, nil
}

func (that *memoryGame) Join(ctx context.Context, id string, player entity.Player) (*entity.MemorySession, error) {
	player, err := knownPlayer(ctx, that.players, player)
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	session, _, err := update(ctx, that.sessions, id, that.now(), func(s *entity.MemorySession) (bool, error) {
		return true, memory.Join(s, player, that.dealer)
	})
	that.metrics.observe(entity.KindMemory, "join", err)

	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	rememberPlayer(ctx, that.logger, that.players, player, that.now())

	return session, nil
}

func (that *memoryGame) Get(ctx context.Context, id string) (*entity.MemorySession, error) {
	session, err := that.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (that *memoryGame) Flip(ctx context.Context, id, playerID string, index int) (*entity.MemorySession, error) {
	log := that.logger.With("method", "Flip", "session_id", id, "player_id", playerID)

	now := that.now()

	var outcome memory.FlipOutcome
	session, _, err := update(ctx, that.sessions, id, now, func(s *entity.MemorySession) (bool, error) {
		var err error
		outcome, err = memory.Flip(s, playerID, index, now)

		return true, err
	})
	that.metrics.observe(entity.KindMemory, "flip", err)

	if err != nil {
		log.Debug("flip rejected", "card", index, "error", err)
		return nil, fmt.Errorf("failed to flip card: %w", err)
	}

	log.Debug("card flipped", "card", index, "outcome", string(outcome))

	if session.IsFinished() {
		log.Info("game finished", "winner_id", session.WinnerID)
		that.archive(ctx, session)
	}

	return session, nil
}

func (that *memoryGame) ResolveMismatch(ctx context.Context, id, actorID string) (*entity.MemorySession, error) {
	session, _, err := that.resolve(ctx, id, actorID)

	return session, err
}

// resolve clears an expired mismatch and reports whether anything was written.
func (that *memoryGame) resolve(ctx context.Context, id, actorID string) (*entity.MemorySession, bool, error) {
	now := that.now()
	session, changed, err := update(ctx, that.sessions, id, now, func(s *entity.MemorySession) (bool, error) {
		if actorID != "" && !s.IsSeated(actorID) {
			return false, apperror.ErrNotSeated
		}

		return memory.ResolveMismatch(s, that.revealWindow, now)
	})
	that.metrics.observe(entity.KindMemory, "reset", err)

	if err != nil {
		return nil, false, fmt.Errorf("failed to reset cards: %w", err)
	}

	if changed {
		that.logger.Debug("cards reset", "method", "ResolveMismatch", "session_id", id, "next_player_id", session.CurrentPlayerID)
	}

	return session, changed, nil
}

func (that *memoryGame) ResolveExpired(ctx context.Context) (int, error) {
	log := that.logger.With("method", "ResolveExpired")

	ids, err := that.sessions.PendingResets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending resets: %w", err)
	}

	var resolved int
	for _, id := range ids {
		_, changed, err := that.resolve(ctx, id, "")

		switch {
		case err == nil:
			if changed {
				resolved++
			}
		case errors.Is(err, apperror.ErrRevealWindowOpen), errors.Is(err, apperror.ErrStaleState):
			// picked up again on the next sweep
		default:
			log.Warn("could not resolve mismatch", "session_id", id, "error", err)
		}
	}

	return resolved, nil
}

func (that *memoryGame) archive(ctx context.Context, session *entity.MemorySession) {
	that.metrics.finish(entity.KindMemory, session.WinnerID)

	if that.results == nil || session.Player2 == nil {
		return
	}

	results := make([]repository.GameResult, 0, 2)
	for _, player := range []entity.MemoryPlayer{session.Player1, *session.Player2} {
		results = append(results, repository.GameResult{
			SessionID:  session.ID,
			PlayerID:   player.ID,
			OpponentID: session.Opponent(player.ID),
			Kind:       entity.KindMemory,
			Outcome:    repository.OutcomeFor(session.WinnerID, player.ID),
			Score:      player.Matches,
			FinishedAt: session.UpdatedAt,
		})
	}

	if err := that.results.Record(ctx, results...); err != nil {
		that.logger.Error("could not archive results", "session_id", session.ID, "error", err)
	}
}

func (that *memoryGame) RequestRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error) {
	return that.negotiate(ctx, "rematch_request", id, playerID, rematch.Request)
}

func (that *memoryGame) AcceptRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error) {
	return that.negotiate(ctx, "rematch_accept", id, playerID, rematch.Accept)
}

func (that *memoryGame) DeclineRematch(ctx context.Context, id, playerID string) (RematchResult[entity.MemorySession], error) {
	return that.negotiate(ctx, "rematch_decline", id, playerID, rematch.Decline)
}

func (that *memoryGame) negotiate(
	ctx context.Context,
	action, id, playerID string,
	step func(rematch.Session, string) (rematch.Outcome, error),
) (RematchResult[entity.MemorySession], error) {
	now := that.now()

	result, outcome, err := negotiate(ctx, that.logger, that.sessions, id, playerID, now, step,
		func(original *entity.MemorySession, accepterID, siblingID string) (*entity.MemorySession, error) {
			return memory.Rematch(original, accepterID, siblingID, that.dealer, now)
		},
	)
	that.metrics.observe(entity.KindMemory, action, err)

	if err != nil {
		return RematchResult[entity.MemorySession]{}, fmt.Errorf("failed to negotiate rematch: %w", err)
	}

	that.logger.Debug("rematch negotiated", "method", action, "session_id", id, "outcome", outcome.String())

	return result, nil
}
