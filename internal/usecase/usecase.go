package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/rematch"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
)

type sessionRepo[T repository.Record] interface {
	GetByID(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, rec *T) error
	UpdateIf(ctx context.Context, expected entity.Guard, rec *T) error
	PendingResets(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type playerRegistry interface {
	Remember(ctx context.Context, player entity.Player, seenAt time.Time) error
	Lookup(ctx context.Context, id string) (*entity.Player, error)
}

type resultsArchive interface {
	Record(ctx context.Context, results ...repository.GameResult) error
}

// session is the pointer side of a stored record.
type session[T repository.Record] interface {
	*T
	rematch.Session

	Touch(now time.Time)
}

// RematchResult is the negotiated record plus the sibling id once one exists.
type RematchResult[T repository.Record] struct {
	Session      *T     `json:"session"`
	NewSessionID string `json:"new_session_id,omitempty"`
}

// Options are the collaborators every game usecase shares.
type Options struct {
	Logger  *slog.Logger
	Players playerRegistry
	Results resultsArchive
	Metrics *Metrics
	Now     func() time.Time
	NewID   func() string
}

func (that Options) withDefaults() Options {
	if that.Logger == nil {
		that.Logger = slog.Default()
	}

	if that.Now == nil {
		that.Now = func() time.Time { return time.Now().UTC() }
	}

	if that.NewID == nil {
		that.NewID = uuid.NewString
	}

	return that
}

// RematchID derives the sibling id of a session, so every accept of the same
// request lands on the same record.
func RematchID(sessionID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID+":rematch")).String()
}

func rememberPlayer(ctx context.Context, log *slog.Logger, players playerRegistry, player entity.Player, now time.Time) {
	if players == nil {
		return
	}

	if err := players.Remember(ctx, player, now); err != nil {
		log.Warn("could not remember player", "player_id", player.ID, "error", err)
	}
}

// knownPlayer fills a blank nickname from the registry for a player id that
// has sat down before. Unknown ids are returned untouched.
func knownPlayer(ctx context.Context, players playerRegistry, player entity.Player) (entity.Player, error) {
	if players == nil || strings.TrimSpace(player.ID) == "" || strings.TrimSpace(player.Nickname) != "" {
		return player, nil
	}

	known, err := players.Lookup(ctx, player.ID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return player, nil
	}

	if err != nil {
		return player, fmt.Errorf("failed to look up player: %w", err)
	}

	player.Nickname = known.Nickname

	return player, nil
}

// update loads a session, applies mutate and stores the result guarded by the
// state it was read in. mutate reports false when nothing needs writing.
func update[T repository.Record, PT session[T]](
	ctx context.Context,
	repo sessionRepo[T],
	id string,
	now time.Time,
	mutate func(PT) (bool, error),
) (*T, bool, error) {
	rec, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get session: %w", err)
	}

	guard := (*rec).Guard()

	changed, err := mutate(PT(rec))
	if err != nil {
		return nil, false, err
	}

	if !changed {
		return rec, false, nil
	}

	PT(rec).Touch(now)

	if err = repo.UpdateIf(ctx, guard, rec); err != nil {
		return nil, false, fmt.Errorf("failed to update session: %w", err)
	}

	return rec, true, nil
}

// negotiate runs one rematch handshake step. When both players agreed it
// inserts the sibling built by spawn for the accepting player and links the
// original to it.
func negotiate[T repository.Record, PT session[T]](
	ctx context.Context,
	log *slog.Logger,
	repo sessionRepo[T],
	id, playerID string,
	now time.Time,
	step func(rematch.Session, string) (rematch.Outcome, error),
	spawn func(original *T, accepterID, siblingID string) (*T, error),
) (RematchResult[T], rematch.Outcome, error) {
	rec, err := repo.GetByID(ctx, id)
	if err != nil {
		return RematchResult[T]{}, rematch.Unchanged, fmt.Errorf("failed to get session: %w", err)
	}

	guard := (*rec).Guard()

	outcome, err := step(PT(rec), playerID)
	if err != nil {
		return RematchResult[T]{}, outcome, err
	}

	if outcome == rematch.Unchanged {
		return RematchResult[T]{Session: rec}, outcome, nil
	}

	if outcome != rematch.Spawn {
		PT(rec).Touch(now)
		if err = repo.UpdateIf(ctx, guard, rec); err != nil {
			return RematchResult[T]{}, outcome, fmt.Errorf("failed to update session: %w", err)
		}

		return RematchResult[T]{Session: rec}, outcome, nil
	}

	siblingID := RematchID(id)

	sibling, err := spawn(rec, playerID, siblingID)
	if err != nil {
		return RematchResult[T]{}, outcome, fmt.Errorf("failed to build rematch: %w", err)
	}

	err = repo.Insert(ctx, sibling)
	if err != nil && !errors.Is(err, apperror.ErrSessionExists) {
		return RematchResult[T]{}, outcome, fmt.Errorf("failed to create rematch: %w", err)
	}

	inserted := err == nil

	rematch.Link(PT(rec), siblingID)
	PT(rec).Touch(now)

	err = repo.UpdateIf(ctx, guard, rec)
	if errors.Is(err, apperror.ErrStaleState) {
		// a concurrent accept may already have linked the same sibling
		current, getErr := repo.GetByID(ctx, id)
		if getErr == nil && PT(current).Negotiation().SessionID == siblingID {
			return RematchResult[T]{Session: current, NewSessionID: siblingID}, outcome, nil
		}

		// the original moved on without a link, leaving the sibling unreachable
		if getErr == nil && inserted {
			if delErr := repo.Delete(ctx, siblingID); delErr != nil {
				log.Warn("could not drop unlinked rematch", "session_id", siblingID, "error", delErr)
			}
		}
	}

	if err != nil {
		return RematchResult[T]{}, outcome, fmt.Errorf("failed to link rematch: %w", err)
	}

	return RematchResult[T]{Session: rec, NewSessionID: siblingID}, outcome, nil
}
