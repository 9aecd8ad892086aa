package usecase

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
)

// Session is any stored game record.
type Session interface {
	SessionID() string
	SessionKind() entity.Kind
	Guard() entity.Guard
}

type RematchStep string

const (
	RematchRequest RematchStep = "request"
	RematchAccept  RematchStep = "accept"
	RematchDecline RematchStep = "decline"
)

// Games routes kind-agnostic intents to the usecase of the named game.
type Games struct {
	TicTacToe TicTacToeUseCase
	Memory    MemoryUseCase
}

func (that *Games) Create(ctx context.Context, kind entity.Kind, player entity.Player, grid entity.GridConfig) (Session, error) {
	switch kind {
	case entity.KindTicTacToe:
		session, err := that.TicTacToe.Create(ctx, player)
		return wrap(session, err)
	case entity.KindMemory:
		session, err := that.Memory.Create(ctx, player, grid)
		return wrap(session, err)
	default:
		return nil, unknownKind(kind)
	}
}

func (that *Games) Join(ctx context.Context, kind entity.Kind, id string, player entity.Player) (Session, error) {
	switch kind {
	case entity.KindTicTacToe:
		session, err := that.TicTacToe.Join(ctx, id, player)
		return wrap(session, err)
	case entity.KindMemory:
		session, err := that.Memory.Join(ctx, id, player)
		return wrap(session, err)
	default:
		return nil, unknownKind(kind)
	}
}

func (that *Games) Get(ctx context.Context, kind entity.Kind, id string) (Session, error) {
	switch kind {
	case entity.KindTicTacToe:
		session, err := that.TicTacToe.Get(ctx, id)
		return wrap(session, err)
	case entity.KindMemory:
		session, err := that.Memory.Get(ctx, id)
		return wrap(session, err)
	default:
		return nil, unknownKind(kind)
	}
}

// Play places a mark on a cell or flips a card, depending on the game.
func (that *Games) Play(ctx context.Context, kind entity.Kind, id, playerID string, index int) (Session, error) {
	switch kind {
	case entity.KindTicTacToe:
		session, err := that.TicTacToe.Move(ctx, id, playerID, index)
		return wrap(session, err)
	case entity.KindMemory:
		session, err := that.Memory.Flip(ctx, id, playerID, index)
		return wrap(session, err)
	default:
		return nil, unknownKind(kind)
	}
}

// Reset clears an expired mismatched pair. Only the memory game has one.
func (that *Games) Reset(ctx context.Context, kind entity.Kind, id, playerID string) (Session, error) {
	if kind != entity.KindMemory {
		return nil, fmt.Errorf("%w: %s has no reset", apperror.ErrUnknownAction, kind)
	}

	session, err := that.Memory.ResolveMismatch(ctx, id, playerID)
	return wrap(session, err)
}

func (that *Games) Rematch(ctx context.Context, kind entity.Kind, step RematchStep, id, playerID string) (Session, string, error) {
	switch kind {
	case entity.KindTicTacToe:
		result, err := ticTacToeStep(that.TicTacToe, step)(ctx, id, playerID)
		if err != nil {
			return nil, "", err
		}

		return result.Session, result.NewSessionID, nil
	case entity.KindMemory:
		result, err := memoryStep(that.Memory, step)(ctx, id, playerID)
		if err != nil {
			return nil, "", err
		}

		return result.Session, result.NewSessionID, nil
	default:
		return nil, "", unknownKind(kind)
	}
}

type rematchFunc[T repository.Record] func(ctx context.Context, id, playerID string) (RematchResult[T], error)

func ticTacToeStep(useCase TicTacToeUseCase, step RematchStep) rematchFunc[entity.TicTacToeSession] {
	switch step {
	case RematchAccept:
		return useCase.AcceptRematch
	case RematchDecline:
		return useCase.DeclineRematch
	default:
		return useCase.RequestRematch
	}
}

func memoryStep(useCase MemoryUseCase, step RematchStep) rematchFunc[entity.MemorySession] {
	switch step {
	case RematchAccept:
		return useCase.AcceptRematch
	case RematchDecline:
		return useCase.DeclineRematch
	default:
		return useCase.RequestRematch
	}
}

// wrap keeps a nil record from turning into a non-nil Session.
func wrap[T Session](session T, err error) (Session, error) {
	if err != nil {
		return nil, err
	}

	return session, nil
}

func unknownKind(kind entity.Kind) error {
	return fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, kind)
}
