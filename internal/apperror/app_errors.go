package apperror

import (
	"errors"
	"fmt"
)

// Categories. Every error returned by a session operation wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrTurnViolation = errors.New("turn violation")
	ErrIllegalMove   = errors.New("illegal move")
	ErrStateConflict = errors.New("state conflict")
	ErrPersistence   = errors.New("persistence error")
)

var (
	ErrMissingPlayer   = fmt.Errorf("%w: player id and nickname are required", ErrValidation)
	ErrInvalidGrid     = fmt.Errorf("%w: invalid grid config", ErrValidation)
	ErrInvalidDeal     = fmt.Errorf("%w: invalid card deal", ErrValidation)
	ErrUnknownGameKind = fmt.Errorf("%w: unknown game kind", ErrValidation)
	ErrUnknownAction   = fmt.Errorf("%w: unknown action", ErrValidation)
	ErrBadPayload      = fmt.Errorf("%w: malformed payload", ErrValidation)

	ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrNotFound)

	ErrNotYourTurn = fmt.Errorf("%w: it's not your turn", ErrTurnViolation)

	ErrInvalidCell     = fmt.Errorf("%w: invalid cell index", ErrIllegalMove)
	ErrCellOccupied    = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrInvalidCard     = fmt.Errorf("%w: invalid card index", ErrIllegalMove)
	ErrCardUnavailable = fmt.Errorf("%w: card is already flipped or matched", ErrIllegalMove)
	ErrPairPending     = fmt.Errorf("%w: two cards are already revealed", ErrIllegalMove)
	ErrNotSeated       = fmt.Errorf("%w: player is not seated in this game", ErrIllegalMove)
	ErrOwnRematch      = fmt.Errorf("%w: can't accept your own rematch request", ErrIllegalMove)

	ErrGameIsNotStarted   = fmt.Errorf("%w: game is not started", ErrStateConflict)
	ErrGameFinished       = fmt.Errorf("%w: game is already finished", ErrStateConflict)
	ErrGameNotFinished    = fmt.Errorf("%w: game is not finished", ErrStateConflict)
	ErrGameAlreadyStarted = fmt.Errorf("%w: game already has two players", ErrStateConflict)
	ErrAlreadySeated      = fmt.Errorf("%w: player already created this game", ErrStateConflict)
	ErrUnknownGameStatus  = fmt.Errorf("%w: unknown game status", ErrStateConflict)
	ErrRevealWindowOpen   = fmt.Errorf("%w: cards are still being revealed", ErrStateConflict)
	ErrNoRematchRequest   = fmt.Errorf("%w: no rematch request", ErrStateConflict)
	ErrRematchLinked      = fmt.Errorf("%w: rematch already created", ErrStateConflict)
	ErrStaleState         = fmt.Errorf("%w: session changed concurrently", ErrStateConflict)
	ErrSessionExists      = fmt.Errorf("%w: session already exists", ErrStateConflict)
)

// Kind is the transport-facing code of an error category.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindTurnViolation Kind = "turn_violation"
	KindIllegalMove   Kind = "illegal_move"
	KindStateConflict Kind = "state_conflict"
	KindPersistence   Kind = "persistence"
	KindInternal      Kind = "internal"
)

var categories = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrTurnViolation, KindTurnViolation},
	{ErrIllegalMove, KindIllegalMove},
	{ErrStateConflict, KindStateConflict},
	{ErrPersistence, KindPersistence},
}

// KindOf returns the category of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}

	return KindInternal
}

// Persistence wraps a store failure so callers can tell it apart from rule violations.
func Persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
