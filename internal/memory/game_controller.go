package memory

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// FlipOutcome tells what a successful flip did.
type FlipOutcome string

const (
	OutcomeRevealed   FlipOutcome = "revealed"
	OutcomeMatched    FlipOutcome = "matched"
	OutcomeMismatched FlipOutcome = "mismatched"
)

// Join seats the second player and deals the cards. The creator moves first.
func Join(session *entity.MemorySession, player entity.Player, dealer Dealer) error {
	if err := player.Validate(); err != nil {
		return err
	}

	if !session.IsWaiting() {
		return apperror.ErrGameAlreadyStarted
	}

	if player.ID == session.Player1.ID {
		return apperror.ErrAlreadySeated
	}

	cards, err := deal(session.Grid, dealer)
	if err != nil {
		return err
	}

	session.Seat(player, cards)

	return nil
}

func deal(grid entity.GridConfig, dealer Dealer) ([]entity.Card, error) {
	cards, err := dealer.Deal(grid)
	if err != nil {
		return nil, fmt.Errorf("failed to deal cards: %w", err)
	}

	if err = ValidateDeal(grid, cards); err != nil {
		return nil, err
	}

	return cards, nil
}

// Flip reveals one card. The second reveal of a turn either scores a pair, keeping
// the turn, or leaves both cards face up until ResolveMismatch clears them.
// On error the session is left untouched.
func Flip(session *entity.MemorySession, playerID string, index int, now time.Time) (FlipOutcome, error) {
	if err := CanFlip(session, playerID, index); err != nil {
		return "", err
	}

	session.LastMoveAt = now
	session.Cards[index].IsFlipped = true

	pending := session.PendingCards()
	if len(pending) == 1 {
		return OutcomeRevealed, nil
	}

	first, second := &session.Cards[pending[0]], &session.Cards[pending[1]]
	if first.Face != second.Face {
		session.MismatchAt = now
		return OutcomeMismatched, nil
	}

	first.IsMatched = true
	second.IsMatched = true
	session.Matches = append(session.Matches, entity.Match{
		CardIDs:  [2]int{first.ID, second.ID},
		PlayerID: playerID,
	})
	session.SeatOf(playerID).Matches++

	if session.AllMatched() {
		session.Status = entity.StatusFinished
		session.WinnerID = session.LeaderID()
	}

	return OutcomeMatched, nil
}

// CanFlip reports why playerID may not reveal the card at index, or nil.
func CanFlip(session *entity.MemorySession, playerID string, index int) error {
	if err := session.ConfirmOngoingState(); err != nil {
		return err
	}

	if err := validateFlip(session, playerID, index); err != nil {
		return fmt.Errorf("invalid flip: %w", err)
	}

	return nil
}

func validateFlip(session *entity.MemorySession, playerID string, index int) error {
	if session.CurrentPlayerID != playerID {
		return apperror.ErrNotYourTurn
	}

	if index < 0 || index >= len(session.Cards) {
		return apperror.ErrInvalidCard
	}

	card := session.Cards[index]
	if card.IsFlipped || card.IsMatched {
		return apperror.ErrCardUnavailable
	}

	if len(session.PendingCards()) >= 2 {
		return apperror.ErrPairPending
	}

	return nil
}

// ResolveMismatch turns a mismatched pair face down once the reveal window has
// elapsed and passes the turn. It reports false when nothing was pending, so
// repeated calls are harmless.
func ResolveMismatch(session *entity.MemorySession, window time.Duration, now time.Time) (bool, error) {
	if !session.IsPlaying() || !session.HasPendingMismatch() {
		return false, nil
	}

	if now.Before(session.RevealDeadline(window)) {
		return false, apperror.ErrRevealWindowOpen
	}

	mover := session.CurrentPlayerID
	for _, i := range session.PendingCards() {
		session.Cards[i].IsFlipped = false
	}

	session.MismatchAt = time.Time{}
	session.LastResetAt = now
	session.CurrentPlayerID = session.Opponent(mover)

	return true, nil
}

// Rematch builds the sibling of a finished session with a new deal, already
// playing. The player who answered the request takes the first seat and starts.
func Rematch(original *entity.MemorySession, accepterID, id string, dealer Dealer, now time.Time) (*entity.MemorySession, error) {
	cards, err := deal(original.Grid, dealer)
	if err != nil {
		return nil, err
	}

	first, second := original.Player2.Player, original.Player1.Player
	if accepterID == original.Player1.ID {
		first, second = original.Player1.Player, original.Player2.Player
	}

	next := entity.NewMemorySession(id, first, original.Grid, now)
	next.Seat(second, cards)

	return next, nil
}
