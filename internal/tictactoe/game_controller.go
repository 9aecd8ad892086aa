package tictactoe

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// Join seats the second player. The creator holds X and moves first.
func Join(session *entity.TicTacToeSession, player entity.Player) error {
	if err := player.Validate(); err != nil {
		return err
	}

	if !session.IsWaiting() {
		return apperror.ErrGameAlreadyStarted
	}

	if player.ID == session.PlayerX.ID {
		return apperror.ErrAlreadySeated
	}

	session.Seat(player)

	return nil
}

// MakeTurn places the mover's mark at cell. On error the session is left untouched.
func MakeTurn(session *entity.TicTacToeSession, playerID string, cell int, now time.Time) error {
	if err := session.ConfirmOngoingState(); err != nil {
		return err
	}

	if err := validateMove(session, playerID, cell); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	session.Board[cell] = session.MarkOf(playerID)
	session.LastMoveAt = now
	session.UpdateGameState(playerID)

	return nil
}

// validateMove - checks if the move is valid.
func validateMove(session *entity.TicTacToeSession, playerID string, cell int) error {
	if session.CurrentPlayerID != playerID {
		return apperror.ErrNotYourTurn
	}

	if cell < 0 || cell >= len(session.Board) {
		return apperror.ErrInvalidCell
	}

	if session.Board[cell] != entity.MarkEmpty {
		return apperror.ErrCellOccupied
	}

	return nil
}

// Rematch builds the sibling of a finished session on an empty board, already
// playing. The player who answered the request takes X and moves first.
func Rematch(original *entity.TicTacToeSession, accepterID, id string, now time.Time) *entity.TicTacToeSession {
	first, second := *original.PlayerO, original.PlayerX
	if accepterID == original.PlayerX.ID {
		first, second = original.PlayerX, *original.PlayerO
	}

	next := entity.NewTicTacToeSession(id, first, now)
	next.Seat(second)

	return next
}
