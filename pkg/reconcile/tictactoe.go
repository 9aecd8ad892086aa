package reconcile

import (
	"sync"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/tictactoe"
)

// TicTacToe keeps one player's view of a tic-tac-toe session.
type TicTacToe struct {
	mu       sync.Mutex
	playerID string
	now      func() time.Time

	authoritative *entity.TicTacToeSession
	optimistic    *entity.TicTacToeSession
}

func NewTicTacToe(playerID string) *TicTacToe {
	return &TicTacToe{
		playerID: playerID,
		now:      time.Now,
	}
}

// Apply stores a record from the server and returns the effects it implies.
// Records not newer than the stored one are ignored, so replays are harmless.
// Any record drops the local prediction.
func (that *TicTacToe) Apply(next *entity.TicTacToeSession) []Effect {
	if next == nil {
		return nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.optimistic = nil

	prev := that.authoritative
	if prev != nil && next.Revision <= prev.Revision {
		return nil
	}

	that.authoritative = cloneTicTacToe(next)
	if prev == nil {
		return nil
	}

	var effects []Effect

	opponent := prev.Opponent(that.playerID)
	if opponent != "" {
		mark := next.MarkOf(opponent)
		for cell := range next.Board {
			if prev.Board[cell] == entity.MarkEmpty && next.Board[cell] == mark {
				effects = append(effects, Effect{Kind: EffectOpponentMove, Cell: cell, PlayerID: opponent})
			}
		}
	}

	return append(effects, diffMeta(that.playerID, &prev.Meta, &next.Meta)...)
}

// Move predicts the local player's move. The returned view is shown until the
// next authoritative record arrives.
func (that *TicTacToe) Move(cell int) (*entity.TicTacToeSession, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	view := cloneTicTacToe(that.viewLocked())
	if view == nil {
		return nil, ErrNoSession
	}

	if err := tictactoe.MakeTurn(view, that.playerID, cell, that.now()); err != nil {
		return nil, err
	}

	that.optimistic = view

	return cloneTicTacToe(view), nil
}

// View returns the prediction when there is one, else the last authoritative record.
func (that *TicTacToe) View() *entity.TicTacToeSession {
	that.mu.Lock()
	defer that.mu.Unlock()

	return cloneTicTacToe(that.viewLocked())
}

func (that *TicTacToe) Authoritative() *entity.TicTacToeSession {
	that.mu.Lock()
	defer that.mu.Unlock()

	return cloneTicTacToe(that.authoritative)
}

func (that *TicTacToe) viewLocked() *entity.TicTacToeSession {
	if that.optimistic != nil {
		return that.optimistic
	}

	return that.authoritative
}

func cloneTicTacToe(session *entity.TicTacToeSession) *entity.TicTacToeSession {
	if session == nil {
		return nil
	}

	clone := *session
	if session.PlayerO != nil {
		playerO := *session.PlayerO
		clone.PlayerO = &playerO
	}

	return &clone
}
