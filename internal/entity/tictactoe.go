package entity

import "time"

type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// TicTacToeSession is the persisted record of one 3x3 marking game.
// The creator holds X and moves first.
type TicTacToeSession struct {
	Meta

	PlayerX Player  `json:"player_x"`
	PlayerO *Player `json:"player_o"`
	Board   [9]Mark `json:"board"`
}

func NewTicTacToeSession(id string, creator Player, now time.Time) *TicTacToeSession {
	return &TicTacToeSession{
		Meta:    newMeta(id, creator.ID, now),
		PlayerX: creator,
	}
}

func (that TicTacToeSession) SessionKind() Kind {
	return KindTicTacToe
}

// Seat places the second player and starts the game.
func (that *TicTacToeSession) Seat(player Player) {
	that.PlayerO = &player
	that.Status = StatusPlaying
	that.CurrentPlayerID = that.PlayerX.ID
}

func (that *TicTacToeSession) IsSeated(playerID string) bool {
	if playerID == "" {
		return false
	}

	return playerID == that.PlayerX.ID || (that.PlayerO != nil && playerID == that.PlayerO.ID)
}

func (that *TicTacToeSession) MarkOf(playerID string) Mark {
	switch {
	case playerID == "":
		return MarkEmpty
	case playerID == that.PlayerX.ID:
		return MarkX
	case that.PlayerO != nil && playerID == that.PlayerO.ID:
		return MarkO
	default:
		return MarkEmpty
	}
}

func (that *TicTacToeSession) Opponent(playerID string) string {
	if that.PlayerO == nil {
		return ""
	}

	if playerID == that.PlayerX.ID {
		return that.PlayerO.ID
	}

	return that.PlayerX.ID
}

// WinningMark returns the mark owning a completed line, or MarkEmpty.
func (that *TicTacToeSession) WinningMark() Mark {
	for _, combo := range WinCombos {
		a, b, c := that.Board[combo[0]], that.Board[combo[1]], that.Board[combo[2]]
		if a != MarkEmpty && a == b && b == c {
			return a
		}
	}

	return MarkEmpty
}

func (that *TicTacToeSession) IsBoardFull() bool {
	for _, cell := range that.Board {
		if cell == MarkEmpty {
			return false
		}
	}

	return true
}

func (that *TicTacToeSession) CountMarks() (int, int) {
	var x, o int
	for _, cell := range that.Board {
		switch cell {
		case MarkX:
			x++
		case MarkO:
			o++
		case MarkEmpty:
		}
	}

	return x, o
}

// UpdateGameState finishes the game after mover placed a mark, or passes the turn.
func (that *TicTacToeSession) UpdateGameState(moverID string) {
	mark := that.MarkOf(moverID)

	switch {
	case mark != MarkEmpty && that.WinningMark() == mark:
		that.finish(moverID)
	case that.IsBoardFull():
		that.finish("")
	default:
		that.CurrentPlayerID = that.Opponent(moverID)
	}
}
