package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
)

const (
	MinGridSide = 2
	MaxGridSide = 6
)

var DefaultGrid = GridConfig{Rows: 4, Cols: 4}

type GridConfig struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

func (that GridConfig) Size() int {
	return that.Rows * that.Cols
}

func (that GridConfig) Pairs() int {
	return that.Size() / 2
}

func (that GridConfig) Validate() error {
	if that.Rows < MinGridSide || that.Rows > MaxGridSide || that.Cols < MinGridSide || that.Cols > MaxGridSide {
		return fmt.Errorf("%w: %dx%d is out of range", apperror.ErrInvalidGrid, that.Rows, that.Cols)
	}

	if that.Size()%2 != 0 {
		return fmt.Errorf("%w: %dx%d has an odd number of cards", apperror.ErrInvalidGrid, that.Rows, that.Cols)
	}

	if that.Pairs() > len(Faces) {
		return fmt.Errorf("%w: %d pairs needed, %d faces available", apperror.ErrInvalidGrid, that.Pairs(), len(Faces))
	}

	return nil
}

type Card struct {
	ID        int    `json:"id"`
	Face      Face   `json:"face"`
	Color     string `json:"color"`
	IsFlipped bool   `json:"is_flipped"`
	IsMatched bool   `json:"is_matched"`
}

// IsPending reports whether the card is face up but not yet part of a pair.
func (that Card) IsPending() bool {
	return that.IsFlipped && !that.IsMatched
}

type Match struct {
	CardIDs  [2]int `json:"card_ids"`
	PlayerID string `json:"player_id"`
}

type MemoryPlayer struct {
	Player

	Matches int `json:"matches"`
}

// MemorySession is the persisted record of one card-matching game.
// Cards are dealt when the second player joins.
type MemorySession struct {
	Meta

	Player1 MemoryPlayer  `json:"player_1"`
	Player2 *MemoryPlayer `json:"player_2"`
	Cards   []Card        `json:"cards"`
	Matches []Match       `json:"matches"`
	Grid    GridConfig    `json:"grid_config"`

	// LastResetAt marks the most recent forced un-flip of a mismatched pair.
	LastResetAt time.Time `json:"last_reset_at"`
	// MismatchAt is when the pending mismatched pair was revealed; zero when none is pending.
	MismatchAt time.Time `json:"mismatch_at"`
}

func NewMemorySession(id string, creator Player, grid GridConfig, now time.Time) *MemorySession {
	return &MemorySession{
		Meta:    newMeta(id, creator.ID, now),
		Player1: MemoryPlayer{Player: creator},
		Matches: []Match{},
		Grid:    grid,
	}
}

func (that MemorySession) SessionKind() Kind {
	return KindMemory
}

// Seat places the second player, lays out the dealt cards and starts the game.
func (that *MemorySession) Seat(player Player, cards []Card) {
	that.Player2 = &MemoryPlayer{Player: player}
	that.Cards = cards
	that.Status = StatusPlaying
	that.CurrentPlayerID = that.Player1.ID
}

func (that *MemorySession) IsSeated(playerID string) bool {
	return that.SeatOf(playerID) != nil
}

// SeatOf returns the seat held by playerID, or nil.
func (that *MemorySession) SeatOf(playerID string) *MemoryPlayer {
	switch {
	case playerID == "":
		return nil
	case playerID == that.Player1.ID:
		return &that.Player1
	case that.Player2 != nil && playerID == that.Player2.ID:
		return that.Player2
	default:
		return nil
	}
}

func (that *MemorySession) Opponent(playerID string) string {
	if that.Player2 == nil {
		return ""
	}

	if playerID == that.Player1.ID {
		return that.Player2.ID
	}

	return that.Player1.ID
}

// PendingCards returns the indexes of face-up unmatched cards.
func (that *MemorySession) PendingCards() []int {
	pending := make([]int, 0, 2)
	for i, card := range that.Cards {
		if card.IsPending() {
			pending = append(pending, i)
		}
	}

	return pending
}

func (that *MemorySession) HasPendingMismatch() bool {
	return !that.MismatchAt.IsZero() && len(that.PendingCards()) == 2
}

// RevealDeadline is the moment a pending mismatch may be cleared. Every reader
// derives it from the stored timestamp; zero when nothing is pending.
func (that *MemorySession) RevealDeadline(window time.Duration) time.Time {
	if !that.HasPendingMismatch() {
		return time.Time{}
	}

	return that.MismatchAt.Add(window)
}

func (that *MemorySession) MatchedCount() int {
	var count int
	for _, card := range that.Cards {
		if card.IsMatched {
			count++
		}
	}

	return count
}

func (that *MemorySession) AllMatched() bool {
	return len(that.Cards) > 0 && that.MatchedCount() == len(that.Cards)
}

// LeaderID returns the player with more matches, or "" on a tie.
func (that *MemorySession) LeaderID() string {
	if that.Player2 == nil {
		return ""
	}

	switch {
	case that.Player1.Matches > that.Player2.Matches:
		return that.Player1.ID
	case that.Player2.Matches > that.Player1.Matches:
		return that.Player2.ID
	default:
		return ""
	}
}
