package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Kind identifies which game a session record holds.
type Kind string

const (
	KindTicTacToe Kind = "tictactoe"
	KindMemory    Kind = "memory"
)

func ParseKind(value string) (Kind, error) {
	switch kind := Kind(value); kind {
	case KindTicTacToe, KindMemory:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", apperror.ErrUnknownGameKind, value)
	}
}

type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

func (that Player) Validate() error {
	if strings.TrimSpace(that.ID) == "" || strings.TrimSpace(that.Nickname) == "" {
		return apperror.ErrMissingPlayer
	}

	return nil
}

// Guard is the prior state a conditional update expects to find in the store.
type Guard struct {
	Status          Status
	CurrentPlayerID string
	Revision        int64
}

// Rematch holds the negotiation fields, the only writable surface of a finished session.
type Rematch struct {
	RequestedBy string `json:"rematch_requested_by,omitempty"`
	SessionID   string `json:"rematch_session_id,omitempty"`
}

// Meta is the header shared by both session records.
type Meta struct {
	ID              string    `json:"id"`
	Revision        int64     `json:"revision"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LastMoveAt      time.Time `json:"last_move_at"`
	Status          Status    `json:"status"`
	CurrentPlayerID string    `json:"current_player_id"`
	WinnerID        string    `json:"winner_id,omitempty"`

	Rematch
}

func newMeta(id, currentPlayerID string, now time.Time) Meta {
	return Meta{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		Status:          StatusWaiting,
		CurrentPlayerID: currentPlayerID,
	}
}

func (that Meta) SessionID() string {
	return that.ID
}

func (that Meta) Guard() Guard {
	return Guard{
		Status:          that.Status,
		CurrentPlayerID: that.CurrentPlayerID,
		Revision:        that.Revision,
	}
}

// Touch bumps the revision. Called once per committed write.
func (that *Meta) Touch(now time.Time) {
	that.Revision++
	that.UpdatedAt = now
}

func (that *Meta) Negotiation() *Rematch {
	return &that.Rematch
}

func (that *Meta) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Meta) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Meta) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Meta) IsDraw() bool {
	return that.IsFinished() && that.WinnerID == ""
}

func (that *Meta) ConfirmOngoingState() error {
	switch {
	case that.IsWaiting():
		return apperror.ErrGameIsNotStarted
	case that.IsFinished():
		return apperror.ErrGameFinished
	case that.IsPlaying():
		return nil
	default:
		return fmt.Errorf("%w: %s", apperror.ErrUnknownGameStatus, that.Status)
	}
}

func (that *Meta) finish(winnerID string) {
	that.Status = StatusFinished
	that.WinnerID = winnerID
}
