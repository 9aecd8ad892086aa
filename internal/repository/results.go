package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const defaultResultsLimit = 50

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// GameResult is one player's view of a finished session.
type GameResult struct {
	ID         uint        `gorm:"primaryKey" json:"-"`
	SessionID  string      `gorm:"type:varchar(64);not null;uniqueIndex:idx_session_player" json:"session_id"`
	PlayerID   string      `gorm:"type:varchar(128);not null;uniqueIndex:idx_session_player;index" json:"player_id"`
	OpponentID string      `gorm:"type:varchar(128);not null" json:"opponent_id"`
	Kind       entity.Kind `gorm:"type:varchar(16);not null" json:"kind"`
	Outcome    Outcome     `gorm:"type:varchar(8);check:outcome IN ('win','loss','draw')" json:"outcome"`
	Score      int         `json:"score"`
	FinishedAt time.Time   `gorm:"index" json:"finished_at"`
	CreatedAt  time.Time   `json:"-"`
}

// ResultsStore archives finished sessions. A nil store is valid and records nothing.
type ResultsStore struct {
	db *gorm.DB
}

func NewResultsStore(db *gorm.DB) *ResultsStore {
	if db == nil {
		return nil
	}

	return &ResultsStore{db: db}
}

func (that *ResultsStore) Enabled() bool {
	return that != nil
}

// Record stores the results of one session. Recording the same session twice is a no-op.
func (that *ResultsStore) Record(ctx context.Context, results ...GameResult) error {
	if that == nil || len(results) == 0 {
		return nil
	}

	err := that.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&results).Error
	if err != nil {
		return apperror.Persistence("record results", err)
	}

	return nil
}

// ListByPlayer returns the newest results of a player first.
func (that *ResultsStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]GameResult, error) {
	if that == nil {
		return []GameResult{}, nil
	}

	if limit <= 0 {
		limit = defaultResultsLimit
	}

	var results []GameResult
	err := that.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("finished_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, apperror.Persistence("list results", err)
	}

	return results, nil
}

// OutcomeFor tells how a finished session ended for playerID.
func OutcomeFor(winnerID, playerID string) Outcome {
	switch winnerID {
	case "":
		return OutcomeDraw
	case playerID:
		return OutcomeWin
	default:
		return OutcomeLoss
	}
}
