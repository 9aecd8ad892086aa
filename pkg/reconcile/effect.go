// Package reconcile turns authoritative session records into the local view
// of one player and the one-shot effects the view should play.
package reconcile

import (
	"errors"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

var ErrNoSession = errors.New("no session record yet")

type EffectKind string

const (
	EffectFlip             EffectKind = "flip"
	EffectMatch            EffectKind = "match"
	EffectWin              EffectKind = "win"
	EffectLose             EffectKind = "lose"
	EffectDraw             EffectKind = "draw"
	EffectYourTurn         EffectKind = "your_turn"
	EffectCardsReset       EffectKind = "cards_reset"
	EffectOpponentMove     EffectKind = "opponent_move"
	EffectRematchRequested EffectKind = "rematch_requested"
	EffectRematchReady     EffectKind = "rematch_ready"
)

// Effect is a transient cue derived from the difference between two records.
// Only the fields relevant to Kind are set.
type Effect struct {
	Kind      EffectKind
	Card      int
	Cards     [2]int
	Cell      int
	PlayerID  string
	SessionID string
}

// diffMeta emits the effects shared by every game: end of game, turn
// handover and the rematch handshake.
func diffMeta(playerID string, prev, next *entity.Meta) []Effect {
	var effects []Effect

	if next.IsFinished() && !prev.IsFinished() {
		switch next.WinnerID {
		case "":
			effects = append(effects, Effect{Kind: EffectDraw})
		case playerID:
			effects = append(effects, Effect{Kind: EffectWin, PlayerID: playerID})
		default:
			effects = append(effects, Effect{Kind: EffectLose, PlayerID: next.WinnerID})
		}
	}

	wasMine := prev.IsPlaying() && prev.CurrentPlayerID == playerID
	if next.IsPlaying() && next.CurrentPlayerID == playerID && !wasMine {
		effects = append(effects, Effect{Kind: EffectYourTurn, PlayerID: playerID})
	}

	requestedBy := next.RequestedBy
	if requestedBy != "" && requestedBy != prev.RequestedBy && requestedBy != playerID {
		effects = append(effects, Effect{Kind: EffectRematchRequested, PlayerID: requestedBy})
	}

	if next.Rematch.SessionID != "" && prev.Rematch.SessionID == "" {
		effects = append(effects, Effect{Kind: EffectRematchReady, SessionID: next.Rematch.SessionID})
	}

	return effects
}

// Has reports whether effects contains one of kind.
func Has(effects []Effect, kind EffectKind) bool {
	for _, effect := range effects {
		if effect.Kind == kind {
			return true
		}
	}

	return false
}
