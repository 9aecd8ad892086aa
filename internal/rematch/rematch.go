// Package rematch holds the request/accept/decline handshake shared by every game.
// It only touches the negotiation fields of a finished session; building and
// storing the sibling session is left to the caller.
package rematch

import (
	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// Session is a finished game record that can be negotiated over.
type Session interface {
	IsFinished() bool
	IsSeated(playerID string) bool
	Negotiation() *entity.Rematch
}

// Outcome tells the caller what a handshake step asks for.
type Outcome int

const (
	// Unchanged means nothing needs to be written.
	Unchanged Outcome = iota
	// Requested means the request was stamped and must be stored.
	Requested
	// Declined means the pending request was cleared and must be stored.
	Declined
	// Spawn means both players agreed: the sibling session has to be created and linked.
	Spawn
)

func (that Outcome) String() string {
	switch that {
	case Unchanged:
		return "unchanged"
	case Requested:
		return "requested"
	case Declined:
		return "declined"
	case Spawn:
		return "spawn"
	default:
		return "unknown"
	}
}

func confirm(session Session, playerID string) error {
	if !session.IsFinished() {
		return apperror.ErrGameNotFinished
	}

	if !session.IsSeated(playerID) {
		return apperror.ErrNotSeated
	}

	if session.Negotiation().SessionID != "" {
		return apperror.ErrRematchLinked
	}

	return nil
}

// Request stamps a pending request. Asking again is a no-op; a request from
// the other player counts as acceptance.
func Request(session Session, playerID string) (Outcome, error) {
	if err := confirm(session, playerID); err != nil {
		return Unchanged, err
	}

	negotiation := session.Negotiation()
	switch negotiation.RequestedBy {
	case "":
		negotiation.RequestedBy = playerID
		return Requested, nil
	case playerID:
		return Unchanged, nil
	default:
		return Spawn, nil
	}
}

// Accept agrees to the other player's pending request.
func Accept(session Session, playerID string) (Outcome, error) {
	if err := confirm(session, playerID); err != nil {
		return Unchanged, err
	}

	switch session.Negotiation().RequestedBy {
	case "":
		return Unchanged, apperror.ErrNoRematchRequest
	case playerID:
		return Unchanged, apperror.ErrOwnRematch
	default:
		return Spawn, nil
	}
}

// Decline clears a pending request. Either seated player may decline,
// and declining when nothing is pending is a no-op.
func Decline(session Session, playerID string) (Outcome, error) {
	if err := confirm(session, playerID); err != nil {
		return Unchanged, err
	}

	negotiation := session.Negotiation()
	if negotiation.RequestedBy == "" {
		return Unchanged, nil
	}

	negotiation.RequestedBy = ""

	return Declined, nil
}

// Link points the finished session at its sibling and closes the negotiation.
func Link(session Session, siblingID string) {
	negotiation := session.Negotiation()
	negotiation.SessionID = siblingID
	negotiation.RequestedBy = ""
}
