package reconcile

import (
	"sync"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/memory"
)

// Memory keeps one player's view of a memory session.
type Memory struct {
	mu       sync.Mutex
	playerID string
	now      func() time.Time

	authoritative *entity.MemorySession
	optimistic    *entity.MemorySession
}

func NewMemory(playerID string) *Memory {
	return &Memory{
		playerID: playerID,
		now:      time.Now,
	}
}

// Apply stores a record from the server and returns the effects it implies.
func (that *Memory) Apply(next *entity.MemorySession) []Effect {
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

	that.authoritative = cloneMemory(next)
	if prev == nil {
		return nil
	}

	effects := that.diffCards(prev, next)

	return append(effects, diffMeta(that.playerID, &prev.Meta, &next.Meta)...)
}

func (that *Memory) diffCards(prev, next *entity.MemorySession) []Effect {
	var effects []Effect

	// Cards are only laid out on join; a changed deck has nothing to diff against.
	if len(prev.Cards) != len(next.Cards) {
		return nil
	}

	owners := make(map[int]string, len(next.Matches))
	for _, match := range next.Matches {
		owners[match.CardIDs[0]] = match.PlayerID
		owners[match.CardIDs[1]] = match.PlayerID
	}

	for i, card := range next.Cards {
		if !card.IsFlipped || prev.Cards[i].IsFlipped {
			continue
		}

		flipper := next.CurrentPlayerID
		if owner, ok := owners[card.ID]; ok {
			flipper = owner
		}

		if flipper != that.playerID {
			effects = append(effects, Effect{Kind: EffectFlip, Card: i, PlayerID: flipper})
		}
	}

	for _, match := range next.Matches[min(len(prev.Matches), len(next.Matches)):] {
		effects = append(effects, Effect{Kind: EffectMatch, Cards: match.CardIDs, PlayerID: match.PlayerID})
	}

	for i, card := range prev.Cards {
		if card.IsPending() && !next.Cards[i].IsFlipped {
			effects = append(effects, Effect{Kind: EffectCardsReset})
			break
		}
	}

	return effects
}

// CanFlip tells why the local player may not flip the card now, or nil.
// It refuses a third pending card, a revealed card and a flip out of turn.
func (that *Memory) CanFlip(index int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	view := that.viewLocked()
	if view == nil {
		return ErrNoSession
	}

	return memory.CanFlip(view, that.playerID, index)
}

// Flip predicts the local player's flip.
func (that *Memory) Flip(index int) (*entity.MemorySession, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	view := cloneMemory(that.viewLocked())
	if view == nil {
		return nil, ErrNoSession
	}

	if _, err := memory.Flip(view, that.playerID, index, that.now()); err != nil {
		return nil, err
	}

	that.optimistic = view

	return cloneMemory(view), nil
}

func (that *Memory) View() *entity.MemorySession {
	that.mu.Lock()
	defer that.mu.Unlock()

	return cloneMemory(that.viewLocked())
}

func (that *Memory) Authoritative() *entity.MemorySession {
	that.mu.Lock()
	defer that.mu.Unlock()

	return cloneMemory(that.authoritative)
}

func (that *Memory) viewLocked() *entity.MemorySession {
	if that.optimistic != nil {
		return that.optimistic
	}

	return that.authoritative
}

func cloneMemory(session *entity.MemorySession) *entity.MemorySession {
	if session == nil {
		return nil
	}

	clone := *session
	clone.Cards = append([]entity.Card(nil), session.Cards...)
	clone.Matches = append([]entity.Match(nil), session.Matches...)

	if session.Player2 != nil {
		player2 := *session.Player2
		clone.Player2 = &player2
	}

	return &clone
}
