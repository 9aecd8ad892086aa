package memory

import (
	"fmt"
	"math/rand/v2"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

// Dealer lays out a shuffled deck for a grid.
type Dealer interface {
	Deal(grid entity.GridConfig) ([]entity.Card, error)
}

type randomDealer struct{}

func NewRandomDealer() Dealer {
	return randomDealer{}
}

// Deal picks grid.Pairs() distinct faces, paints each pair with one palette color and shuffles.
func (that randomDealer) Deal(grid entity.GridConfig) ([]entity.Card, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}

	faces := make([]entity.Face, len(entity.Faces))
	copy(faces, entity.Faces)
	rand.Shuffle(len(faces), func(i, j int) { faces[i], faces[j] = faces[j], faces[i] })

	cards := make([]entity.Card, 0, grid.Size())
	for i, face := range faces[:grid.Pairs()] {
		color := entity.Palette[i%len(entity.Palette)]
		cards = append(cards,
			entity.Card{Face: face, Color: color},
			entity.Card{Face: face, Color: color},
		)
	}

	rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	for i := range cards {
		cards[i].ID = i
	}

	return cards, nil
}

// ValidateDeal rejects a deck that doesn't fit the grid, carries an unknown face,
// holds a face other than exactly twice or starts with a revealed card.
func ValidateDeal(grid entity.GridConfig, cards []entity.Card) error {
	if len(cards) != grid.Size() {
		return fmt.Errorf("%w: %d cards for a %dx%d grid", apperror.ErrInvalidDeal, len(cards), grid.Rows, grid.Cols)
	}

	counts := make(map[entity.Face]int, grid.Pairs())
	for i, card := range cards {
		if !card.Face.Valid() {
			return fmt.Errorf("%w: unknown face %q", apperror.ErrInvalidDeal, card.Face)
		}

		if card.ID != i {
			return fmt.Errorf("%w: card %d has id %d", apperror.ErrInvalidDeal, i, card.ID)
		}

		if card.IsFlipped || card.IsMatched {
			return fmt.Errorf("%w: card %d is already revealed", apperror.ErrInvalidDeal, i)
		}

		counts[card.Face]++
	}

	for face, count := range counts {
		if count != 2 {
			return fmt.Errorf("%w: face %s appears %d times", apperror.ErrInvalidDeal, face, count)
		}
	}

	return nil
}
