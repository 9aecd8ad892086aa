package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Specific errors map to their category", func(t *testing.T) {
		// Given: errors from every category, some wrapped with context
		cases := []struct {
			err  error
			kind Kind
		}{
			{ErrMissingPlayer, KindValidation},
			{fmt.Errorf("failed to get: %w", ErrSessionNotFound), KindNotFound},
			{ErrNotYourTurn, KindTurnViolation},
			{fmt.Errorf("invalid turn: %w", ErrCellOccupied), KindIllegalMove},
			{ErrRevealWindowOpen, KindStateConflict},
			{Persistence("get session", errors.New("boom")), KindPersistence},
		}

		for _, tc := range cases {
			// When: classifying the error
			kind := KindOf(tc.err)

			// Then: the category code is returned
			assert.Equal(t, tc.kind, kind, tc.err.Error())
		}
	})

	t.Run("Unknown errors are internal", func(t *testing.T) {
		// Given: an error outside the taxonomy
		err := errors.New("something else")

		// When: classifying it
		kind := KindOf(err)

		// Then: it is reported as internal
		assert.Equal(t, KindInternal, kind)
	})

	t.Run("Persistence keeps the cause", func(t *testing.T) {
		// Given: a store failure
		cause := errors.New("connection refused")

		// When: wrapping it
		err := Persistence("update session", cause)

		// Then: both the category and the cause are reachable
		assert.ErrorIs(t, err, ErrPersistence)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "update session")
	})
}
