package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
	"github.com/rocketscienceinc/gameroom-backend/testing/suite"
)

func TestSubscriptionUseCase_Subscribe(t *testing.T) {
	ctx, st := suite.New(t)

	// Given: a stored session and a subscriber on it
	useCase := NewTicTacToeUseCase(repository.NewTicTacToeRepository(st.Storage), Options{Logger: st.Logger})
	session, err := useCase.Create(ctx, alice)
	require.NoError(t, err)

	updates := make(chan feed.Update, 4)
	unsubscribe, err := NewSubscriptionUseCase(st.Logger, feed.New(st.Logger, st.Storage)).
		Subscribe(ctx, entity.KindTicTacToe, session.ID, func(update feed.Update) {
			updates <- update
		})
	require.NoError(t, err)

	// When: the second player joins
	joined, err := useCase.Join(ctx, session.ID, bob)
	require.NoError(t, err)

	// Then: the subscriber receives the new revision
	select {
	case update := <-updates:
		assert.Equal(t, joined.Revision, update.Revision)
	case <-time.After(5 * time.Second):
		t.Fatal("no update received")
	}

	// When: the subscriber leaves
	unsubscribe()
	_, err = useCase.Move(ctx, session.ID, "p1", 4)
	require.NoError(t, err)

	// Then: nothing more arrives
	select {
	case update := <-updates:
		t.Fatalf("unexpected update %d", update.Revision)
	case <-time.After(200 * time.Millisecond):
	}
}
