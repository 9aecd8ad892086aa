package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls atomic.Int32
	err   error
}

func (that *countingResolver) ResolveExpired(context.Context) (int, error) {
	that.calls.Add(1)
	return 1, that.err
}

func TestSweeper(t *testing.T) {
	t.Run("Runs on schedule until stopped", func(t *testing.T) {
		// Given: a sweeper with a short interval
		resolver := &countingResolver{}
		sweeper, err := NewSweeper(slog.Default(), resolver, 10*time.Millisecond)
		require.NoError(t, err)

		// When: it is started
		require.NoError(t, sweeper.Start(context.Background()))

		// Then: the resolver is called repeatedly
		assert.Eventually(t, func() bool {
			return resolver.calls.Load() >= 2
		}, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, sweeper.Stop())
	})

	t.Run("Canceled context skips the sweep", func(t *testing.T) {
		resolver := &countingResolver{}
		sweeper, err := NewSweeper(slog.Default(), resolver, 0)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sweeper.Sweep(ctx)

		assert.Zero(t, resolver.calls.Load())
		assert.Equal(t, DefaultSweepInterval, sweeper.interval)
	})

	t.Run("Errors are logged, not raised", func(t *testing.T) {
		resolver := &countingResolver{err: errors.New("redis down")}
		sweeper, err := NewSweeper(slog.Default(), resolver, time.Second)
		require.NoError(t, err)

		sweeper.Sweep(context.Background())

		assert.Equal(t, int32(1), resolver.calls.Load())
	})
}
