package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
)

type changeFeed interface {
	Subscribe(ctx context.Context, kind entity.Kind, id string) (*feed.Subscription, error)
}

type SubscriptionUseCase interface {
	// Subscribe calls onChange with every committed revision of the session
	// until the returned unsubscribe func is called or ctx ends.
	Subscribe(ctx context.Context, kind entity.Kind, id string, onChange func(feed.Update)) (func(), error)
}

type subscriptions struct {
	logger *slog.Logger
	feed   changeFeed
}

func NewSubscriptionUseCase(logger *slog.Logger, feed changeFeed) SubscriptionUseCase {
	return &subscriptions{
		logger: logger.With("component", "subscriptions"),
		feed:   feed,
	}
}

func (that *subscriptions) Subscribe(
	ctx context.Context,
	kind entity.Kind,
	id string,
	onChange func(feed.Update),
) (func(), error) {
	sub, err := that.feed.Subscribe(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	go func() {
		for update := range sub.Updates {
			onChange(update)
		}
	}()

	return func() {
		if err := sub.Close(); err != nil {
			that.logger.Debug("could not close subscription", "kind", kind, "session_id", id, "error", err)
		}
	}, nil
}
