package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

var ErrPlayerNotFound = fmt.Errorf("%w: player not found", apperror.ErrNotFound)

// playerTTL drops players who have not sat down for a month.
const playerTTL = 30 * 24 * time.Hour

// PlayerRegistry keeps the nickname each player id last sat down with, so a
// returning client can create or join by id alone.
type PlayerRegistry struct {
	client *redis.Client
}

func NewPlayerRegistry(client *redis.Client) *PlayerRegistry {
	return &PlayerRegistry{
		client: client,
	}
}

func playerKey(id string) string {
	return "player:" + id
}

// Remember stores the nickname and the time it was seen, refreshing the expiry.
func (that *PlayerRegistry) Remember(ctx context.Context, player entity.Player, seenAt time.Time) error {
	key := playerKey(player.ID)

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "nickname", player.Nickname, "seen_at", seenAt.Unix())
		pipe.Expire(ctx, key, playerTTL)

		return nil
	})
	if err != nil {
		return apperror.Persistence("remember player", err)
	}

	return nil
}

func (that *PlayerRegistry) Lookup(ctx context.Context, id string) (*entity.Player, error) {
	nickname, err := that.client.HGet(ctx, playerKey(id), "nickname").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, apperror.Persistence("lookup player", err)
	}

	return &entity.Player{ID: id, Nickname: nickname}, nil
}
