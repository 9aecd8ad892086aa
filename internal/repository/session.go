package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
)

const (
	fieldStatus   = "status"
	fieldCurrent  = "current_player_id"
	fieldRevision = "revision"
	fieldData     = "data"
)

// Record is a session type the repository can store.
type Record interface {
	entity.TicTacToeSession | entity.MemorySession

	SessionID() string
	SessionKind() entity.Kind
	Guard() entity.Guard
}

type SessionRepository[T Record] interface {
	GetByID(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, rec *T) error
	// UpdateIf stores rec only if the stored record still matches expected,
	// and publishes it on the session's change channel in the same transaction.
	UpdateIf(ctx context.Context, expected entity.Guard, rec *T) error
	// PendingResets lists sessions holding an unresolved mismatched pair.
	PendingResets(ctx context.Context) ([]string, error)
	// Delete drops a session and its pending-reset entry. A missing id is not an error.
	Delete(ctx context.Context, id string) error
}

type dbSession[T Record] struct {
	client *redis.Client
	kind   entity.Kind
}

func NewSessionRepository[T Record](client *redis.Client) SessionRepository[T] {
	var zero T

	return &dbSession[T]{
		client: client,
		kind:   zero.SessionKind(),
	}
}

func NewTicTacToeRepository(client *redis.Client) SessionRepository[entity.TicTacToeSession] {
	return NewSessionRepository[entity.TicTacToeSession](client)
}

func NewMemoryRepository(client *redis.Client) SessionRepository[entity.MemorySession] {
	return NewSessionRepository[entity.MemorySession](client)
}

func sessionKey(kind entity.Kind, id string) string {
	return fmt.Sprintf("session:%s:%s", kind, id)
}

func pendingResetsKey(kind entity.Kind) string {
	return fmt.Sprintf("pending-resets:%s", kind)
}

func (that *dbSession[T]) GetByID(ctx context.Context, id string) (*T, error) {
	response, err := that.client.HGet(ctx, sessionKey(that.kind, id), fieldData).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrSessionNotFound
	}

	if err != nil {
		return nil, apperror.Persistence("get session", err)
	}

	var existing T
	if err = json.Unmarshal([]byte(response), &existing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &existing, nil
}

func (that *dbSession[T]) Insert(ctx context.Context, rec *T) error {
	id := (*rec).SessionID()
	key := sessionKey(that.kind, id)

	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return apperror.Persistence("check session", err)
		}

		if exists > 0 {
			return apperror.ErrSessionExists
		}

		return that.write(ctx, tx, rec)
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrSessionExists
	}

	return err
}

func (that *dbSession[T]) UpdateIf(ctx context.Context, expected entity.Guard, rec *T) error {
	id := (*rec).SessionID()
	key := sessionKey(that.kind, id)

	err := that.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HMGet(ctx, key, fieldStatus, fieldCurrent, fieldRevision).Result()
		if err != nil {
			return apperror.Persistence("read guard", err)
		}

		guard, found := parseGuard(stored)
		if !found {
			return apperror.ErrSessionNotFound
		}

		if guard != expected {
			return apperror.ErrStaleState
		}

		return that.write(ctx, tx, rec)
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return apperror.ErrStaleState
	}

	return err
}

// write queues the record, its change notification and the pending-reset index
// update in one MULTI/EXEC.
func (that *dbSession[T]) write(ctx context.Context, tx *redis.Tx, rec *T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("could not marshal session: %w", err)
	}

	id := (*rec).SessionID()
	guard := (*rec).Guard()

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(that.kind, id),
			fieldStatus, string(guard.Status),
			fieldCurrent, guard.CurrentPlayerID,
			fieldRevision, guard.Revision,
			fieldData, data,
		)

		if pending, ok := any(rec).(interface{ HasPendingMismatch() bool }); ok {
			if pending.HasPendingMismatch() {
				pipe.SAdd(ctx, pendingResetsKey(that.kind), id)
			} else {
				pipe.SRem(ctx, pendingResetsKey(that.kind), id)
			}
		}

		pipe.Publish(ctx, feed.Channel(that.kind, id), data)

		return nil
	})
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return err
		}

		return apperror.Persistence("write session", err)
	}

	return nil
}

func parseGuard(values []any) (entity.Guard, bool) {
	if len(values) != 3 {
		return entity.Guard{}, false
	}

	status, ok := values[0].(string)
	if !ok {
		return entity.Guard{}, false
	}

	current, _ := values[1].(string)
	rawRevision, _ := values[2].(string)

	revision, err := strconv.ParseInt(rawRevision, 10, 64)
	if err != nil {
		return entity.Guard{}, false
	}

	return entity.Guard{
		Status:          entity.Status(status),
		CurrentPlayerID: current,
		Revision:        revision,
	}, true
}

func (that *dbSession[T]) PendingResets(ctx context.Context) ([]string, error) {
	ids, err := that.client.SMembers(ctx, pendingResetsKey(that.kind)).Result()
	if err != nil {
		return nil, apperror.Persistence("list pending resets", err)
	}

	return ids, nil
}

func (that *dbSession[T]) Delete(ctx context.Context, id string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(that.kind, id))
		pipe.SRem(ctx, pendingResetsKey(that.kind), id)

		return nil
	})
	if err != nil {
		return apperror.Persistence("delete session", err)
	}

	return nil
}
