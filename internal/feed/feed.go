// Package feed delivers committed session records to subscribers over redis pub/sub.
// Delivery is at-most-once per subscriber: a subscriber that needs certainty
// re-fetches the record and drops anything whose revision it has already seen.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const updatesBuffer = 16

// Channel is the pub/sub channel carrying every committed revision of one session.
func Channel(kind entity.Kind, id string) string {
	return fmt.Sprintf("session-updates:%s:%s", kind, id)
}

// Update is one committed revision of a session record.
type Update struct {
	Kind      entity.Kind     `json:"kind"`
	SessionID string          `json:"session_id"`
	Revision  int64           `json:"revision"`
	Record    json.RawMessage `json:"record"`
}

type Feed struct {
	logger *slog.Logger
	client *redis.Client
}

func New(logger *slog.Logger, client *redis.Client) *Feed {
	return &Feed{
		logger: logger.With("component", "feed"),
		client: client,
	}
}

// Subscription streams updates for a single session until Close is called or
// the context used to open it is canceled.
type Subscription struct {
	Updates <-chan Update

	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe opens a scoped subscription. The subscription is confirmed by redis
// before Subscribe returns, so any write committed afterwards is delivered.
func (that *Feed) Subscribe(ctx context.Context, kind entity.Kind, id string) (*Subscription, error) {
	channel := Channel(kind, id)

	pubsub := that.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan Update, updatesBuffer)

	sub := &Subscription{
		Updates: updates,
		pubsub:  pubsub,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go that.forward(ctx, kind, id, pubsub.Channel(), updates, sub.done)

	return sub, nil
}

func (that *Feed) forward(
	ctx context.Context,
	kind entity.Kind,
	id string,
	messages <-chan *redis.Message,
	updates chan<- Update,
	done chan<- struct{},
) {
	log := that.logger.With("method", "forward", "kind", kind, "session_id", id)

	defer close(done)
	defer close(updates)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			update, err := decode(kind, id, msg.Payload)
			if err != nil {
				log.Warn("skipping malformed update", "error", err)
				continue
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

func decode(kind entity.Kind, id, payload string) (Update, error) {
	var header struct {
		Revision int64 `json:"revision"`
	}

	if err := json.Unmarshal([]byte(payload), &header); err != nil {
		return Update{}, fmt.Errorf("failed to unmarshal update: %w", err)
	}

	return Update{
		Kind:      kind,
		SessionID: id,
		Revision:  header.Revision,
		Record:    json.RawMessage(payload),
	}, nil
}

// Close tears the subscription down and waits for the Updates channel to close.
func (that *Subscription) Close() error {
	var err error

	that.once.Do(func() {
		that.cancel()
		err = that.pubsub.Close()
		<-that.done
	})

	return err
}
