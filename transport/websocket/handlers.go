package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/feed"
	"github.com/rocketscienceinc/gameroom-backend/internal/usecase"
)

func decodePayload(message *Message) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrBadPayload, err)
	}

	if _, err := entity.ParseKind(string(payload.Game)); err != nil {
		return nil, err
	}

	return &payload, nil
}

func (that *Payload) requireSession() error {
	if that.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", apperror.ErrBadPayload)
	}

	return nil
}

func (that *Payload) requirePlayer() (entity.Player, error) {
	if that.Player == nil {
		return entity.Player{}, apperror.ErrMissingPlayer
	}

	return *that.Player, nil
}

// actor is the player behind an intent, taken from player_id or the player object.
func (that *Payload) actor() (string, error) {
	switch {
	case that.PlayerID != "":
		return that.PlayerID, nil
	case that.Player != nil && that.Player.ID != "":
		return that.Player.ID, nil
	default:
		return "", apperror.ErrMissingPlayer
	}
}

func (that *Server) reply(client *connection, action string, kind entity.Kind, session usecase.Session, newSessionID string) {
	client.enqueue(Message{
		Action: action,
		Payload: mustMarshal(ResponsePayload{
			Game:         kind,
			SessionID:    session.SessionID(),
			Session:      session,
			NewSessionID: newSessionID,
		}),
	})
}

func (that *Server) sendError(client *connection, action string, err error) {
	client.enqueue(Message{
		Action: action,
		Payload: mustMarshal(ResponsePayload{
			Error: err.Error(),
			Code:  apperror.KindOf(err),
		}),
	})
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}

func (that *Server) handleCreate(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	player, err := payload.requirePlayer()
	if err != nil {
		return err
	}

	var grid entity.GridConfig
	if payload.Grid != nil {
		grid = *payload.Grid
	}

	session, err := that.games.Create(ctx, payload.Game, player, grid)
	if err != nil {
		return err
	}

	that.reply(client, message.Action, payload.Game, session, "")

	return nil
}

func (that *Server) handleJoin(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	player, err := payload.requirePlayer()
	if err != nil {
		return err
	}

	session, err := that.games.Join(ctx, payload.Game, payload.SessionID, player)
	if err != nil {
		return err
	}

	that.reply(client, message.Action, payload.Game, session, "")

	return nil
}

func (that *Server) handleGet(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	session, err := that.games.Get(ctx, payload.Game, payload.SessionID)
	if err != nil {
		return err
	}

	that.reply(client, message.Action, payload.Game, session, "")

	return nil
}

// handlePlay serves both game:move (cell) and game:flip (card).
func (that *Server) handlePlay(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	playerID, err := payload.actor()
	if err != nil {
		return err
	}

	index := payload.Cell
	if message.Action == ActionFlip {
		index = payload.Card
	}

	if index == nil {
		return fmt.Errorf("%w: cell or card is required", apperror.ErrBadPayload)
	}

	session, err := that.games.Play(ctx, payload.Game, payload.SessionID, playerID, *index)
	if err != nil {
		return err
	}

	that.reply(client, message.Action, payload.Game, session, "")

	return nil
}

func (that *Server) handleReset(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	playerID, err := payload.actor()
	if err != nil {
		return err
	}

	session, err := that.games.Reset(ctx, payload.Game, payload.SessionID, playerID)
	if err != nil {
		return err
	}

	that.reply(client, message.Action, payload.Game, session, "")

	return nil
}

func (that *Server) rematchHandler(step usecase.RematchStep) handlerFunc {
	return func(ctx context.Context, client *connection, message *Message) error {
		payload, err := decodePayload(message)
		if err != nil {
			return err
		}

		if err = payload.requireSession(); err != nil {
			return err
		}

		playerID, err := payload.actor()
		if err != nil {
			return err
		}

		session, newSessionID, err := that.games.Rematch(ctx, payload.Game, step, payload.SessionID, playerID)
		if err != nil {
			return err
		}

		that.reply(client, message.Action, payload.Game, session, newSessionID)

		return nil
	}
}

// handleSubscribe pushes every committed revision of the session to this
// connection, starting with the current record so nothing is missed.
func (that *Server) handleSubscribe(ctx context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	kind, id := payload.Game, payload.SessionID

	unsubscribe, err := that.subscriptions.Subscribe(ctx, kind, id, func(update feed.Update) {
		client.enqueue(Message{
			Action: ActionUpdated,
			Payload: mustMarshal(ResponsePayload{
				Game:      kind,
				SessionID: id,
				Session:   update.Record,
			}),
		})
	})
	if err != nil {
		return err
	}

	client.subscribe(subscriptionKey(kind, id), unsubscribe)

	session, err := that.games.Get(ctx, kind, id)
	if err != nil {
		client.unsubscribe(subscriptionKey(kind, id))
		return err
	}

	that.reply(client, message.Action, kind, session, "")

	return nil
}

func (that *Server) handleUnsubscribe(_ context.Context, client *connection, message *Message) error {
	payload, err := decodePayload(message)
	if err != nil {
		return err
	}

	if err = payload.requireSession(); err != nil {
		return err
	}

	client.unsubscribe(subscriptionKey(payload.Game, payload.SessionID))

	client.enqueue(Message{
		Action: message.Action,
		Payload: mustMarshal(ResponsePayload{
			Game:      payload.Game,
			SessionID: payload.SessionID,
		}),
	})

	return nil
}
