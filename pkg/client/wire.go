package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const (
	actionSubscribe = "session:subscribe"
	actionUpdated   = "session:updated"
)

type envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type request struct {
	Game      entity.Kind `json:"game"`
	SessionID string      `json:"session_id,omitempty"`
}

type reply struct {
	Game         entity.Kind     `json:"game"`
	SessionID    string          `json:"session_id"`
	Session      json.RawMessage `json:"session"`
	NewSessionID string          `json:"new_session_id"`
	Error        string          `json:"error"`
	Code         apperror.Kind   `json:"code"`
}

// ReplyError is a failure reported by the server. It matches the apperror
// category named by its code, so errors.Is(err, apperror.ErrIllegalMove) works.
type ReplyError struct {
	Code    apperror.Kind
	Message string
}

func (that *ReplyError) Error() string {
	return fmt.Sprintf("%s: %s", that.Code, that.Message)
}

func (that *ReplyError) Unwrap() error {
	switch that.Code {
	case apperror.KindValidation:
		return apperror.ErrValidation
	case apperror.KindNotFound:
		return apperror.ErrNotFound
	case apperror.KindTurnViolation:
		return apperror.ErrTurnViolation
	case apperror.KindIllegalMove:
		return apperror.ErrIllegalMove
	case apperror.KindStateConflict:
		return apperror.ErrStateConflict
	case apperror.KindPersistence:
		return apperror.ErrPersistence
	case apperror.KindInternal:
		return nil
	default:
		return nil
	}
}

var errMalformedReply = errors.New("malformed reply")

func decodeReply(message envelope) (*reply, error) {
	var body reply
	if err := json.Unmarshal(message.Payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedReply, err)
	}

	if body.Error != "" {
		return nil, &ReplyError{Code: body.Code, Message: body.Error}
	}

	return &body, nil
}
