// Package client follows a session from the player's side: a live feed over
// the socket while it holds, HTTP polling while it does not.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const DefaultPollInterval = 2 * time.Second

var errFeedLost = errors.New("feed lost")

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusLive       Status = "live"
	StatusPolling    Status = "polling"
	StatusClosed     Status = "closed"
)

type Options struct {
	// SocketURL is the websocket endpoint, e.g. ws://localhost:9091/ws.
	SocketURL string
	// HTTPURL is the REST base, e.g. http://localhost:9090.
	HTTPURL      string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
	// NewBackOff schedules feed reconnects. Defaults to an unbounded exponential backoff.
	NewBackOff func() backoff.BackOff
	OnStatus   func(Status)
}

type Watcher struct {
	options Options
}

func NewWatcher(options Options) *Watcher {
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultPollInterval
	}

	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if options.NewBackOff == nil {
		options.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0

			return b
		}
	}

	return &Watcher{options: options}
}

// View is one followed session.
type View struct {
	options  Options
	logger   *slog.Logger
	kind     entity.Kind
	id       string
	onRecord func(json.RawMessage)

	mu     sync.Mutex
	status Status

	cancel context.CancelFunc
	done   chan struct{}
}

// Watch follows the session until ctx is canceled or the view is closed.
// onRecord gets every record pushed or fetched, possibly more than once;
// callers deduplicate by revision.
func (that *Watcher) Watch(ctx context.Context, kind entity.Kind, id string, onRecord func(json.RawMessage)) *View {
	ctx, cancel := context.WithCancel(ctx)

	view := &View{
		options:  that.options,
		logger:   that.options.Logger.With("component", "client", "game", kind, "session_id", id),
		kind:     kind,
		id:       id,
		onRecord: onRecord,
		status:   StatusConnecting,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go view.run(ctx)

	return view
}

func (that *View) Status() Status {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.status
}

func (that *View) Done() <-chan struct{} {
	return that.done
}

func (that *View) Close() {
	that.cancel()
	<-that.done
}

func (that *View) setStatus(status Status) {
	that.mu.Lock()
	changed := that.status != status
	that.status = status
	that.mu.Unlock()

	if changed {
		that.logger.Debug("status changed", "status", status)

		if that.options.OnStatus != nil {
			that.options.OnStatus(status)
		}
	}
}

func (that *View) run(ctx context.Context) {
	defer close(that.done)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		that.poll(ctx)
	}()

	b := backoff.WithContext(that.options.NewBackOff(), ctx)

	_ = backoff.RetryNotify(func() error {
		err := that.follow(ctx, b)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		return err
	}, b, func(err error, next time.Duration) {
		that.logger.Debug("feed unavailable, polling", "error", err, "retry_in", next.String())
		that.setStatus(StatusPolling)
	})

	wg.Wait()
	that.setStatus(StatusClosed)
}

// follow subscribes over a fresh socket and forwards pushes until the feed
// drops. The subscribe reply carries the current record, which resyncs the
// caller after an outage.
func (that *View) follow(ctx context.Context, b backoff.BackOff) error {
	conn, _, err := websocket.Dial(ctx, that.options.SocketURL, &websocket.DialOptions{
		HTTPClient: that.options.HTTPClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	payload, err := json.Marshal(request{Game: that.kind, SessionID: that.id})
	if err != nil {
		return fmt.Errorf("failed to marshal subscribe: %w", err)
	}

	if err = wsjson.Write(ctx, conn, envelope{Action: actionSubscribe, Payload: payload}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	for {
		var message envelope
		if err = wsjson.Read(ctx, conn, &message); err != nil {
			return fmt.Errorf("%w: %w", errFeedLost, err)
		}

		switch message.Action {
		case actionSubscribe:
			body, err := decodeReply(message)
			if err != nil {
				return fmt.Errorf("subscribe refused: %w", err)
			}

			that.setStatus(StatusLive)
			b.Reset()
			that.deliver(body.Session)
		case actionUpdated:
			body, err := decodeReply(message)
			if err != nil || body.SessionID != that.id {
				continue
			}

			that.deliver(body.Session)
		}
	}
}

func (that *View) poll(ctx context.Context) {
	ticker := time.NewTicker(that.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if that.Status() != StatusPolling {
				continue
			}

			record, err := that.fetch(ctx)
			if err != nil {
				that.logger.Debug("poll failed", "error", err)
				continue
			}

			that.deliver(record)
		}
	}
}

func (that *View) fetch(ctx context.Context) (json.RawMessage, error) {
	endpoint, err := url.JoinPath(that.options.HTTPURL, "sessions", string(that.kind), that.id)
	if err != nil {
		return nil, fmt.Errorf("failed to build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := that.options.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch session: status %d", resp.StatusCode)
	}

	return body, nil
}

func (that *View) deliver(record json.RawMessage) {
	if len(record) == 0 || that.onRecord == nil {
		return
	}

	that.onRecord(record)
}
