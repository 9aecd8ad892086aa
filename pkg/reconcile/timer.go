package reconcile

import (
	"sync"
	"time"

	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
)

const RematchTimeout = 30 * time.Second

// RematchTimer declines an incoming rematch request nobody answered in time.
type RematchTimer struct {
	mu       sync.Mutex
	playerID string
	after    time.Duration
	decline  func()

	timer       *time.Timer
	requestedBy string
}

func NewRematchTimer(playerID string, after time.Duration, decline func()) *RematchTimer {
	if after <= 0 {
		after = RematchTimeout
	}

	return &RematchTimer{
		playerID: playerID,
		after:    after,
		decline:  decline,
	}
}

// Track arms the timer when the opponent's request shows up in a record and
// disarms it once the request is answered, withdrawn or linked.
func (that *RematchTimer) Track(negotiation entity.Rematch) {
	that.mu.Lock()
	defer that.mu.Unlock()

	incoming := negotiation.RequestedBy != "" &&
		negotiation.RequestedBy != that.playerID &&
		negotiation.SessionID == ""

	if !incoming {
		that.stopLocked()
		return
	}

	if that.timer != nil && that.requestedBy == negotiation.RequestedBy {
		return
	}

	that.stopLocked()
	that.requestedBy = negotiation.RequestedBy

	var timer *time.Timer
	timer = time.AfterFunc(that.after, func() {
		that.mu.Lock()
		if that.timer != timer {
			that.mu.Unlock()
			return
		}
		that.timer = nil
		that.requestedBy = ""
		that.mu.Unlock()

		that.decline()
	})
	that.timer = timer
}

func (that *RematchTimer) Armed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.timer != nil
}

func (that *RematchTimer) Stop() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopLocked()
}

func (that *RematchTimer) stopLocked() {
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	that.requestedBy = ""
}
