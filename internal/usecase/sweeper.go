package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const DefaultSweepInterval = time.Second

type expiredResolver interface {
	ResolveExpired(ctx context.Context) (int, error)
}

// Sweeper periodically clears mismatched pairs nobody asked to reset,
// so an abandoned turn still passes to the other player.
type Sweeper struct {
	logger    *slog.Logger
	resolver  expiredResolver
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewSweeper(logger *slog.Logger, resolver expiredResolver, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("could not create scheduler: %w", err)
	}

	return &Sweeper{
		logger:    logger.With("component", "sweeper"),
		resolver:  resolver,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start schedules the sweep job. It runs until ctx is canceled or Stop is called.
func (that *Sweeper) Start(ctx context.Context) error {
	_, err := that.scheduler.NewJob(
		gocron.DurationJob(that.interval),
		gocron.NewTask(func() {
			that.Sweep(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("could not schedule sweep: %w", err)
	}

	that.scheduler.Start()
	that.logger.Info("Sweeper started", "interval", that.interval.String())

	return nil
}

func (that *Sweeper) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	resolved, err := that.resolver.ResolveExpired(ctx)
	if err != nil {
		that.logger.Error("sweep failed", "error", err)
		return
	}

	if resolved > 0 {
		that.logger.Debug("expired mismatches resolved", "count", resolved)
	}
}

func (that *Sweeper) Stop() error {
	if err := that.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("could not stop scheduler: %w", err)
	}

	return nil
}
