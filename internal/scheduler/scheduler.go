package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/jlmoray/stationwatch/internal/poll"
)

// Scheduler runs the poll engine on the configured download interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	engine    *poll.Engine
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler. timeout bounds one cycle; the engine checks
// cancellation between locations.
func New(engine *poll.Engine, interval, timeout time.Duration, logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		engine:    engine,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first cycle runs immediately.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).StartImmediately().Do(func() {
		cycleCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		s.logger.Debug().Msg("running scheduled poll cycle")
		if err := s.engine.RunCycle(cycleCtx, time.Now()); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Msg("poll cycle aborted")
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop cancels any running cycle and stops the scheduler.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
