package service

import (
	"context"
	"sync"
	"time"

	"portmarket/internal/clock"
	"portmarket/internal/util"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often stale reservations are checked.
const DefaultSweepInterval = 60 * time.Second

// Sweeper periodically reverts expired reservations. It is tied to an owning
// context: Start spawns the ticker loop, Stop (or parent cancellation) ends
// it with no dangling timer. Overlapping ticks are harmless because the
// transition itself re-checks status under the store lock.
type Sweeper struct {
	lifecycle *Lifecycle
	clock     clock.Clock
	interval  time.Duration
	logger    *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSweeper creates a sweeper driving lifecycle.SweepExpired every interval.
func NewSweeper(lifecycle *Lifecycle, clk clock.Clock, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		lifecycle: lifecycle,
		clock:     clk,
		interval:  interval,
		logger:    util.GetLogger(),
	}
}

// Start begins the periodic sweep in the background.
func (s *Sweeper) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("Reservation sweeper started", zap.Duration("interval", s.interval))
}

// Stop cancels the sweep loop and waits for it to exit. Safe to call more
// than once.
func (s *Sweeper) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		s.logger.Info("Reservation sweeper stopped")
	})
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reverted := s.lifecycle.SweepExpired(ctx, s.clock.Now())
			if len(reverted) > 0 {
				s.logger.Info("Sweep reverted stale reservations",
					zap.Strings("listing_ids", reverted))
			}
		}
	}
}
