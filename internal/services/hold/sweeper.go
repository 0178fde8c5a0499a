package hold

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drives EXPIRE transitions on a fixed cadence.
type Sweeper struct {
	manager  Manager
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper creates a sweeper over the given manager. A non-positive
// interval falls back to one hour.
func NewSweeper(manager Manager, interval time.Duration, logger *zap.Logger) *Sweeper {
	if manager == nil {
		panic("hold manager is required")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) (processed, failed int) {
	s.logger.Info("starting expired holds sweep")
	processed, failed, err := s.manager.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("expired holds sweep failed", zap.Error(err))
		return 0, 0
	}
	s.logger.Info("completed expired holds sweep",
		zap.Int("processed", processed),
		zap.Int("failed", failed),
	)
	return processed, failed
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
