// Package scheduler triggers provider refreshes on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
)

// ErrAlreadyRunning is returned when trying to start a running scheduler
var ErrAlreadyRunning = errors.New("scheduler already running")

// DefaultInterval is the default time between provider refreshes
const DefaultInterval = 5 * time.Minute

// Refresher is the scheduled work. Refreshes serialize internally, so
// an overlapping trigger waits rather than running concurrently.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Config holds scheduler configuration
type Config struct {
	// Interval is how often to trigger a refresh
	Interval time.Duration
}

// Scheduler runs the refresh loop
type Scheduler struct {
	refresher Refresher
	config    Config
	logger    ectologger.Logger

	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewScheduler creates a new scheduler
func NewScheduler(refresher Refresher, config Config, logger ectologger.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &Scheduler{
		refresher: refresher,
		config:    config,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedC:  make(chan struct{}),
	}
}

// Start starts the refresh loop. The first refresh is the provider's own
// on-connect run; this loop only handles subsequent ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting scheduler: interval=%s", s.config.Interval)

	go s.loop(ctx)

	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Scheduler loop stopping")
			return
		case <-ticker.C:
			s.refresher.Refresh(ctx)
		}
	}
}
