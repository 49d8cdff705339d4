package service

import (
	"context"
	"log"
	"sync"
	"time"
)

// AccountRefresher is the part of the syncer the scheduler drives.
type AccountRefresher interface {
	Refresh(ctx context.Context) error
	Refreshing() bool
}

// RefreshConfig holds configuration for the refresh scheduler.
type RefreshConfig struct {
	// Interval is how often the account is re-fetched.
	// Default: 30 seconds
	Interval time.Duration

	// Timeout bounds a single refresh.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultRefreshConfig returns default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval: 30 * time.Second,
		Timeout:  2 * time.Minute,
	}
}

// RefreshScheduler periodically re-fetches the account state.
type RefreshScheduler struct {
	syncer    AccountRefresher
	config    RefreshConfig
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewRefreshScheduler creates a new refresh scheduler.
func NewRefreshScheduler(syncer AccountRefresher, config RefreshConfig) *RefreshScheduler {
	defaults := DefaultRefreshConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &RefreshScheduler{
		syncer: syncer,
		config: config,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the refresh loop. The first refresh runs immediately.
func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	log.Printf("[RefreshScheduler] Started - Interval: %v", s.config.Interval)

	go s.run()
}

// run is the main refresh loop.
func (s *RefreshScheduler) run() {
	defer close(s.doneCh)

	s.tick()
	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stopCh:
			log.Printf("[RefreshScheduler] Stopped")
			return
		}
	}
}

// tick refreshes unless a refresh is already running.
func (s *RefreshScheduler) tick() {
	if s.syncer.Refreshing() {
		log.Printf("[RefreshScheduler] Refresh already running, skipping tick")
		return
	}
	if err := s.RunNow(); err != nil {
		log.Printf("[RefreshScheduler] Error during refresh: %v", err)
	}
}

// Stop stops the scheduler and waits for a running tick to finish.
func (s *RefreshScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()

		if running {
			<-s.doneCh
		}
	})
}

// RunNow triggers an immediate refresh.
func (s *RefreshScheduler) RunNow() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	return s.syncer.Refresh(ctx)
}
