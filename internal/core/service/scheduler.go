package service

import (
	"errors"
	"sync"
	"time"
)

// errSchedulerRunning is returned by Start on an armed scheduler.
var errSchedulerRunning = errors.New("scheduler: already running")

// Scheduler delivers periodic ticks. Start and Stop are its only control
// surface. Ticks are delivered serially and never overlap.
type Scheduler interface {
	// Start arms the scheduler to call fn every interval.
	Start(interval time.Duration, fn func()) error

	// Stop disarms the scheduler and blocks until any in-flight fn returns.
	// It must not be called from fn. Stop on a disarmed scheduler is a no-op.
	Stop()
}

// TickerScheduler is a Scheduler backed by a single goroutine and a
// time.Ticker. It can be re-armed after Stop.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerScheduler creates a disarmed scheduler.
func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Start implements Scheduler.
func (s *TickerScheduler) Start(interval time.Duration, fn func()) error {
	if interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return errSchedulerRunning
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(interval, fn, s.stop, s.done)
	return nil
}

func (s *TickerScheduler) run(interval time.Duration, fn func(), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Prefer stop over a tick that became ready at the same time.
			select {
			case <-stop:
				return
			default:
			}
			fn()
		}
	}
}

// Stop implements Scheduler.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the scheduler is armed.
func (s *TickerScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}
