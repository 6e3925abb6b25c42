// internal/archive/scheduler.go
package archive

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDelay is the grace period between a lobby going fully inactive and
// its durable archive. It exists so page reloads and transient network drops
// do not lose lobby state.
const DefaultDelay = 20 * time.Second

// Scheduler owns one deferred-eviction timer per lobby code. When a timer
// fires it invokes the fire callback, which is expected to re-check that the
// lobby is still inactive before archiving; the pending-timer marker is
// cleared whether or not the archive actually happened.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer

	delay  time.Duration
	fire   func(code string)
	logger *logrus.Logger
}

// NewScheduler returns a scheduler firing fire(code) after delay. A
// non-positive delay falls back to DefaultDelay.
func NewScheduler(delay time.Duration, fire func(code string), logger *logrus.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		delay:  delay,
		fire:   fire,
		logger: logger,
	}
}

// Delay returns the configured archive delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Schedule starts a one-shot archive timer for code. No-op if a timer for
// the code is already pending: at most one outstanding timer per lobby.
func (s *Scheduler) Schedule(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pending := s.timers[code]; pending {
		return
	}
	s.logger.WithField("code", code).Infof("lobby inactive, archiving in %s", s.delay)
	s.timers[code] = time.AfterFunc(s.delay, func() {
		s.expire(code)
	})
}

// Cancel stops a pending timer for code if one exists; no-op otherwise.
// Canceling after the timer has already fired is also a no-op.
func (s *Scheduler) Cancel(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, pending := s.timers[code]; pending {
		timer.Stop()
		delete(s.timers, code)
		s.logger.WithField("code", code).Info("archive canceled")
	}
}

// Pending reports whether a timer is outstanding for code.
func (s *Scheduler) Pending(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, pending := s.timers[code]
	return pending
}

func (s *Scheduler) expire(code string) {
	// Clear the marker first so the callback can reschedule if it wants to.
	s.mu.Lock()
	delete(s.timers, code)
	s.mu.Unlock()

	s.fire(code)
}
