/*
scheduler.go - Daily expiry scheduler

PURPOSE:
  Runs ExpireAll once per day at a configured local time. Owns the only
  wall-clock read in the package.

DESIGN:
  - Single background goroutine with a stop channel and WaitGroup
  - Start is idempotent: a second call while running is a no-op, so a
    supervisor that re-runs init cannot spawn a duplicate loop
  - A failed run is logged and the loop continues; the scheduler never
    terminates on its own

USAGE:
  sched := booking.NewExpiryScheduler(engine, booking.ClockTime{Hour: 18}, loc)
  sched.Start()
  // ... on shutdown
  sched.Stop()
*/
package booking

import (
	"context"
	"log"
	"sync"
	"time"
)

// ExpiryScheduler invokes Engine.ExpireAll once per day at At (local to
// Location).
type ExpiryScheduler struct {
	Engine   *Engine
	At       ClockTime
	Location *time.Location

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewExpiryScheduler creates a scheduler. It does not start it.
func NewExpiryScheduler(engine *Engine, at ClockTime, loc *time.Location) *ExpiryScheduler {
	return &ExpiryScheduler{Engine: engine, At: at, Location: loc}
}

// Start launches the background loop. No-op if already running.
func (s *ExpiryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Println("[Scheduler] Already running, ignoring Start")
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started, daily expiry at %s (%s)", s.At, s.Location)
}

// Stop halts the loop and waits for it to exit. No-op if not running.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.running = false
	log.Println("[Scheduler] Stopped")
}

// Running reports whether the background loop is active.
func (s *ExpiryScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow triggers one expiry pass immediately (admin/test hook).
func (s *ExpiryScheduler) RunNow() {
	s.runOnce(time.Now())
}

func (s *ExpiryScheduler) run() {
	defer s.wg.Done()

	for {
		next := s.NextRun(time.Now())
		log.Printf("[Scheduler] Next expiry run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.runOnce(time.Now())
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

func (s *ExpiryScheduler) runOnce(now time.Time) {
	count, err := s.Engine.ExpireAll(context.Background(), now)
	if err != nil {
		log.Printf("[Scheduler] Expiry run failed: %v", err)
		return
	}
	log.Printf("[Scheduler] Expired %d reservations", count)
}

// NextRun returns the next trigger instant after now: today at the
// configured time if that is still ahead, otherwise tomorrow.
func (s *ExpiryScheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.At.Hour, s.At.Minute, 0, 0, s.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
