package turn

import (
	"sync"
	"time"
)

// tickInterval is the countdown resolution. Remaining time is derived
// from the start timestamp on every tick, so a delayed tick cannot drift
// the clock.
const tickInterval = 100 * time.Millisecond

// ShouldAwardSpeedBonus reports whether a score committed with
// remainingSeconds left on the clock earns the blitz speed bonus: true
// only inside the leading windowSeconds of a totalSeconds countdown.
//
// Postcondition: Pure; ShouldAwardSpeedBonus(total, total, window) is
// always true when window >= 0.
func ShouldAwardSpeedBonus(remainingSeconds, totalSeconds, windowSeconds float64) bool {
	return remainingSeconds >= totalSeconds-windowSeconds
}

// BlitzTimer is the per-turn blitz countdown. It exists only while a
// blitz turn is active and fires onExpire exactly once when the countdown
// reaches zero, unless stopped first. It is safe for concurrent use.
type BlitzTimer struct {
	mu        sync.Mutex
	startedAt time.Time
	total     time.Duration
	window    time.Duration
	stopped   bool
	done      chan struct{}
}

// NewBlitzTimer creates and starts a countdown of total seconds.
// onExpire is called on a separate goroutine when the countdown hits
// zero; a stopped timer never begins a new expiry.
//
// Precondition: total > 0; 0 <= window <= total; onExpire must not be nil.
// Postcondition: Returns a running timer.
func NewBlitzTimer(total, window time.Duration, onExpire func()) *BlitzTimer {
	return ResumeBlitzTimer(total, window, 0, onExpire)
}

// ResumeBlitzTimer starts a countdown that behaves as if it had already
// run for elapsed. A paused game restored mid-turn keeps its clock, and
// the bonus window does not reopen.
//
// Precondition: 0 <= elapsed < total; remaining preconditions as for
// NewBlitzTimer.
func ResumeBlitzTimer(total, window, elapsed time.Duration, onExpire func()) *BlitzTimer {
	t := &BlitzTimer{
		startedAt: time.Now().Add(-elapsed),
		total:     total,
		window:    window,
		done:      make(chan struct{}),
	}
	go t.run(onExpire)
	return t
}

func (t *BlitzTimer) run(onExpire func()) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			expired := !t.stopped && time.Since(t.startedAt) >= t.total
			if expired {
				t.stopped = true
				close(t.done)
			}
			t.mu.Unlock()
			if expired {
				onExpire()
				return
			}
		case <-t.done:
			return
		}
	}
}

// Remaining returns the seconds left on the countdown, never below 0.
func (t *BlitzTimer) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	left := t.total - time.Since(t.startedAt)
	if left < 0 {
		left = 0
	}
	return left.Seconds()
}

// InBonusWindow reports whether a score committed right now would earn
// the speed bonus.
func (t *BlitzTimer) InBonusWindow() bool {
	return ShouldAwardSpeedBonus(t.Remaining(), t.total.Seconds(), t.window.Seconds())
}

// Stop cancels the countdown. Safe to call multiple times and after
// expiry.
//
// Postcondition: no new expiry begins after Stop returns. An expiry
// already in flight may still be running; callers that must ignore it
// carry their own staleness guard (the session's turn sequence).
func (t *BlitzTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.done)
	}
}

// Stopped reports whether the timer has been stopped or has expired.
func (t *BlitzTimer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
