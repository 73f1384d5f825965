package session

import (
	"sync"
	"time"
)

// Reveal timing. Per-entry delay scales down with the standing count so
// big games do not drag, clamped to keep small games readable.
const (
	revealBudget   = 3 * time.Second
	revealMinStep  = 600 * time.Millisecond
	revealMaxStep  = time.Second
	revealEndPause = 400 * time.Millisecond
)

// Reveal plays out the end-of-game standings one entry at a time, last
// place first. Consumers observe progress through the callbacks; Skip
// jumps straight to the fully revealed state. Safe for concurrent use.
type Reveal struct {
	mu       sync.Mutex
	count    int
	index    int
	complete bool
	stopped  bool
	done     chan struct{}

	onStep     func(revealed int)
	onComplete func()
}

// NewReveal starts a reveal over count standings after an initial
// delay. onStep receives the number of revealed entries after each
// step; onComplete fires once, when every entry is visible.
//
// Precondition: count >= 1; callbacks may be nil.
func NewReveal(count int, initialDelay time.Duration, onStep func(int), onComplete func()) *Reveal {
	r := &Reveal{
		count:      count,
		index:      -1,
		done:       make(chan struct{}),
		onStep:     onStep,
		onComplete: onComplete,
	}
	go r.run(initialDelay)
	return r
}

func (r *Reveal) run(initialDelay time.Duration) {
	step := revealBudget / time.Duration(r.count)
	if step < revealMinStep {
		step = revealMinStep
	}
	if step > revealMaxStep {
		step = revealMaxStep
	}

	delay := initialDelay
	for {
		select {
		case <-time.After(delay):
		case <-r.done:
			return
		}

		r.mu.Lock()
		if r.complete || r.stopped {
			r.mu.Unlock()
			return
		}
		r.index++
		last := r.index >= r.count-1
		revealed := r.index + 1
		r.mu.Unlock()

		if r.onStep != nil {
			r.onStep(revealed)
		}
		if !last {
			delay = step
			continue
		}

		// Short beat before the winner banner.
		select {
		case <-time.After(revealEndPause):
		case <-r.done:
			return
		}
		r.finish()
		return
	}
}

func (r *Reveal) finish() {
	r.mu.Lock()
	if r.complete || r.stopped {
		r.mu.Unlock()
		return
	}
	r.complete = true
	r.index = r.count - 1
	close(r.done)
	r.mu.Unlock()
	if r.onComplete != nil {
		r.onComplete()
	}
}

// Skip abandons the animation and reveals everything at once.
func (r *Reveal) Skip() {
	r.finish()
}

// Revealed returns how many standings are visible and whether the
// sequence has finished.
func (r *Reveal) Revealed() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.complete {
		return r.count, true
	}
	return r.index + 1, false
}

// Stop cancels the reveal without completing it. Used when the player
// navigates away mid-animation.
func (r *Reveal) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.complete && !r.stopped {
		r.stopped = true
		close(r.done)
	}
}
