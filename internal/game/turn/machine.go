// Package turn implements the per-turn dice state machine: roll limits,
// holds, the roll animation, and the blitz countdown timer.
package turn

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
)

// State is the tagged state of a turn. Transitions are guarded; calls
// that are invalid in the current state are silent no-ops, matching a UI
// whose controls are disabled but may fire from stale state.
type State string

const (
	// StateNotStarted: the turn has not begun; rolling is not permitted.
	StateNotStarted State = "not_started"
	// StateReadyToRoll: the turn has begun and no roll is in flight.
	StateReadyToRoll State = "ready"
	// StateRolling: the roll animation is running; input is ignored.
	StateRolling State = "rolling"
	// StateAwaitingSelection: at least one roll has landed; the player may
	// hold dice, roll again while under the limit, or pick a category.
	StateAwaitingSelection State = "awaiting_selection"
)

// RollResult reports a completed roll to the caller.
type RollResult struct {
	Hand      scoring.Dice
	RollCount int
	// Yahtzee is set when the final hand is five of a kind, so the
	// frontend can celebrate without re-scoring.
	Yahtzee bool
	// Cancelled is set when the turn ended while the roll animation was
	// still running; no values were committed and the other fields are
	// zero.
	Cancelled bool
}

// Machine is the turn/roll state machine for one player's active turn.
// All methods are safe for concurrent use; the roll animation runs on its
// own goroutine and funnels every state change through the machine's lock.
type Machine struct {
	mu        sync.Mutex
	state     State
	hand      scoring.Dice
	held      dice.Holds
	rollCount int

	// animSeq is bumped by Reset and Restore so an animation goroutine
	// from a turn that already ended cannot commit into the new turn.
	animSeq uint64

	maxRolls     int
	animTicks    int
	tickInterval time.Duration

	roller *dice.Roller
	logger *zap.Logger

	// onRolled receives each batch of newly landed (non-held) die values,
	// feeding the session's dice-history log.
	onRolled func([]int)
}

// Option configures a Machine.
type Option func(*Machine)

// WithAnimation overrides the roll animation tick count and interval.
//
// Precondition: ticks >= 1; interval > 0.
func WithAnimation(ticks int, interval time.Duration) Option {
	return func(m *Machine) {
		m.animTicks = ticks
		m.tickInterval = interval
	}
}

// WithRollSink registers fn to receive newly rolled die values.
func WithRollSink(fn func([]int)) Option {
	return func(m *Machine) {
		m.onRolled = fn
	}
}

// NewMachine creates a Machine in StateNotStarted.
//
// Precondition: roller and logger must be non-nil; maxRolls >= 1.
// Postcondition: The hand shows all ones, no holds, zero rolls.
func NewMachine(roller *dice.Roller, maxRolls int, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		state:        StateNotStarted,
		hand:         scoring.Dice{1, 1, 1, 1, 1},
		maxRolls:     maxRolls,
		animTicks:    8,
		tickInterval: 50 * time.Millisecond,
		roller:       roller,
		logger:       logger,
		onRolled:     func([]int) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot is a point-in-time copy of the machine's visible state.
type Snapshot struct {
	State     State
	Hand      scoring.Dice
	Held      dice.Holds
	RollCount int
	MaxRolls  int
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:     m.state,
		Hand:      m.hand,
		Held:      m.held,
		RollCount: m.rollCount,
		MaxRolls:  m.maxRolls,
	}
}

// StartTurn transitions NotStarted -> ReadyToRoll.
//
// Postcondition: Returns true iff the transition happened; any other
// starting state is a no-op returning false.
func (m *Machine) StartTurn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateNotStarted {
		return false
	}
	m.state = StateReadyToRoll
	m.logger.Debug("turn started")
	return true
}

// Started reports whether the turn has begun.
func (m *Machine) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != StateNotStarted
}

// HasRolled reports whether at least one roll has completed this turn.
func (m *Machine) HasRolled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollCount > 0
}

// Hand returns the current dice hand.
func (m *Machine) Hand() scoring.Dice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hand
}

// Roll runs the roll animation and commits the final hand.
//
// Guards (all silent no-ops returning false): turn not started, a roll
// already in flight, or the roll limit reached.
//
// The animation re-randomizes the unheld dice once per tick for the
// configured number of ticks; the final tick's values are committed, the
// roll count is incremented, and onDone (if non-nil) receives the result.
// Only the committed values are appended to the roll sink.
//
// If the turn ends mid-animation (Reset or Restore), the roll commits
// nothing and onDone receives a result with Cancelled set.
//
// Postcondition: On acceptance the machine is in StateRolling until the
// animation completes, then StateAwaitingSelection.
func (m *Machine) Roll(onDone func(RollResult)) bool {
	m.mu.Lock()
	if m.state != StateReadyToRoll && m.state != StateAwaitingSelection {
		m.mu.Unlock()
		return false
	}
	if m.rollCount >= m.maxRolls {
		m.mu.Unlock()
		return false
	}
	m.state = StateRolling
	seq := m.animSeq
	ticks := m.animTicks
	interval := m.tickInterval
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; i < ticks; i++ {
			<-ticker.C
			m.mu.Lock()
			if m.animSeq != seq {
				m.mu.Unlock()
				if onDone != nil {
					onDone(RollResult{Cancelled: true})
				}
				return
			}
			final := i == ticks-1
			if final {
				hand, rolled := m.roller.Reroll(m.hand, m.held)
				m.hand = hand
				m.rollCount++
				m.state = StateAwaitingSelection
				result := RollResult{
					Hand:      m.hand,
					RollCount: m.rollCount,
					Yahtzee:   scoring.IsYahtzee(m.hand),
				}
				m.mu.Unlock()
				m.onRolled(rolled)
				if onDone != nil {
					onDone(result)
				}
				return
			}
			// Intermediate ticks animate the unheld dice without logging
			// or feeding the history.
			m.hand, _ = dice.Reroll(m.hand, m.held, m.roller.Source())
			m.mu.Unlock()
		}
	}()
	return true
}

// ToggleHold flips the hold flag on die i.
//
// Guards (silent no-ops returning false): no roll has landed yet, a roll
// is in flight, or i is out of range.
func (m *Machine) ToggleHold(i int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= dice.Count {
		return false
	}
	if m.rollCount == 0 || m.state == StateRolling {
		return false
	}
	m.held[i] = !m.held[i]
	return true
}

// Reset returns the machine to StateNotStarted for the next player,
// cancelling any roll animation still in flight.
//
// Postcondition: hand is all ones, no holds, zero rolls.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animSeq++
	m.state = StateNotStarted
	m.hand = scoring.Dice{1, 1, 1, 1, 1}
	m.held = dice.Holds{}
	m.rollCount = 0
}

// Restore rehydrates the machine from a paused-game snapshot.
//
// Precondition: rollCount in [0, MaxRolls]; any die value in [1, 6].
// A mid-animation state is never persisted, so restored turns land in
// ReadyToRoll or AwaitingSelection.
func (m *Machine) Restore(hand scoring.Dice, held dice.Holds, rollCount int, started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.animSeq++
	m.hand = hand
	m.held = held
	m.rollCount = rollCount
	switch {
	case !started:
		m.state = StateNotStarted
	case rollCount == 0:
		m.state = StateReadyToRoll
	default:
		m.state = StateAwaitingSelection
	}
}
