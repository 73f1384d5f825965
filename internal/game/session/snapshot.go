package session

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/turn"
)

// ErrBadSnapshot is returned by Restore for snapshots that cannot
// describe a playable game.
var ErrBadSnapshot = errors.New("saved game snapshot is invalid")

// SavedPlayer is one roster entry inside a saved game. The JSON keys
// match the historical export format.
type SavedPlayer struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Scores *scoring.Sheet `json:"scores"`
}

// SavedGame is a full resumable snapshot of an in-progress session.
// Timestamps are Unix milliseconds for compatibility with records
// written by earlier releases.
type SavedGame struct {
	Players []SavedPlayer `json:"game"`
	Current int           `json:"cur"`
	Start   int64         `json:"start"`
	SavedAt int64         `json:"savedAt"`

	Mode            Mode                 `json:"mode"`
	Blitz           bool                 `json:"isBlitzMode,omitempty"`
	BlitzCategories []scoring.CategoryID `json:"blitzCategories,omitempty"`

	Dice        scoring.Dice `json:"dice"`
	Held        dice.Holds   `json:"held"`
	RollCount   int          `json:"rollCount"`
	TurnStarted bool         `json:"turnStarted"`

	// TimerRemaining is the seconds left on the blitz countdown at
	// save time, 0 when no timer was live.
	TimerRemaining float64 `json:"timerRemaining,omitempty"`
	DiceHistory    []int   `json:"diceHistory,omitempty"`
}

// Snapshot captures the session for later resumption. The live timer,
// if any, contributes its remaining seconds but keeps running; callers
// pause via Close after snapshotting.
//
// Precondition: the session has been started and is not finished.
func (s *Session) Snapshot() SavedGame {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := SavedGame{
		Players:         make([]SavedPlayer, 0, len(s.players)),
		Current:         s.current,
		Start:           s.startedAt.UnixMilli(),
		SavedAt:         time.Now().UnixMilli(),
		Mode:            s.mode,
		Blitz:           s.blitz,
		BlitzCategories: append([]scoring.CategoryID(nil), s.blitzSet...),
		Dice:            scoring.Dice{1, 1, 1, 1, 1},
		DiceHistory:     append([]int(nil), s.diceHistory...),
	}
	for _, pg := range s.players {
		saved.Players = append(saved.Players, SavedPlayer{
			ID:     pg.ID,
			Name:   pg.Name,
			Scores: pg.Sheet.Clone(),
		})
	}
	if s.machine != nil {
		snap := s.machine.Snapshot()
		saved.Dice = snap.Hand
		saved.Held = snap.Held
		saved.RollCount = snap.RollCount
		saved.TurnStarted = snap.State != turn.StateNotStarted
	}
	if s.timer != nil && !s.timer.Stopped() {
		saved.TimerRemaining = s.timer.Remaining()
	}
	return saved
}

// Restore rebuilds a running session from a snapshot. A blitz turn
// resumes its countdown with the saved remaining time rather than a
// fresh one, so pausing cannot reopen the speed-bonus window.
func Restore(saved SavedGame, rules Rules, roller *dice.Roller, logger *zap.Logger) (*Session, error) {
	if len(saved.Players) == 0 || len(saved.Players) > MaxPlayers {
		return nil, ErrBadSnapshot
	}
	if saved.Current < 0 || saved.Current >= len(saved.Players) {
		return nil, ErrBadSnapshot
	}
	mode := saved.Mode
	if mode == "" {
		mode = ModeScore
	}
	if saved.Blitz && (mode != ModePlay || len(saved.BlitzCategories) != BlitzCategoryCount) {
		return nil, ErrBadSnapshot
	}

	s := New(rules, roller, logger)
	s.mode = mode
	s.blitz = saved.Blitz
	s.blitzSet = append([]scoring.CategoryID(nil), saved.BlitzCategories...)
	s.current = saved.Current
	s.started = true
	s.startedAt = time.UnixMilli(saved.Start)
	s.diceHistory = append([]int(nil), saved.DiceHistory...)

	for _, sp := range saved.Players {
		sheet := sp.Scores
		if sheet == nil {
			sheet = scoring.NewSheet()
		}
		s.players = append(s.players, &PlayerInGame{
			Player: Player{ID: sp.ID, Name: sp.Name},
			Sheet:  sheet,
		})
	}
	s.complete = s.isCompleteLocked()

	if mode == ModePlay {
		s.machine = s.newMachine()
		s.machine.Restore(saved.Dice, saved.Held, saved.RollCount, saved.TurnStarted)
	}
	if s.blitz && saved.TurnStarted && !s.complete {
		remaining := time.Duration(saved.TimerRemaining * float64(time.Second))
		if remaining <= 0 || remaining > rules.BlitzTurn {
			remaining = tickGrace
		}
		s.armResumedTimerLocked(remaining)
	}

	logger.Info("game resumed",
		zap.Int("players", len(s.players)),
		zap.String("mode", string(mode)),
		zap.Bool("blitz", s.blitz),
	)
	return s, nil
}

// tickGrace is the countdown granted to a resumed turn whose saved
// timer had already hit zero, enough for the timeout to fire cleanly.
const tickGrace = 250 * time.Millisecond

// armResumedTimerLocked arms the blitz countdown as if it had already
// run down to remaining.
//
// Precondition: s.mu not required (construction only); s.rules.BlitzTurn > 0.
func (s *Session) armResumedTimerLocked(remaining time.Duration) {
	seq := s.turnSeq
	elapsed := s.rules.BlitzTurn - remaining
	s.timer = turn.ResumeBlitzTimer(s.rules.BlitzTurn, s.rules.BlitzWindow, elapsed, func() {
		s.handleBlitzTimeout(seq)
	})
}
