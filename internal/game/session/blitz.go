package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/turn"
)

// selectBlitzCategories picks the six categories a blitz game plays.
//
// Policy: two random upper categories, two random lower categories, then
// two more drawn from the remaining nine. This guarantees exactly six
// distinct categories with a mix of both sections. The draw goes through
// the dice Source so tests can inject determinism.
//
// Postcondition: returns exactly BlitzCategoryCount distinct IDs, at
// least two upper and at least two lower, in catalog display order.
func selectBlitzCategories(src dice.Source) []scoring.CategoryID {
	upper := scoring.UpperCategories()
	lower := scoring.LowerCategories()

	chosen := make(map[scoring.CategoryID]bool, BlitzCategoryCount)
	for _, c := range drawN(upper, 2, src) {
		chosen[c.ID] = true
	}
	for _, c := range drawN(lower, 2, src) {
		chosen[c.ID] = true
	}

	var rest []scoring.Category
	for _, c := range scoring.AllCategories() {
		if !chosen[c.ID] {
			rest = append(rest, c)
		}
	}
	for _, c := range drawN(rest, BlitzCategoryCount-len(chosen), src) {
		chosen[c.ID] = true
	}

	// Catalog order keeps the sheet display stable.
	out := make([]scoring.CategoryID, 0, BlitzCategoryCount)
	for _, id := range scoring.AllCategoryIDs() {
		if chosen[id] {
			out = append(out, id)
		}
	}
	return out
}

// drawN returns n distinct random elements of pool via a partial
// Fisher-Yates shuffle.
//
// Precondition: 0 <= n <= len(pool).
func drawN(pool []scoring.Category, n int, src dice.Source) []scoring.Category {
	out := make([]scoring.Category, len(pool))
	copy(out, pool)
	for i := 0; i < n; i++ {
		j := i + src.Intn(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// armTimerLocked starts a blitz countdown for the current turn.
//
// Precondition: s.mu held; no live timer (stopTimerLocked called first).
func (s *Session) armTimerLocked(total time.Duration) {
	seq := s.turnSeq
	s.timer = turn.NewBlitzTimer(total, s.rules.BlitzWindow, func() {
		s.handleBlitzTimeout(seq)
	})
}

// stopTimerLocked cancels the live timer, if any.
//
// Precondition: s.mu held.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// handleBlitzTimeout forces a selection when the countdown expires: a
// player who never rolled takes 0 in the first unfilled blitz category;
// otherwise a uniformly random unfilled blitz category receives its
// possible score (which may be 0). The commit advances the turn exactly
// as a manual selection would.
func (s *Session) handleBlitzTimeout(seq int) {
	s.mu.Lock()

	// A stale timer whose turn already ended must not touch the game.
	if seq != s.turnSeq || !s.started || s.complete {
		s.mu.Unlock()
		return
	}

	pg := s.players[s.current]
	var unfilled []scoring.CategoryID
	for _, id := range s.blitzSet {
		if _, ok := pg.Sheet.Score(id); !ok {
			unfilled = append(unfilled, id)
		}
	}
	if len(unfilled) == 0 {
		// Complete sheets cannot reach a live turn; guard anyway.
		s.mu.Unlock()
		return
	}

	var category scoring.CategoryID
	var value int
	if s.machine == nil || !s.machine.HasRolled() {
		category = unfilled[0]
		value = 0
	} else {
		category = unfilled[s.roller.Source().Intn(len(unfilled))]
		possible, err := scoring.PossibleScores(s.machine.Hand())
		if err != nil {
			s.logger.Error("scoring timed-out hand", zap.Error(err))
			s.mu.Unlock()
			return
		}
		value = possible[category]
	}

	name := pg.Name
	notify := s.onAutoScore
	committed, err := s.commitLocked(category, value, true)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("blitz timeout commit failed", zap.Error(err))
		return
	}
	if committed {
		s.logger.Info("blitz timeout auto-score",
			zap.String("player", name),
			zap.String("category", string(category)),
			zap.Int("value", value),
		)
		if notify != nil {
			notify(AutoScore{PlayerName: name, Category: category, Score: value})
		}
	}
}
