package dice

import (
	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
)

// Roller wraps a Source and logger to provide logged hand rolling.
// Every completed reroll is logged at debug level with the resulting hand
// and the indices that were held.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each
// reroll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Reroll re-randomizes the unheld dice in hand and logs the result.
//
// Postcondition: returns the updated hand and the newly rolled values.
func (r *Roller) Reroll(hand scoring.Dice, held Holds) (scoring.Dice, []int) {
	out, rolled := Reroll(hand, held, r.src)
	r.logger.Debug("dice reroll",
		zap.Ints("hand", out[:]),
		zap.Bools("held", held[:]),
		zap.Ints("rolled", rolled),
		zap.Int("sum", out.Sum()),
	)
	return out, rolled
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source {
	return r.src
}
