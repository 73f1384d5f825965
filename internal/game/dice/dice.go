// Package dice provides the randomness abstraction and five-die hand
// rolling for the Schnitzel scorekeeper.
package dice

import "github.com/schnitzelapp/schnitzel/internal/game/scoring"

// Faces is the number of sides on a die.
const Faces = 6

// Count is the number of dice in a hand.
const Count = 5

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollDie returns a single uniformly random die value in [1, 6].
//
// Precondition: src must be non-nil.
func RollDie(src Source) int {
	return src.Intn(Faces) + 1
}

// Holds marks which dice in a hand are held and must not be re-rolled.
type Holds [Count]bool

// Any reports whether at least one die is held.
func (h Holds) Any() bool {
	for _, held := range h {
		if held {
			return true
		}
	}
	return false
}

// Reroll re-randomizes every unheld die in hand and returns the updated
// hand together with the newly rolled values in index order.
//
// Precondition: src must be non-nil.
// Postcondition: hand[i] is unchanged wherever held[i]; every returned
// value is in [1, 6].
func Reroll(hand scoring.Dice, held Holds, src Source) (scoring.Dice, []int) {
	rolled := make([]int, 0, Count)
	for i := range hand {
		if held[i] {
			continue
		}
		v := RollDie(src)
		hand[i] = v
		rolled = append(rolled, v)
	}
	return hand, rolled
}
