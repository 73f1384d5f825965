package scoring

import (
	"fmt"
	"sort"
)

// Dice is one complete hand of five dice.
type Dice [5]int

// Sum returns the sum of all five dice.
func (d Dice) Sum() int {
	total := 0
	for _, v := range d {
		total += v
	}
	return total
}

// counts returns the occurrence count per face, indexed 1-6 (index 0 unused).
//
// Precondition: every die value is in [1, 6].
func (d Dice) counts() [7]int {
	var c [7]int
	for _, v := range d {
		c[v]++
	}
	return c
}

// validate checks that every die value is in [1, 6].
func (d Dice) validate() error {
	for i, v := range d {
		if v < 1 || v > 6 {
			return fmt.Errorf("die %d is %d: %w", i, v, ErrInvalidDie)
		}
	}
	return nil
}

// ScoreFor computes the score the given dice would earn in category id.
//
// The rules follow the standard sheet with one deliberate policy choice:
// a full house requires face counts of exactly 3 and 2, so five of a kind
// is NOT a full house.
//
// Precondition: every die value is in [1, 6]; id must be in the catalog.
// Postcondition: Deterministic, side-effect-free; upper categories return
// a value in [0, 5*face], fixed categories return 0 or the fixed value,
// sum categories return 0 or the dice sum.
func ScoreFor(dice Dice, id CategoryID) (int, error) {
	if err := dice.validate(); err != nil {
		return 0, err
	}
	cat, ok := Lookup(id)
	if !ok {
		return 0, fmt.Errorf("category %q: %w", id, ErrUnknownCategory)
	}

	counts := dice.counts()
	if cat.Kind == KindUpper {
		return counts[cat.Face] * cat.Face, nil
	}

	// Face counts sorted descending; sorted[0] is the most frequent face.
	sorted := make([]int, 6)
	copy(sorted, counts[1:])
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	switch id {
	case ThreeOfKind:
		if sorted[0] >= 3 {
			return dice.Sum(), nil
		}
		return 0, nil
	case FourOfKind:
		if sorted[0] >= 4 {
			return dice.Sum(), nil
		}
		return 0, nil
	case FullHouse:
		if sorted[0] == 3 && sorted[1] == 2 {
			return 25, nil
		}
		return 0, nil
	case SmallStraight:
		if hasSmallStraight(counts) {
			return 30, nil
		}
		return 0, nil
	case LargeStraight:
		if isLargeStraight(counts) {
			return 40, nil
		}
		return 0, nil
	case Yahtzee:
		if sorted[0] == 5 {
			return 50, nil
		}
		return 0, nil
	case Chance:
		return dice.Sum(), nil
	}
	return 0, fmt.Errorf("category %q: %w", id, ErrUnknownCategory)
}

// smallStraightRuns are the face runs any of which qualifies as a small
// straight when the dice cover it.
var smallStraightRuns = [][4]int{
	{1, 2, 3, 4},
	{2, 3, 4, 5},
	{3, 4, 5, 6},
}

func hasSmallStraight(counts [7]int) bool {
	for _, run := range smallStraightRuns {
		ok := true
		for _, face := range run {
			if counts[face] == 0 {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func isLargeStraight(counts [7]int) bool {
	// Exactly one of each face in 1-5 or 2-6.
	oneToFive := counts[1] == 1 && counts[2] == 1 && counts[3] == 1 && counts[4] == 1 && counts[5] == 1
	twoToSix := counts[2] == 1 && counts[3] == 1 && counts[4] == 1 && counts[5] == 1 && counts[6] == 1
	return oneToFive || twoToSix
}

// IsYahtzee reports whether all five dice show the same face.
//
// Precondition: every die value is in [1, 6].
func IsYahtzee(dice Dice) bool {
	score, err := ScoreFor(dice, Yahtzee)
	return err == nil && score == 50
}

// PossibleScores computes the score for every catalog category, used to
// preview selectable scores during play mode.
//
// Precondition: every die value is in [1, 6].
// Postcondition: The returned map has exactly one entry per category.
func PossibleScores(dice Dice) (map[CategoryID]int, error) {
	if err := dice.validate(); err != nil {
		return nil, err
	}
	out := make(map[CategoryID]int, len(byID))
	for id := range byID {
		score, err := ScoreFor(dice, id)
		if err != nil {
			return nil, err
		}
		out[id] = score
	}
	return out, nil
}
