// Package scoring provides the category catalog, per-category score
// computation, and score-sheet aggregation for the Schnitzel scorekeeper.
package scoring

import "errors"

// CategoryID is the unique string key of a scoring category. The values
// match the keys used in persisted sheets and exports, so they must never
// be renamed.
type CategoryID string

// Upper-section categories: score = count of the face x face value.
const (
	Ones   CategoryID = "ones"
	Twos   CategoryID = "twos"
	Threes CategoryID = "threes"
	Fours  CategoryID = "fours"
	Fives  CategoryID = "fives"
	Sixes  CategoryID = "sixes"
)

// Lower-section categories.
const (
	ThreeOfKind   CategoryID = "threeOfKind"
	FourOfKind    CategoryID = "fourOfKind"
	FullHouse     CategoryID = "fullHouse"
	SmallStraight CategoryID = "smallStraight"
	LargeStraight CategoryID = "largeStraight"
	Yahtzee       CategoryID = "yahtzee"
	Chance        CategoryID = "chance"
)

// Kind describes how a category is scored.
type Kind string

const (
	// KindUpper scores count(face) x face value.
	KindUpper Kind = "upper"
	// KindFixed awards a flat point value all-or-nothing.
	KindFixed Kind = "fixed"
	// KindSum scores the sum of all five dice when the pattern matches.
	KindSum Kind = "sum"
)

// Category is a static descriptor of one scoring category.
type Category struct {
	ID   CategoryID
	Name string
	Kind Kind
	// Face is the die face value for upper categories (1-6), 0 otherwise.
	Face int
	// Fixed is the flat point value for fixed categories, 0 otherwise.
	Fixed int
	// Max bounds manual entry for sum categories (display/input only).
	Max int
}

// ErrUnknownCategory is returned when a category ID is not in the catalog.
// Receiving it indicates a caller bug, not a disabled-control path.
var ErrUnknownCategory = errors.New("unknown category")

// ErrInvalidDie is returned when a die value is outside [1, 6].
var ErrInvalidDie = errors.New("die value out of range")

var upper = []Category{
	{ID: Ones, Name: "Ones", Kind: KindUpper, Face: 1},
	{ID: Twos, Name: "Twos", Kind: KindUpper, Face: 2},
	{ID: Threes, Name: "Threes", Kind: KindUpper, Face: 3},
	{ID: Fours, Name: "Fours", Kind: KindUpper, Face: 4},
	{ID: Fives, Name: "Fives", Kind: KindUpper, Face: 5},
	{ID: Sixes, Name: "Sixes", Kind: KindUpper, Face: 6},
}

var lower = []Category{
	{ID: ThreeOfKind, Name: "3 of a Kind", Kind: KindSum, Max: 30},
	{ID: FourOfKind, Name: "4 of a Kind", Kind: KindSum, Max: 30},
	{ID: FullHouse, Name: "Full House", Kind: KindFixed, Fixed: 25},
	{ID: SmallStraight, Name: "Sm. Straight", Kind: KindFixed, Fixed: 30},
	{ID: LargeStraight, Name: "Lg. Straight", Kind: KindFixed, Fixed: 40},
	{ID: Yahtzee, Name: "Yahtzee", Kind: KindFixed, Fixed: 50},
	{ID: Chance, Name: "Chance", Kind: KindSum, Max: 30},
}

var byID = func() map[CategoryID]Category {
	m := make(map[CategoryID]Category, len(upper)+len(lower))
	for _, c := range upper {
		m[c.ID] = c
	}
	for _, c := range lower {
		m[c.ID] = c
	}
	return m
}()

// UpperCategories returns the six upper-section categories in display order.
//
// Postcondition: The returned slice is a copy; mutating it does not affect
// the catalog.
func UpperCategories() []Category {
	out := make([]Category, len(upper))
	copy(out, upper)
	return out
}

// LowerCategories returns the seven lower-section categories in display order.
func LowerCategories() []Category {
	out := make([]Category, len(lower))
	copy(out, lower)
	return out
}

// AllCategories returns all thirteen categories, upper section first.
func AllCategories() []Category {
	return append(UpperCategories(), LowerCategories()...)
}

// AllCategoryIDs returns the thirteen category IDs, upper section first.
func AllCategoryIDs() []CategoryID {
	all := AllCategories()
	ids := make([]CategoryID, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	return ids
}

// Lookup returns the catalog entry for id.
//
// Postcondition: Returns (category, true) if id is known, or (zero, false)
// otherwise.
func Lookup(id CategoryID) (Category, bool) {
	c, ok := byID[id]
	return c, ok
}

// IsUpper reports whether id is one of the six upper-section categories.
func IsUpper(id CategoryID) bool {
	c, ok := byID[id]
	return ok && c.Kind == KindUpper
}
