package scoring

import (
	"encoding/json"
	"fmt"
)

// Sheet is one player's score sheet: a per-category score (nil = unfilled),
// the accumulated Yahtzee bonus, and the blitz speed-bonus markers.
//
// Invariant: Scores always carries exactly one entry per catalog category.
// Mutation goes through Set/Clear so that invariant holds.
type Sheet struct {
	scores       map[CategoryID]*int
	bonus        int
	speedBonuses map[CategoryID]bool
}

// NewSheet creates an empty sheet with every category unfilled.
//
// Postcondition: Score(id) reports unfilled for every catalog id;
// YahtzeeBonus() == 0; no speed bonuses recorded.
func NewSheet() *Sheet {
	s := &Sheet{
		scores:       make(map[CategoryID]*int, 13),
		speedBonuses: make(map[CategoryID]bool),
	}
	for id := range byID {
		s.scores[id] = nil
	}
	return s
}

// Score returns the recorded score for id and whether it is filled.
func (s *Sheet) Score(id CategoryID) (int, bool) {
	v, ok := s.scores[id]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Set records value for id, overwriting any prior value.
//
// Precondition: id must be in the catalog.
func (s *Sheet) Set(id CategoryID, value int) error {
	if _, ok := byID[id]; !ok {
		return fmt.Errorf("category %q: %w", id, ErrUnknownCategory)
	}
	v := value
	s.scores[id] = &v
	return nil
}

// Clear sets id back to unfilled and drops its speed-bonus marker.
//
// Precondition: id must be in the catalog.
func (s *Sheet) Clear(id CategoryID) error {
	if _, ok := byID[id]; !ok {
		return fmt.Errorf("category %q: %w", id, ErrUnknownCategory)
	}
	s.scores[id] = nil
	delete(s.speedBonuses, id)
	return nil
}

// YahtzeeBonus returns the accumulated Yahtzee bonus points.
func (s *Sheet) YahtzeeBonus() int {
	return s.bonus
}

// AddYahtzeeBonus adds 100 bonus points for an additional Yahtzee.
func (s *Sheet) AddYahtzeeBonus() {
	s.bonus += 100
}

// HasSpeedBonus reports whether the score in id earned the blitz speed bonus.
func (s *Sheet) HasSpeedBonus(id CategoryID) bool {
	return s.speedBonuses[id]
}

// MarkSpeedBonus records that the score in id earned the blitz speed bonus.
func (s *Sheet) MarkSpeedBonus(id CategoryID) {
	s.speedBonuses[id] = true
}

// FilledCount returns the number of filled categories among ids.
func (s *Sheet) FilledCount(ids []CategoryID) int {
	n := 0
	for _, id := range ids {
		if _, ok := s.Score(id); ok {
			n++
		}
	}
	return n
}

// Complete reports whether every category in ids is filled.
func (s *Sheet) Complete(ids []CategoryID) bool {
	return s.FilledCount(ids) == len(ids)
}

// FillUnfilledWithZero writes 0 into every unfilled category in ids.
// Used by the early-finish flow.
func (s *Sheet) FillUnfilledWithZero(ids []CategoryID) {
	for _, id := range ids {
		if _, ok := s.Score(id); !ok {
			zero := 0
			s.scores[id] = &zero
		}
	}
}

// Clone returns a deep copy of the sheet.
func (s *Sheet) Clone() *Sheet {
	out := NewSheet()
	for id, v := range s.scores {
		if v != nil {
			c := *v
			out.scores[id] = &c
		}
	}
	out.bonus = s.bonus
	for id, b := range s.speedBonuses {
		if b {
			out.speedBonuses[id] = true
		}
	}
	return out
}

// UpperTotal sums the six upper-section categories, unfilled counting as 0.
//
// Postcondition: Pure; calling it twice on an unchanged sheet yields
// identical results.
func (s *Sheet) UpperTotal() int {
	total := 0
	for _, c := range upper {
		if v, ok := s.Score(c.ID); ok {
			total += v
		}
	}
	return total
}

// UpperBonus returns 35 if the upper total has reached 63, else 0.
// Blitz mode disables the upper bonus entirely, regardless of total.
func (s *Sheet) UpperBonus(blitz bool) int {
	if blitz {
		return 0
	}
	if s.UpperTotal() >= 63 {
		return 35
	}
	return 0
}

// LowerTotal sums the seven lower-section categories plus the Yahtzee
// bonus points. Blitz mode forces the Yahtzee bonus contribution to 0.
func (s *Sheet) LowerTotal(blitz bool) int {
	total := 0
	for _, c := range lower {
		if v, ok := s.Score(c.ID); ok {
			total += v
		}
	}
	if !blitz {
		total += s.bonus
	}
	return total
}

// GrandTotal returns upper total + upper bonus + lower total.
func (s *Sheet) GrandTotal(blitz bool) int {
	return s.UpperTotal() + s.UpperBonus(blitz) + s.LowerTotal(blitz)
}

// MarshalJSON writes the flat legacy sheet shape: category scores sit at
// the top level keyed by category ID, exactly as old exports recorded
// them, so existing data files round-trip unchanged.
func (s *Sheet) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(s.scores)+2)
	for id, v := range s.scores {
		if v == nil {
			flat[string(id)] = nil
		} else {
			flat[string(id)] = *v
		}
	}
	flat["bonus"] = s.bonus
	flat["speedBonuses"] = s.speedBonuses
	return json.Marshal(flat)
}

// UnmarshalJSON reads the flat legacy sheet shape. Missing categories stay
// unfilled, a missing bonus is 0, and a missing speedBonuses map is left
// empty (MigrateLegacy relies on that).
func (s *Sheet) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("decoding sheet: %w", err)
	}

	fresh := NewSheet()
	for id := range byID {
		raw, ok := flat[string(id)]
		if !ok {
			continue
		}
		var v *int
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding sheet category %q: %w", id, err)
		}
		fresh.scores[id] = v
	}
	if raw, ok := flat["bonus"]; ok {
		if err := json.Unmarshal(raw, &fresh.bonus); err != nil {
			return fmt.Errorf("decoding sheet bonus: %w", err)
		}
	}
	if raw, ok := flat["speedBonuses"]; ok {
		var sb map[CategoryID]bool
		if err := json.Unmarshal(raw, &sb); err != nil {
			return fmt.Errorf("decoding sheet speed bonuses: %w", err)
		}
		if sb != nil {
			fresh.speedBonuses = sb
		}
	}

	*s = *fresh
	return nil
}
