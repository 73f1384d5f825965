// Package history builds and upgrades finished-game records and derives
// leaderboard standings and achievements from them.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
)

// RecordID identifies a history record. New records get a uuid; records
// imported from older releases carry their original numeric timestamp
// ID, which must survive a round trip unchanged.
type RecordID string

// NewRecordID returns a fresh unique record ID.
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}

func (id *RecordID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("record id: expected string or number, got %s", data)
	}
	*id = RecordID(n.String())
	return nil
}

// MarshalJSON emits numeric legacy IDs as JSON numbers so re-exported
// data stays byte-compatible with the original format.
func (id RecordID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil && id != "" {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// PlayerResult is one player's line in a finished-game record.
type PlayerResult struct {
	PID    int64          `json:"pid"`
	Name   string         `json:"name"`
	Scores *scoring.Sheet `json:"scores"`
	Total  int            `json:"total"`
}

// Record is one finished game as stored in history. Mode and Blitz are
// pointers because records written before those fields existed omit
// them; MigrateLegacy fills them in.
type Record struct {
	ID   RecordID  `json:"id"`
	Date time.Time `json:"date"`
	// Dur is the game length in whole minutes, nil when unknown.
	Dur     *int           `json:"dur"`
	Players []PlayerResult `json:"players"`

	Mode  *session.Mode `json:"mode,omitempty"`
	Blitz *bool         `json:"isBlitzMode,omitempty"`

	// DiceHistory is every die value rolled during the game, empty for
	// manually scored games.
	DiceHistory []int `json:"diceHistory,omitempty"`
}

// BuildRecord derives the history record for a finished session.
func BuildRecord(sum session.Summary) Record {
	rec := Record{
		ID:      NewRecordID(),
		Date:    sum.FinishedAt,
		Players: make([]PlayerResult, len(sum.Players)),
		Mode:    &sum.Mode,
		Blitz:   &sum.Blitz,
	}
	if len(sum.DiceHistory) > 0 {
		rec.DiceHistory = append([]int(nil), sum.DiceHistory...)
	}
	if !sum.StartedAt.IsZero() {
		minutes := int(math.Round(sum.FinishedAt.Sub(sum.StartedAt).Minutes()))
		rec.Dur = &minutes
	}
	for i, p := range sum.Players {
		rec.Players[i] = PlayerResult{
			PID:    p.ID,
			Name:   p.Name,
			Scores: p.Sheet,
			Total:  p.Total,
		}
	}
	return rec
}

// MigrateLegacy upgrades a record written before the mode fields
// existed. Records with exactly six filled categories are taken to be
// blitz games; the original mode is undeterminable and defaults to
// manual score entry. Best effort: it never fails, and already-migrated
// records pass through untouched.
func MigrateLegacy(rec Record) (Record, bool) {
	if rec.Mode != nil && rec.Blitz != nil {
		return rec, false
	}
	mode := session.ModeScore
	blitz := looksLikeBlitz(rec)
	rec.Mode = &mode
	rec.Blitz = &blitz
	return rec, true
}

// looksLikeBlitz applies the six-filled-categories heuristic to the
// first player's sheet.
func looksLikeBlitz(rec Record) bool {
	if len(rec.Players) == 0 || rec.Players[0].Scores == nil {
		return false
	}
	return rec.Players[0].Scores.FilledCount(scoring.AllCategoryIDs()) == session.BlitzCategoryCount
}

// MigrateAll upgrades every legacy record in place and reports how many
// changed.
func MigrateAll(recs []Record) int {
	migrated := 0
	for i := range recs {
		upgraded, changed := MigrateLegacy(recs[i])
		if changed {
			recs[i] = upgraded
			migrated++
		}
	}
	return migrated
}

// IsBlitz reports whether the record is a blitz game, false for
// unmigrated records.
func (r Record) IsBlitz() bool {
	return r.Blitz != nil && *r.Blitz
}

// SortByDateDesc orders records newest first, the canonical history
// order.
func SortByDateDesc(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Date.After(recs[j].Date)
	})
}
