// Package session implements the game session model: the ordered roster,
// per-player score sheets, the current-turn pointer, mode flags, and the
// completion and finalization logic.
package session

import (
	"time"

	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
)

// Player is a known player, persisted independently of any game.
// The ID is the creation timestamp in unix milliseconds, kept numeric for
// compatibility with exports from the original app.
type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// NewPlayer creates a Player with a creation-timestamp ID.
//
// Precondition: name must be non-empty.
func NewPlayer(name string) Player {
	return Player{ID: time.Now().UnixMilli(), Name: name}
}

// PlayerInGame is a player participating in the active session, with the
// session-scoped score sheet. Created when the player joins the roster,
// destroyed when the session ends or is discarded.
type PlayerInGame struct {
	Player
	Sheet *scoring.Sheet
}

// Mode is the session's scoring mode.
type Mode string

const (
	// ModeScore: physical dice, manual score entry.
	ModeScore Mode = "score"
	// ModePlay: virtual dice rolled in-app with auto-scoring previews.
	ModePlay Mode = "play"
)

// MaxPlayers is the roster cap.
const MaxPlayers = 8

// Rules carries the timing and limit parameters a session plays under.
type Rules struct {
	// MaxRolls is the per-turn roll limit in a standard game.
	MaxRolls int
	// BlitzMaxRolls is the per-turn roll limit in blitz mode.
	BlitzMaxRolls int
	// BlitzTurn is the blitz countdown length per turn.
	BlitzTurn time.Duration
	// BlitzWindow is the leading slice of the countdown earning the
	// speed bonus.
	BlitzWindow time.Duration
	// AnimTicks and AnimInterval parameterize the roll animation.
	AnimTicks    int
	AnimInterval time.Duration
}

// DefaultRules returns the standard rule set: 3 rolls (2 in blitz), a 15
// second blitz turn with a 5 second bonus window, and an 8-tick roll
// animation at 50ms.
func DefaultRules() Rules {
	return Rules{
		MaxRolls:      3,
		BlitzMaxRolls: 2,
		BlitzTurn:     15 * time.Second,
		BlitzWindow:   5 * time.Second,
		AnimTicks:     8,
		AnimInterval:  50 * time.Millisecond,
	}
}

// SpeedBonusPoints is awarded on top of the category score for a commit
// inside the blitz bonus window.
const SpeedBonusPoints = 5

// BlitzCategoryCount is the number of categories a blitz game plays.
const BlitzCategoryCount = 6
