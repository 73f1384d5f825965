package history

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed achievements.yaml
var achievementsYAML []byte

// Achievement is a badge earned on the leaderboard.
type Achievement struct {
	ID          string `json:"id" yaml:"id"`
	Icon        string `json:"icon" yaml:"icon"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

var badgeCatalog = mustLoadBadges()

func mustLoadBadges() map[string]Achievement {
	var defs []Achievement
	dec := yaml.NewDecoder(bytes.NewReader(achievementsYAML))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil {
		panic(fmt.Sprintf("parsing embedded achievement catalog: %v", err))
	}
	out := make(map[string]Achievement, len(defs))
	for _, d := range defs {
		out[d.ID] = d
	}
	return out
}

// Badges returns the full achievement catalog keyed by ID.
func Badges() map[string]Achievement {
	out := make(map[string]Achievement, len(badgeCatalog))
	for k, v := range badgeCatalog {
		out[k] = v
	}
	return out
}

// peaks marks board-wide superlatives a single player's stats cannot
// determine alone.
type peaks struct {
	mostWins   bool
	highestAvg bool
	mostLucky  bool
}

// Badge award thresholds.
const (
	sharpshooterMinGames = 3
	hotStreakMin         = 3
	dominatorMin         = 5
	veteranMinGames      = 50
	centuryMinGames      = 100
)

func awardAchievements(stats Stats, p peaks) []Achievement {
	var out []Achievement
	award := func(id string) {
		out = append(out, badgeCatalog[id])
	}
	awardf := func(id string, arg int) {
		a := badgeCatalog[id]
		a.Description = fmt.Sprintf(a.Description, arg)
		out = append(out, a)
	}

	if p.mostWins && stats.Wins > 0 {
		award("champion")
	}
	if p.highestAvg && stats.GamesPlayed >= sharpshooterMinGames {
		award("sharpshooter")
	}
	if p.mostLucky && stats.TotalYahtzees > 0 {
		award("lucky")
	}
	if stats.CurrentStreak >= hotStreakMin {
		awardf("hot_streak", stats.CurrentStreak)
	}
	switch {
	case stats.GamesPlayed >= centuryMinGames:
		award("century_club")
	case stats.GamesPlayed >= veteranMinGames:
		award("veteran")
	}
	if stats.PerfectGames > 0 {
		award("perfect_game")
	}
	if stats.BestStreak >= dominatorMin {
		awardf("dominator", stats.BestStreak)
	}
	return out
}
