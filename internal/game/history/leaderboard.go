package history

import (
	"math"
	"sort"

	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
)

// PerfectGameScore is the total from which a game counts as perfect.
const PerfectGameScore = 300

// Stats is one player's aggregate record across all games they appear
// in.
type Stats struct {
	GamesPlayed int `json:"gamesPlayed"`
	// Wins counts games with a strict highest total. A tied top score
	// awards the win to nobody.
	Wins          int `json:"wins"`
	WinRate       int `json:"winRate"`
	AvgScore      int `json:"avgScore"`
	BestScore     int `json:"bestScore"`
	WorstScore    int `json:"worstScore"`
	TotalScore    int `json:"totalScore"`
	TotalYahtzees int `json:"totalYahtzees"`
	PerfectGames  int `json:"perfectGames"`
	// CurrentStreak is the run of wins ending at the player's most
	// recent game; BestStreak the longest run ever.
	CurrentStreak int `json:"currentStreak"`
	BestStreak    int `json:"bestStreak"`
}

// Standing is one leaderboard row: a known player, their stats, and the
// achievements those stats earn.
type Standing struct {
	Player       session.Player `json:"player"`
	Rank         int            `json:"rank"`
	Stats        Stats          `json:"stats"`
	Achievements []Achievement  `json:"achievements"`
}

// ComputeLeaderboard aggregates history into ranked standings for the
// known players. Players with no recorded games are left off the board.
// Ranking is by average score, win rate breaking ties.
//
// Precondition: history is in canonical newest-first order.
func ComputeLeaderboard(recs []Record, known []session.Player) []Standing {
	standings := make([]Standing, 0, len(known))
	for _, p := range known {
		stats := computeStats(recs, p.ID)
		if stats.GamesPlayed == 0 {
			continue
		}
		standings = append(standings, Standing{Player: p, Stats: stats})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i].Stats, standings[j].Stats
		if a.AvgScore != b.AvgScore {
			return a.AvgScore > b.AvgScore
		}
		return a.WinRate > b.WinRate
	})

	maxWins, maxAvg, maxYahtzees := 0, 0, 0
	for _, st := range standings {
		maxWins = max(maxWins, st.Stats.Wins)
		maxAvg = max(maxAvg, st.Stats.AvgScore)
		maxYahtzees = max(maxYahtzees, st.Stats.TotalYahtzees)
	}

	for i := range standings {
		st := &standings[i]
		st.Rank = i + 1
		st.Achievements = awardAchievements(st.Stats, peaks{
			mostWins:   st.Stats.Wins == maxWins && maxWins > 0,
			highestAvg: st.Stats.AvgScore == maxAvg,
			mostLucky:  st.Stats.TotalYahtzees == maxYahtzees && maxYahtzees > 0,
		})
	}
	return standings
}

func computeStats(recs []Record, pid int64) Stats {
	var stats Stats
	stats.WorstScore = math.MaxInt

	// Oldest to newest so streaks accumulate forward in time.
	streak := 0
	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		me := findPlayer(rec, pid)
		if me == nil {
			continue
		}

		stats.GamesPlayed++
		stats.TotalScore += me.Total
		stats.BestScore = max(stats.BestScore, me.Total)
		stats.WorstScore = min(stats.WorstScore, me.Total)
		if me.Total >= PerfectGameScore {
			stats.PerfectGames++
		}
		if me.Scores != nil {
			if v, ok := me.Scores.Score(scoring.Yahtzee); ok && v == 50 {
				stats.TotalYahtzees++
			}
			stats.TotalYahtzees += me.Scores.YahtzeeBonus() / 100
		}

		if isWinner(rec, pid) {
			stats.Wins++
			streak++
			stats.BestStreak = max(stats.BestStreak, streak)
		} else {
			streak = 0
		}
	}
	stats.CurrentStreak = streak

	if stats.GamesPlayed == 0 {
		return Stats{}
	}
	stats.WinRate = int(math.Round(float64(stats.Wins) / float64(stats.GamesPlayed) * 100))
	stats.AvgScore = int(math.Round(float64(stats.TotalScore) / float64(stats.GamesPlayed)))
	return stats
}

func findPlayer(rec Record, pid int64) *PlayerResult {
	for i := range rec.Players {
		if rec.Players[i].PID == pid {
			return &rec.Players[i]
		}
	}
	return nil
}

// isWinner reports whether pid holds the strictly highest total in the
// game.
func isWinner(rec Record, pid int64) bool {
	me := findPlayer(rec, pid)
	if me == nil {
		return false
	}
	for i := range rec.Players {
		if rec.Players[i].PID != pid && rec.Players[i].Total >= me.Total {
			return false
		}
	}
	return true
}
