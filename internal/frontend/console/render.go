package console

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/history"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
)

func formatDice(hand scoring.Dice, held dice.Holds) string {
	var b strings.Builder
	for i, v := range hand {
		if i > 0 {
			b.WriteByte(' ')
		}
		if held[i] {
			fmt.Fprintf(&b, "[%d]", v)
		} else {
			fmt.Fprintf(&b, " %d ", v)
		}
	}
	return b.String()
}

func joinCategories(ids []scoring.CategoryID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func historyID(s string) history.RecordID {
	return history.RecordID(s)
}

func playerScore(sess *session.Session, name string, id scoring.CategoryID) (int, bool) {
	for _, p := range sess.Players() {
		if p.Name == name {
			return p.Sheet.Score(id)
		}
	}
	return 0, false
}

// cmdSheet prints every player's sheet over the active category set,
// current player marked.
func (f *Frontend) cmdSheet() error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if !sess.Started() {
		return fmt.Errorf("game not started")
	}
	ids := sess.CategorySet()
	for i, p := range sess.Players() {
		marker := "  "
		if i == sess.CurrentIndex() {
			marker = "> "
		}
		f.printf("%s%s\n", marker, p.Name)
		for _, id := range ids {
			cat, _ := scoring.Lookup(id)
			if v, filled := p.Sheet.Score(id); filled {
				star := ""
				if p.Sheet.HasSpeedBonus(id) {
					star = " *"
				}
				f.printf("    %-16s %3d%s\n", cat.Name, v, star)
			} else {
				f.printf("    %-16s   -\n", cat.Name)
			}
		}
		if !sess.Blitz() {
			f.printf("    upper bonus      %3d\n", p.Sheet.UpperBonus(false))
		}
		if yb := p.Sheet.YahtzeeBonus(); yb > 0 {
			f.printf("    schnitzel bonus  %3d\n", yb)
		}
		f.printf("    total            %3d\n", p.Sheet.GrandTotal(sess.Blitz()))
	}
	return nil
}

// printPossible lists what each open category would score for the hand.
func (f *Frontend) printPossible(sess *session.Session, hand scoring.Dice) {
	possible, err := scoring.PossibleScores(hand)
	if err != nil {
		return
	}
	sheet := sess.CurrentPlayer().Sheet
	var parts []string
	for _, id := range sess.CategorySet() {
		if _, filled := sheet.Score(id); filled {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", id, possible[id]))
	}
	if len(parts) > 0 {
		f.printf("open: %s\n", strings.Join(parts, " "))
	}
}

// revealStandings announces final places one at a time, last place
// first, then the winner banner. A zero reveal delay prints everything
// at once, which the tests rely on.
func (f *Frontend) revealStandings(rec history.Record) {
	places := make([]history.PlayerResult, len(rec.Players))
	copy(places, rec.Players)
	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Total > places[j].Total
	})

	printPlace := func(step int) {
		// Steps come last place first.
		rank := len(places) - 1 - step
		f.printf("%d. %s with %d\n", rank+1, places[rank].Name, places[rank].Total)
	}
	if f.revealDelay <= 0 {
		for step := range places {
			printPlace(step)
		}
		f.printWinner(places)
		return
	}

	done := make(chan struct{})
	reveal := session.NewReveal(len(places), f.revealDelay, printPlace, func() {
		f.printWinner(places)
		close(done)
	})
	<-done
	reveal.Stop()
}

func (f *Frontend) printWinner(places []history.PlayerResult) {
	if len(places) > 1 && places[0].Total == places[1].Total {
		f.printf("A tie at %d. Nobody takes the win.\n", places[0].Total)
		return
	}
	f.printf("%s wins!\n", places[0].Name)
}

// printRollStats shows the die face distribution for a played-out game.
func (f *Frontend) printRollStats(rolls []int) {
	if len(rolls) == 0 {
		return
	}
	var dist [7]int
	for _, v := range rolls {
		if v >= 1 && v <= 6 {
			dist[v]++
		}
	}
	f.printf("%d dice rolled:\n", len(rolls))
	for face := 1; face <= 6; face++ {
		pct := float64(dist[face]) / float64(len(rolls)) * 100
		f.printf("  %d: %3d (%.1f%%)\n", face, dist[face], pct)
	}
}

func formatRecord(rec history.Record) string {
	var b strings.Builder
	mode := "score"
	if rec.Mode != nil {
		mode = string(*rec.Mode)
	}
	if rec.IsBlitz() {
		mode += " blitz"
	}
	fmt.Fprintf(&b, "%s  %s  [%s]", rec.ID, rec.Date.Format("2006-01-02 15:04"), mode)
	if rec.Dur != nil {
		fmt.Fprintf(&b, "  %dm", *rec.Dur)
	}
	b.WriteByte('\n')
	for _, p := range rec.Players {
		fmt.Fprintf(&b, "    %-12s %d\n", p.Name, p.Total)
	}
	return b.String()
}

func formatLeaderboard(board []history.Standing) string {
	var b strings.Builder
	for _, s := range board {
		fmt.Fprintf(&b, "%2d. %-12s avg %3d  win%% %3d  games %d  best %d\n",
			s.Rank, s.Player.Name, s.Stats.AvgScore, s.Stats.WinRate,
			s.Stats.GamesPlayed, s.Stats.BestScore)
		for _, a := range s.Achievements {
			fmt.Fprintf(&b, "      %s %s\n", a.Icon, a.Name)
		}
	}
	return b.String()
}
