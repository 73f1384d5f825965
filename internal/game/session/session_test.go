package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
	"github.com/schnitzelapp/schnitzel/internal/game/turn"
)

// fixedSource always produces the same die value.
type fixedSource struct{ face int }

func (f fixedSource) Intn(n int) int { return (f.face - 1) % n }

func testRules() session.Rules {
	r := session.DefaultRules()
	r.AnimTicks = 1
	r.AnimInterval = time.Millisecond
	return r
}

func newSession(t *testing.T, face int, names ...string) *session.Session {
	t.Helper()
	roller := dice.NewLoggedRoller(fixedSource{face: face}, zap.NewNop())
	s := session.New(testRules(), roller, zap.NewNop())
	for i, name := range names {
		require.True(t, s.AddPlayer(session.Player{ID: int64(i + 1), Name: name}))
	}
	return s
}

func rollAndWait(t *testing.T, s *session.Session) turn.RollResult {
	t.Helper()
	done := make(chan turn.RollResult, 1)
	require.True(t, s.Roll(func(r turn.RollResult) { done <- r }))
	select {
	case r := <-done:
		return r
	case <-time.After(time.Second):
		t.Fatal("roll did not complete")
		return turn.RollResult{}
	}
}

func TestSwitchPlayer_CancelsRollInFlight(t *testing.T) {
	roller := dice.NewLoggedRoller(fixedSource{face: 4}, zap.NewNop())
	rules := testRules()
	rules.AnimTicks = 4
	rules.AnimInterval = 20 * time.Millisecond
	s := session.New(rules, roller, zap.NewNop())
	require.True(t, s.AddPlayer(session.Player{ID: 1, Name: "Ana"}))
	require.True(t, s.AddPlayer(session.Player{ID: 2, Name: "Leo"}))
	require.NoError(t, s.Start(session.ModePlay, false))
	require.True(t, s.StartTurn())

	done := make(chan turn.RollResult, 1)
	require.True(t, s.Roll(func(r turn.RollResult) { done <- r }))
	require.True(t, s.SwitchPlayer(1))

	select {
	case r := <-done:
		assert.True(t, r.Cancelled, "a roll in flight when the turn ends must not land")
	case <-time.After(time.Second):
		t.Fatal("cancelled roll never reported")
	}

	// Leo's turn begins fresh; Ana's abandoned roll left nothing behind.
	require.True(t, s.StartTurn())
	snap := s.Dice()
	assert.Equal(t, 0, snap.RollCount)
	assert.Empty(t, s.DiceHistory())
}

func TestRoster_AddRemoveReorder(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo", "Mia")

	assert.False(t, s.AddPlayer(session.Player{ID: 2, Name: "Leo again"}), "duplicate ID must be rejected")
	assert.Equal(t, 3, s.PlayerCount())

	require.True(t, s.Reorder(0, 1))
	players := s.Players()
	assert.Equal(t, "Leo", players[0].Name)
	assert.Equal(t, "Ana", players[1].Name)

	assert.False(t, s.Reorder(2, 1), "swap past the end is a no-op")
	assert.False(t, s.Reorder(-1, 1))

	require.True(t, s.RemovePlayer(3))
	assert.Equal(t, 2, s.PlayerCount())
	assert.False(t, s.RemovePlayer(99))
}

func TestRoster_CapAtEight(t *testing.T) {
	s := newSession(t, 3)
	for i := 0; i < session.MaxPlayers; i++ {
		require.True(t, s.AddPlayer(session.Player{ID: int64(i + 1), Name: "p"}))
	}
	assert.False(t, s.AddPlayer(session.Player{ID: 100, Name: "ninth"}))
}

func TestRoster_FrozenAfterStart(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo")
	require.NoError(t, s.Start(session.ModeScore, false))

	assert.False(t, s.AddPlayer(session.Player{ID: 9, Name: "late"}))
	assert.False(t, s.RemovePlayer(1))
	assert.False(t, s.Reorder(0, 1))
}

func TestStart_Guards(t *testing.T) {
	s := newSession(t, 3)
	assert.ErrorIs(t, s.Start(session.ModeScore, false), session.ErrNoPlayers)

	s = newSession(t, 3, "Ana")
	assert.ErrorIs(t, s.Start(session.ModeScore, true), session.ErrBlitzRequiresPlay)
	assert.Error(t, s.Start(session.Mode("bogus"), false))

	require.NoError(t, s.Start(session.ModePlay, false))
	assert.True(t, s.Started())
	assert.False(t, s.StartedAt().IsZero())
}

func TestCommitScore_AdvancesRoundRobin(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo", "Mia")
	require.NoError(t, s.Start(session.ModeScore, false))

	ok, err := s.CommitScore(scoring.Ones, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, s.CurrentIndex())

	ok, err = s.CommitScore(scoring.Twos, 6)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, s.CurrentIndex())

	ok, err = s.CommitScore(scoring.Chance, 20)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, s.CurrentIndex(), "turn wraps back to the first player")
}

func TestCommitScore_Guards(t *testing.T) {
	s := newSession(t, 3, "Ana")

	_, err := s.CommitScore(scoring.Ones, 3)
	assert.ErrorIs(t, err, session.ErrNotStarted)

	require.NoError(t, s.Start(session.ModeScore, false))

	_, err = s.CommitScore(scoring.CategoryID("nope"), 3)
	assert.ErrorIs(t, err, scoring.ErrUnknownCategory)

	ok, err := s.CommitScore(scoring.Ones, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.CommitScore(scoring.Ones, 4)
	require.NoError(t, err, "a filled category is a silent no-op, not an error")
	assert.False(t, ok)
	v, filled := s.CurrentPlayer().Sheet.Score(scoring.Ones)
	require.True(t, filled)
	assert.Equal(t, 3, v, "the original value survives")
}

func TestCommitScore_CompletionStopsAdvance(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo")
	require.NoError(t, s.Start(session.ModeScore, false))

	for _, id := range scoring.AllCategoryIDs() {
		for range []int{0, 1} {
			ok, err := s.CommitScore(id, 5)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	assert.True(t, s.IsComplete())
	assert.Equal(t, 1, s.CurrentIndex(), "the pointer stays on the last committer")

	_, err := s.CommitScore(scoring.Ones, 1)
	assert.ErrorIs(t, err, session.ErrFinished)
}

func TestClaimBonus(t *testing.T) {
	s := newSession(t, 3, "Ana")
	require.NoError(t, s.Start(session.ModeScore, false))

	assert.False(t, s.ClaimBonus(), "no yahtzee on the sheet yet")

	ok, err := s.CommitScore(scoring.Yahtzee, 50)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, s.ClaimBonus())
	assert.True(t, s.ClaimBonus(), "repeat claims stack")
	assert.Equal(t, 200, s.CurrentPlayer().Sheet.YahtzeeBonus())
}

func TestClaimBonus_PlayModeRejected(t *testing.T) {
	s := newSession(t, 3, "Ana")
	require.NoError(t, s.Start(session.ModePlay, false))
	assert.False(t, s.ClaimBonus(), "dice modes award the bonus automatically")
}

func TestClearScore(t *testing.T) {
	s := newSession(t, 3, "Ana")
	require.NoError(t, s.Start(session.ModeScore, false))

	ok, err := s.ClearScore(scoring.Ones)
	require.NoError(t, err)
	assert.False(t, ok, "clearing an unfilled category is a no-op")

	_, err = s.ClearScore(scoring.CategoryID("nope"))
	assert.ErrorIs(t, err, scoring.ErrUnknownCategory)

	ok, err = s.CommitScore(scoring.Ones, 3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ClearScore(scoring.Ones)
	require.NoError(t, err)
	assert.True(t, ok)
	_, filled := s.CurrentPlayer().Sheet.Score(scoring.Ones)
	assert.False(t, filled)
}

func TestSwitchPlayer(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo", "Mia")
	require.NoError(t, s.Start(session.ModeScore, false))

	assert.False(t, s.SwitchPlayer(3), "out of bounds")
	assert.False(t, s.SwitchPlayer(0), "already current")
	require.True(t, s.SwitchPlayer(2))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.Equal(t, "Mia", s.CurrentPlayer().Name)
}

func TestFinishEarly_ZeroFillsAndFinalizes(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo")
	require.NoError(t, s.Start(session.ModeScore, false))

	ok, err := s.CommitScore(scoring.Sixes, 18)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = s.Finalize()
	assert.ErrorIs(t, err, session.ErrNotComplete)

	require.NoError(t, s.FinishEarly())
	assert.True(t, s.IsComplete())

	sum, err := s.Finalize()
	require.NoError(t, err)
	require.Len(t, sum.Players, 2)
	assert.Equal(t, 18, sum.Players[0].Total)
	assert.Equal(t, 0, sum.Players[1].Total)
	assert.False(t, sum.FinishedAt.IsZero())
}

// Two players finish a full manual game. The first lands exactly on the
// upper-section threshold and earns the 35-point bonus, the second stays
// one point under it and does not.
func TestFinalize_UpperBonusThreshold(t *testing.T) {
	s := newSession(t, 3, "Ana", "Leo")
	require.NoError(t, s.Start(session.ModeScore, false))

	upper := map[string][]int{
		"Ana": {3, 6, 9, 12, 15, 18}, // 63
		"Leo": {3, 6, 9, 12, 14, 18}, // 62
	}
	for i, id := range []scoring.CategoryID{
		scoring.Ones, scoring.Twos, scoring.Threes,
		scoring.Fours, scoring.Fives, scoring.Sixes,
	} {
		for _, name := range []string{"Ana", "Leo"} {
			assert.Equal(t, name, s.CurrentPlayer().Name)
			ok, err := s.CommitScore(id, upper[name][i])
			require.NoError(t, err)
			require.True(t, ok)
		}
	}
	for _, id := range scoring.LowerCategories() {
		for range []int{0, 1} {
			ok, err := s.CommitScore(id.ID, 10)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	sum, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, session.ModeScore, sum.Mode)
	assert.False(t, sum.Blitz)

	// Ana: 63 upper + 35 bonus + 70 lower. Leo: 62 + 0 + 70.
	assert.Equal(t, "Ana", sum.Players[0].Name)
	assert.Equal(t, 168, sum.Players[0].Total)
	assert.Equal(t, 132, sum.Players[1].Total)
}

func TestPlayMode_RollCommitAndAutoBonus(t *testing.T) {
	s := newSession(t, 4, "Ana")
	require.NoError(t, s.Start(session.ModePlay, false))

	assert.False(t, s.Roll(nil), "rolling before the turn starts is ignored")
	require.True(t, s.StartTurn())
	assert.False(t, s.StartTurn(), "a turn starts once")

	r := rollAndWait(t, s)
	assert.Equal(t, scoring.Dice{4, 4, 4, 4, 4}, r.Hand)
	require.True(t, r.Yahtzee)

	ok, err := s.CommitScore(scoring.Yahtzee, 50)
	require.NoError(t, err)
	require.True(t, ok)

	// A second rolled Yahtzee banks the +100 automatically at commit.
	require.True(t, s.StartTurn())
	rollAndWait(t, s)
	ok, err = s.CommitScoreAuto(scoring.FourOfKind)
	require.NoError(t, err)
	require.True(t, ok)

	sheet := s.CurrentPlayer().Sheet
	assert.Equal(t, 100, sheet.YahtzeeBonus())
	v, filled := sheet.Score(scoring.FourOfKind)
	require.True(t, filled)
	assert.Equal(t, 20, v)
}

func TestPlayMode_HoldsSurviveReroll(t *testing.T) {
	s := newSession(t, 2, "Ana")
	require.NoError(t, s.Start(session.ModePlay, false))
	require.True(t, s.StartTurn())

	assert.False(t, s.ToggleHold(0), "holds are valid only after the first roll")
	rollAndWait(t, s)
	require.True(t, s.ToggleHold(0))
	require.True(t, s.ToggleHold(4))

	snap := s.Dice()
	assert.True(t, snap.Held[0])
	assert.True(t, snap.Held[4])

	rollAndWait(t, s)
	rollAndWait(t, s)
	assert.False(t, s.Roll(nil), "the roll limit is three")
}

func TestDiceHistory_RecordsCommittedRollsOnly(t *testing.T) {
	s := newSession(t, 5, "Ana")
	require.NoError(t, s.Start(session.ModePlay, false))
	require.True(t, s.StartTurn())

	rollAndWait(t, s)
	require.True(t, s.ToggleHold(0))
	require.True(t, s.ToggleHold(1))
	rollAndWait(t, s)

	// 5 dice on the first roll, 3 rerolled on the second.
	assert.Equal(t, []int{5, 5, 5, 5, 5, 5, 5, 5}, s.DiceHistory())
}

func TestScoreMode_DiceOperationsRejected(t *testing.T) {
	s := newSession(t, 3, "Ana")
	require.NoError(t, s.Start(session.ModeScore, false))

	assert.False(t, s.StartTurn())
	assert.False(t, s.Roll(nil))
	assert.False(t, s.ToggleHold(0))
	assert.Equal(t, turn.Snapshot{}, s.Dice())
	assert.Zero(t, s.TimerRemaining())
}
