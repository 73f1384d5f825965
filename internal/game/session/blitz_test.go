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
)

func newBlitzSession(t *testing.T, face int, rules session.Rules, names ...string) *session.Session {
	t.Helper()
	roller := dice.NewLoggedRoller(fixedSource{face: face}, zap.NewNop())
	s := session.New(rules, roller, zap.NewNop())
	for i, name := range names {
		require.True(t, s.AddPlayer(session.Player{ID: int64(i + 1), Name: name}))
	}
	require.NoError(t, s.Start(session.ModePlay, true))
	return s
}

func TestBlitz_CategorySelection(t *testing.T) {
	for trial := 0; trial < 50; trial++ {
		roller := dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop())
		s := session.New(testRules(), roller, zap.NewNop())
		require.True(t, s.AddPlayer(session.Player{ID: 1, Name: "Ana"}))
		require.NoError(t, s.Start(session.ModePlay, true))

		cats := s.BlitzCategories()
		require.Len(t, cats, session.BlitzCategoryCount)

		seen := map[scoring.CategoryID]bool{}
		upper, lower := 0, 0
		for _, id := range cats {
			assert.False(t, seen[id], "category %s selected twice", id)
			seen[id] = true
			if scoring.IsUpper(id) {
				upper++
			} else {
				lower++
			}
		}
		assert.GreaterOrEqual(t, upper, 2, "both sheet sections stay in play")
		assert.GreaterOrEqual(t, lower, 2, "both sheet sections stay in play")

		// Catalog order.
		pos := map[scoring.CategoryID]int{}
		for i, id := range scoring.AllCategoryIDs() {
			pos[id] = i
		}
		for i := 1; i < len(cats); i++ {
			assert.Less(t, pos[cats[i-1]], pos[cats[i]])
		}
		s.Close()
	}
}

func TestBlitz_TwoRollLimit(t *testing.T) {
	s := newBlitzSession(t, 3, testRules(), "Ana")
	defer s.Close()

	require.True(t, s.StartTurn())
	rollAndWait(t, s)
	rollAndWait(t, s)
	assert.False(t, s.Roll(nil), "blitz allows two rolls per turn")
}

func TestBlitz_CommitOutsideSetRejected(t *testing.T) {
	s := newBlitzSession(t, 3, testRules(), "Ana")
	defer s.Close()

	var outside scoring.CategoryID
	in := map[scoring.CategoryID]bool{}
	for _, id := range s.BlitzCategories() {
		in[id] = true
	}
	for _, id := range scoring.AllCategoryIDs() {
		if !in[id] {
			outside = id
			break
		}
	}

	require.True(t, s.StartTurn())
	rollAndWait(t, s)
	_, err := s.CommitScore(outside, 10)
	assert.Error(t, err)
}

func TestBlitz_SpeedBonusInsideWindow(t *testing.T) {
	rules := testRules()
	rules.BlitzTurn = 5 * time.Second
	rules.BlitzWindow = 5 * time.Second // the whole turn qualifies
	s := newBlitzSession(t, 3, rules, "Ana")
	defer s.Close()

	require.True(t, s.StartTurn())
	rollAndWait(t, s)

	id := s.BlitzCategories()[0]
	ok, err := s.CommitScore(id, 9)
	require.NoError(t, err)
	require.True(t, ok)

	sheet := s.CurrentPlayer().Sheet
	v, filled := sheet.Score(id)
	require.True(t, filled)
	assert.Equal(t, 9+session.SpeedBonusPoints, v)
	assert.True(t, sheet.HasSpeedBonus(id))
}

func TestBlitz_NoSpeedBonusOutsideWindow(t *testing.T) {
	rules := testRules()
	rules.BlitzTurn = 5 * time.Second
	rules.BlitzWindow = 0 // the window closes immediately
	s := newBlitzSession(t, 3, rules, "Ana")
	defer s.Close()

	require.True(t, s.StartTurn())
	rollAndWait(t, s)
	time.Sleep(250 * time.Millisecond)

	id := s.BlitzCategories()[0]
	ok, err := s.CommitScore(id, 9)
	require.NoError(t, err)
	require.True(t, ok)

	sheet := s.CurrentPlayer().Sheet
	v, _ := sheet.Score(id)
	assert.Equal(t, 9, v)
	assert.False(t, sheet.HasSpeedBonus(id))
}

func awaitAutoScore(t *testing.T, ch <-chan session.AutoScore) session.AutoScore {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(3 * time.Second):
		t.Fatal("timeout commit never fired")
		return session.AutoScore{}
	}
}

func TestBlitz_TimeoutWithoutRollScoresZero(t *testing.T) {
	rules := testRules()
	rules.BlitzTurn = 300 * time.Millisecond
	rules.BlitzWindow = 0

	roller := dice.NewLoggedRoller(fixedSource{face: 3}, zap.NewNop())
	s := session.New(rules, roller, zap.NewNop())
	require.True(t, s.AddPlayer(session.Player{ID: 1, Name: "Ana"}))
	require.True(t, s.AddPlayer(session.Player{ID: 2, Name: "Leo"}))

	auto := make(chan session.AutoScore, 1)
	s.SetAutoScoreHandler(func(a session.AutoScore) { auto <- a })
	require.NoError(t, s.Start(session.ModePlay, true))
	defer s.Close()

	first := s.BlitzCategories()[0]
	require.True(t, s.StartTurn())

	got := awaitAutoScore(t, auto)
	assert.Equal(t, "Ana", got.PlayerName)
	assert.Equal(t, first, got.Category)
	assert.Zero(t, got.Score, "a player who never rolled takes zero")

	assert.Equal(t, 1, s.CurrentIndex(), "the forced commit advances the turn")
	v, filled := s.Players()[0].Sheet.Score(first)
	require.True(t, filled)
	assert.Zero(t, v)
}

func TestBlitz_TimeoutAfterRollScoresPossible(t *testing.T) {
	rules := testRules()
	rules.BlitzTurn = 400 * time.Millisecond
	rules.BlitzWindow = 0

	roller := dice.NewLoggedRoller(fixedSource{face: 3}, zap.NewNop())
	s := session.New(rules, roller, zap.NewNop())
	require.True(t, s.AddPlayer(session.Player{ID: 1, Name: "Ana"}))

	auto := make(chan session.AutoScore, 1)
	s.SetAutoScoreHandler(func(a session.AutoScore) { auto <- a })
	require.NoError(t, s.Start(session.ModePlay, true))
	defer s.Close()

	require.True(t, s.StartTurn())
	r := rollAndWait(t, s)

	possible, err := scoring.PossibleScores(r.Hand)
	require.NoError(t, err)

	got := awaitAutoScore(t, auto)
	assert.Contains(t, s.BlitzCategories(), got.Category)
	assert.Equal(t, possible[got.Category], got.Score)

	v, filled := s.Players()[0].Sheet.Score(got.Category)
	require.True(t, filled)
	assert.Equal(t, got.Score, v)
}

func TestBlitz_StaleTimerIsIgnored(t *testing.T) {
	rules := testRules()
	rules.BlitzTurn = 300 * time.Millisecond
	rules.BlitzWindow = 0

	roller := dice.NewLoggedRoller(fixedSource{face: 3}, zap.NewNop())
	s := session.New(rules, roller, zap.NewNop())
	require.True(t, s.AddPlayer(session.Player{ID: 1, Name: "Ana"}))

	auto := make(chan session.AutoScore, 4)
	s.SetAutoScoreHandler(func(a session.AutoScore) { auto <- a })
	require.NoError(t, s.Start(session.ModePlay, true))
	defer s.Close()

	require.True(t, s.StartTurn())
	rollAndWait(t, s)
	id := s.BlitzCategories()[0]
	ok, err := s.CommitScore(id, 9)
	require.NoError(t, err)
	require.True(t, ok)

	// The first turn's timer must not fire after its commit.
	time.Sleep(600 * time.Millisecond)
	select {
	case a := <-auto:
		t.Fatalf("stale timer produced a commit: %+v", a)
	default:
	}

	filled := 0
	for _, cid := range s.BlitzCategories() {
		if _, ok := s.Players()[0].Sheet.Score(cid); ok {
			filled++
		}
	}
	assert.Equal(t, 1, filled, "only the manual commit landed")
}
