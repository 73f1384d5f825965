package console_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/app"
	"github.com/schnitzelapp/schnitzel/internal/frontend/console"
	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
	"github.com/schnitzelapp/schnitzel/internal/storage/file"
)

type fixedSource struct{ face int }

func (f fixedSource) Intn(n int) int { return (f.face - 1) % n }

func testRules() session.Rules {
	return session.Rules{
		MaxRolls:      3,
		BlitzMaxRolls: 2,
		BlitzTurn:     15 * time.Second,
		BlitzWindow:   15 * time.Second,
		AnimTicks:     1,
		AnimInterval:  time.Millisecond,
	}
}

func newService(t *testing.T, dir string, src dice.Source) *app.Service {
	t.Helper()
	store, err := file.New(dir)
	require.NoError(t, err)
	roller := dice.NewLoggedRoller(src, zap.NewNop())
	svc := app.New(store, roller, testRules(), zap.NewNop())
	require.NoError(t, svc.Load(context.Background()))
	t.Cleanup(svc.Close)
	return svc
}

// run feeds a scripted session through the frontend and returns
// everything it printed.
func run(t *testing.T, svc *app.Service, script string) string {
	t.Helper()
	var out bytes.Buffer
	f := console.New(svc, strings.NewReader(script), &out, 0, zap.NewNop())
	require.NoError(t, f.Start())
	return out.String()
}

func TestConsole_QuitAndEOF(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, "quit\n")
	assert.Contains(t, out, "Schnitzel scorekeeper")

	// End of input without quit is also a clean exit.
	out = run(t, svc, "")
	assert.Contains(t, out, "> ")
}

func TestConsole_UnknownCommand(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})
	out := run(t, svc, "frobnicate\nquit\n")
	assert.Contains(t, out, `Unknown command "frobnicate"`)
}

func TestConsole_RosterCommands(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"players",
		"add Ana",
		"add Leo Martinez",
		"players",
		"quit",
	}, "\n")+"\n")

	assert.Contains(t, out, "No players yet")
	assert.Contains(t, out, "Added Ana.")
	assert.Contains(t, out, "Added Leo Martinez.")
	assert.Contains(t, out, " 1. Ana")
	assert.Contains(t, out, " 2. Leo Martinez")
	require.Len(t, svc.KnownPlayers(), 2)
}

func TestConsole_ScoreModeGame(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"add Leo",
		"new",
		"join 1",
		"join 2",
		"start score",
		"score fives 25",
		"score chance 17",
		"sheet",
		"quit",
	}, "\n")+"\n")

	assert.Contains(t, out, "Ana joins the game (1 playing).")
	assert.Contains(t, out, "Game on: score mode. Ana goes first.")
	assert.Contains(t, out, "Ana takes 25 in fives.")
	assert.Contains(t, out, "Next up: Leo.")
	assert.Contains(t, out, "Leo takes 17 in chance.")
	assert.Contains(t, out, "Next up: Ana.")

	sess := svc.Session()
	require.NotNil(t, sess)
	v, ok := sess.Players()[0].Sheet.Score("fives")
	require.True(t, ok)
	assert.Equal(t, 25, v)
}

func TestConsole_JoinTogglesOut(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"new",
		"join 1",
		"join 1",
		"start score",
		"quit",
	}, "\n")+"\n")

	assert.Contains(t, out, "Ana leaves the game.")
	// The roster emptied out again, so the game cannot start.
	assert.Contains(t, out, "error:")
}

func TestConsole_GuardsWithoutSession(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, "roll\nsheet\nfinish\nquit\n")
	assert.Contains(t, out, "error: no active game")
}

func TestConsole_PlayModeRollHoldScore(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"new",
		"join 1",
		"start play",
		"roll",
		"hold 1",
		"dice",
		"roll",
		"score fives",
		"quit",
	}, "\n")+"\n")

	// A constant source rolls all fives, which is five of a kind.
	assert.Contains(t, out, "Roll 1:")
	assert.Contains(t, out, "SCHNITZEL! Five of a kind!")
	assert.Contains(t, out, "[5]")
	assert.Contains(t, out, "(roll 1 of 3)")
	assert.Contains(t, out, "open:")
	assert.Contains(t, out, "Ana takes 25 in fives.")
}

func TestConsole_FinishEarlyRequiresConfirmation(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"add Leo",
		"new",
		"join 1",
		"join 2",
		"start score",
		"score fives 25",
		"finish",
		"finish early",
		"history",
		"quit",
	}, "\n")+"\n")

	assert.Contains(t, out, "'finish early' fills the rest with 0")
	// Standings reveal: Ana's 25 beats Leo's zero sheet.
	assert.Contains(t, out, "1. Ana with 25")
	assert.Contains(t, out, "2. Leo with 0")
	assert.Contains(t, out, "Ana wins!")
	require.Len(t, svc.History(), 1)
	assert.Nil(t, svc.Session())
}

func TestConsole_TieAwardsNobody(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"add Leo",
		"new",
		"join 1",
		"join 2",
		"start score",
		"score chance 20",
		"score chance 20",
		"finish early",
		"quit",
	}, "\n")+"\n")

	assert.Contains(t, out, "A tie at 20. Nobody takes the win.")
}

func TestConsole_PauseResumeDiscard(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, dir, fixedSource{face: 5})

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"new",
		"join 1",
		"start score",
		"score chance 17",
		"pause",
		"quit",
	}, "\n")+"\n")
	assert.Contains(t, out, "Game paused and saved.")
	assert.True(t, svc.HasSavedGame())

	// A fresh service over the same store offers the saved game.
	svc2 := newService(t, dir, fixedSource{face: 5})
	out = run(t, svc2, "resume\nquit\n")
	assert.Contains(t, out, "A paused game is waiting.")
	assert.Contains(t, out, "Game resumed: score mode, 1 players, Ana to play.")
	v, ok := svc2.Session().Players()[0].Sheet.Score("chance")
	require.True(t, ok)
	assert.Equal(t, 17, v)

	svc3 := newService(t, dir, fixedSource{face: 5})
	out = run(t, svc3, "discard\nquit\n")
	assert.Contains(t, out, "Saved game discarded.")
	assert.False(t, svc3.HasSavedGame())
}

func TestConsole_ExportImportFiles(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, dir, fixedSource{face: 5})
	path := filepath.Join(t.TempDir(), "backup.json")

	out := run(t, svc, strings.Join([]string{
		"add Ana",
		"new",
		"join 1",
		"start score",
		"score chance 17",
		"finish early",
		"export " + path,
		"quit",
	}, "\n")+"\n")
	assert.Contains(t, out, "Exported to "+path)

	fresh := newService(t, t.TempDir(), fixedSource{face: 5})
	out = run(t, fresh, "import "+path+"\nleaderboard\nquit\n")
	assert.Contains(t, out, "Imported 1 players and 1 games.")
	assert.Contains(t, out, "Ana")
	require.Len(t, fresh.History(), 1)
}

func TestConsole_HistoryAndDelete(t *testing.T) {
	svc := newService(t, t.TempDir(), fixedSource{face: 5})

	run(t, svc, strings.Join([]string{
		"add Ana",
		"new",
		"join 1",
		"start score",
		"score chance 17",
		"finish early",
		"quit",
	}, "\n")+"\n")
	require.Len(t, svc.History(), 1)
	id := svc.History()[0].ID

	out := run(t, svc, "history\ndelgame "+string(id)+"\nhistory\nquit\n")
	assert.Contains(t, out, string(id))
	assert.Contains(t, out, "No games recorded yet.")
	assert.Empty(t, svc.History())
}
