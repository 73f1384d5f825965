// Package console implements the interactive line-command frontend: a
// prompt/dispatch loop over standard input driving the application
// service.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/app"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
	"github.com/schnitzelapp/schnitzel/internal/game/turn"
)

// Frontend reads commands line by line and executes them against the
// service. It implements the lifecycle Service interface; a clean Start
// return (quit command or end of input) shuts the application down.
type Frontend struct {
	svc    *app.Service
	in     io.Reader
	out    io.Writer
	logger *zap.Logger

	revealDelay time.Duration
	stopped     atomic.Bool
}

// New creates a Frontend reading from in and writing to out.
//
// Precondition: svc and logger must be non-nil.
func New(svc *app.Service, in io.Reader, out io.Writer, revealDelay time.Duration, logger *zap.Logger) *Frontend {
	return &Frontend{
		svc:         svc,
		in:          in,
		out:         out,
		logger:      logger,
		revealDelay: revealDelay,
	}
}

// Start runs the command loop until quit, end of input, or Stop.
func (f *Frontend) Start() error {
	ctx := context.Background()
	f.logger.Info("console frontend started")
	f.printf("Schnitzel scorekeeper. Type 'help' for commands.\n")
	if f.svc.HasSavedGame() {
		f.printf("A paused game is waiting. 'resume' to continue or 'discard' to drop it.\n")
	}

	scanner := bufio.NewScanner(f.in)
	f.prompt()
	for scanner.Scan() {
		if f.stopped.Load() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			f.prompt()
			continue
		}
		fields := strings.Fields(line)
		verb, args := strings.ToLower(fields[0]), fields[1:]
		if verb == "quit" || verb == "exit" {
			f.logger.Info("console frontend exiting")
			return nil
		}
		f.dispatch(ctx, verb, args)
		f.prompt()
	}
	return scanner.Err()
}

// Stop makes the loop exit after the current command. Reading cannot be
// interrupted portably, so a blocked Start also returns when its input
// closes.
func (f *Frontend) Stop() {
	f.stopped.Store(true)
}

func (f *Frontend) prompt() {
	fmt.Fprint(f.out, "> ")
}

func (f *Frontend) printf(format string, args ...any) {
	fmt.Fprintf(f.out, format, args...)
}

func (f *Frontend) dispatch(ctx context.Context, verb string, args []string) {
	var err error
	switch verb {
	case "help":
		f.printHelp()
	case "players":
		f.cmdPlayers()
	case "add":
		err = f.cmdAdd(ctx, args)
	case "rename":
		err = f.cmdRename(ctx, args)
	case "delplayer":
		err = f.cmdDeletePlayer(ctx, args)
	case "new":
		f.svc.NewSession()
		f.printf("New game. 'join <player#>' to build the roster, then 'start'.\n")
	case "join":
		err = f.cmdJoin(args)
	case "order":
		err = f.cmdOrder(args)
	case "start":
		err = f.cmdStart(ctx, args)
	case "sheet":
		err = f.cmdSheet()
	case "dice":
		err = f.cmdDice()
	case "roll":
		err = f.cmdRoll()
	case "hold":
		err = f.cmdHold(args)
	case "score":
		err = f.cmdScore(args)
	case "bonus":
		err = f.cmdBonus()
	case "clear":
		err = f.cmdClear(args)
	case "switch":
		err = f.cmdSwitch(args)
	case "timer":
		err = f.cmdTimer()
	case "pause":
		if err = f.svc.Pause(ctx); err == nil {
			f.printf("Game paused and saved.\n")
		}
	case "resume":
		err = f.cmdResume(ctx)
	case "discard":
		if err = f.svc.DiscardSaved(ctx); err == nil {
			f.printf("Saved game discarded.\n")
		}
	case "finish":
		err = f.cmdFinish(ctx, args)
	case "history":
		f.cmdHistory()
	case "delgame":
		err = f.cmdDeleteGame(ctx, args)
	case "leaderboard":
		f.cmdLeaderboard()
	case "export":
		err = f.cmdExport(args)
	case "import":
		err = f.cmdImport(ctx, args)
	default:
		f.printf("Unknown command %q. Type 'help'.\n", verb)
	}
	if err != nil {
		f.printf("error: %v\n", err)
	}
}

func (f *Frontend) printHelp() {
	f.printf(`Roster:
  players                 list known players
  add <name>              create a player
  rename <id> <name>      rename a player
  delplayer <id>          delete a player

Game:
  new                     begin building a game roster
  join <player#>          toggle a known player in or out of the game
  order <pos> <up|down>   reorder the game roster
  start <score|play> [blitz]
  sheet                   show all score sheets
  roll / hold <die#> / dice
  score <category> [value]
  bonus                   claim a Yahtzee bonus (score mode)
  clear <category>        undo a score
  switch <player#>        jump to another player's turn
  timer                   show the blitz countdown
  pause / resume / discard
  finish [early]          record the game

Records:
  history / delgame <id>
  leaderboard
  export <file> / import <file>
  quit
`)
}

func (f *Frontend) session() (*session.Session, error) {
	sess := f.svc.Session()
	if sess == nil {
		return nil, app.ErrNoSession
	}
	return sess, nil
}

func (f *Frontend) cmdPlayers() {
	known := f.svc.KnownPlayers()
	if len(known) == 0 {
		f.printf("No players yet. 'add <name>' to create one.\n")
		return
	}
	for i, p := range known {
		f.printf("%2d. %s (id %d)\n", i+1, p.Name, p.ID)
	}
}

func (f *Frontend) cmdAdd(ctx context.Context, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("usage: add <name>")
	}
	p, err := f.svc.AddKnownPlayer(ctx, name)
	if err != nil {
		return err
	}
	f.printf("Added %s.\n", p.Name)
	return nil
}

func (f *Frontend) cmdRename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: rename <id> <name>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad player id %q", args[0])
	}
	return f.svc.RenameKnownPlayer(ctx, id, strings.Join(args[1:], " "))
}

func (f *Frontend) cmdDeletePlayer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delplayer <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad player id %q", args[0])
	}
	return f.svc.DeleteKnownPlayer(ctx, id)
}

// cmdJoin toggles a known player in or out of the unstarted game
// roster, mirroring the setup screen's tap behavior.
func (f *Frontend) cmdJoin(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: join <player#>")
	}
	n, err := strconv.Atoi(args[0])
	known := f.svc.KnownPlayers()
	if err != nil || n < 1 || n > len(known) {
		return fmt.Errorf("no known player #%s", args[0])
	}
	p := known[n-1]
	for _, ig := range sess.Players() {
		if ig.ID == p.ID {
			sess.RemovePlayer(p.ID)
			f.printf("%s leaves the game.\n", p.Name)
			return nil
		}
	}
	if !sess.AddPlayer(p) {
		return fmt.Errorf("cannot add %s (game started or full)", p.Name)
	}
	f.printf("%s joins the game (%d playing).\n", p.Name, sess.PlayerCount())
	return nil
}

func (f *Frontend) cmdOrder(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: order <pos> <up|down>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad position %q", args[0])
	}
	dir := 0
	switch args[1] {
	case "up":
		dir = -1
	case "down":
		dir = 1
	default:
		return fmt.Errorf("direction must be up or down")
	}
	if !sess.Reorder(n-1, dir) {
		return fmt.Errorf("cannot move position %d %s", n, args[1])
	}
	return nil
}

func (f *Frontend) cmdStart(ctx context.Context, args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: start <score|play> [blitz]")
	}
	mode := session.Mode(args[0])
	blitz := len(args) > 1 && strings.EqualFold(args[1], "blitz")
	if err := f.svc.StartGame(ctx, mode, blitz); err != nil {
		return err
	}
	f.printf("Game on: %s mode", mode)
	if blitz {
		f.printf(" (blitz: %s)", joinCategories(sess.BlitzCategories()))
	}
	f.printf(". %s goes first.\n", sess.CurrentPlayer().Name)
	if mode == session.ModePlay {
		f.startTurn(sess)
	}
	return nil
}

// startTurn begins the next dice turn, arming the blitz countdown when
// relevant.
func (f *Frontend) startTurn(sess *session.Session) {
	if sess.StartTurn() && sess.Blitz() {
		f.printf("%.0f seconds on the clock!\n", sess.TimerRemaining())
	}
}

func (f *Frontend) cmdRoll() error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	done := make(chan turn.RollResult, 1)
	if !sess.Roll(func(r turn.RollResult) { done <- r }) {
		return fmt.Errorf("cannot roll now")
	}
	r := <-done
	if r.Cancelled {
		f.printf("The turn ended before the dice landed.\n")
		return nil
	}
	f.printf("Roll %d: %s\n", r.RollCount, formatDice(r.Hand, sess.Dice().Held))
	if r.Yahtzee {
		f.printf("SCHNITZEL! Five of a kind!\n")
	}
	return nil
}

func (f *Frontend) cmdHold(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: hold <die#>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > 5 {
		return fmt.Errorf("die number must be 1-5")
	}
	if !sess.ToggleHold(n - 1) {
		return fmt.Errorf("cannot hold dice now")
	}
	snap := sess.Dice()
	f.printf("%s\n", formatDice(snap.Hand, snap.Held))
	return nil
}

func (f *Frontend) cmdDice() error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if sess.Mode() != session.ModePlay {
		return fmt.Errorf("no dice in score mode")
	}
	snap := sess.Dice()
	f.printf("%s (roll %d of %d)\n", formatDice(snap.Hand, snap.Held), snap.RollCount, snap.MaxRolls)
	if snap.RollCount > 0 {
		f.printPossible(sess, snap.Hand)
	}
	return nil
}

func (f *Frontend) cmdScore(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: score <category> [value]")
	}
	id := scoring.CategoryID(args[0])
	player := sess.CurrentPlayer().Name

	var ok bool
	if len(args) >= 2 {
		value, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("bad value %q", args[1])
		}
		ok, err = sess.CommitScore(id, value)
	} else {
		if sess.Mode() != session.ModePlay {
			return fmt.Errorf("score mode needs a value: score <category> <value>")
		}
		ok, err = sess.CommitScoreAuto(id)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is already filled", id)
	}

	v, _ := playerScore(sess, player, id)
	f.printf("%s takes %d in %s.\n", player, v, id)
	if sess.IsComplete() {
		f.printf("All sheets complete. 'finish' to record the game.\n")
		return nil
	}
	f.printf("Next up: %s.\n", sess.CurrentPlayer().Name)
	if sess.Mode() == session.ModePlay {
		f.startTurn(sess)
	}
	return nil
}

func (f *Frontend) cmdBonus() error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if !sess.ClaimBonus() {
		return fmt.Errorf("no bonus to claim (needs a 50 in yahtzee, score mode only)")
	}
	f.printf("+100 bonus for %s!\n", sess.CurrentPlayer().Name)
	return nil
}

func (f *Frontend) cmdClear(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: clear <category>")
	}
	ok, err := sess.ClearScore(scoring.CategoryID(args[0]))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not filled", args[0])
	}
	f.printf("%s cleared.\n", args[0])
	return nil
}

func (f *Frontend) cmdSwitch(args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: switch <player#>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad player number %q", args[0])
	}
	if !sess.SwitchPlayer(n - 1) {
		return fmt.Errorf("cannot switch to player %d", n)
	}
	f.printf("Now scoring for %s.\n", sess.CurrentPlayer().Name)
	if sess.Mode() == session.ModePlay {
		f.startTurn(sess)
	}
	return nil
}

func (f *Frontend) cmdTimer() error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if !sess.Blitz() {
		return fmt.Errorf("no countdown outside blitz")
	}
	f.printf("%.1f seconds left.\n", sess.TimerRemaining())
	return nil
}

func (f *Frontend) cmdResume(ctx context.Context) error {
	sess, err := f.svc.Resume(ctx)
	if err != nil {
		return err
	}
	f.printf("Game resumed: %s mode, %d players, %s to play.\n",
		sess.Mode(), sess.PlayerCount(), sess.CurrentPlayer().Name)
	return nil
}

func (f *Frontend) cmdFinish(ctx context.Context, args []string) error {
	sess, err := f.session()
	if err != nil {
		return err
	}
	if !sess.IsComplete() {
		if len(args) < 1 || args[0] != "early" {
			return fmt.Errorf("sheets are not complete; 'finish early' fills the rest with 0")
		}
		if err := sess.FinishEarly(); err != nil {
			return err
		}
	}

	// Standings come from the record so what we show is what history
	// stores.
	rec, err := f.svc.FinishGame(ctx)
	if err != nil {
		return err
	}
	f.revealStandings(rec)
	f.printRollStats(rec.DiceHistory)
	return nil
}

func (f *Frontend) cmdHistory() {
	recs := f.svc.History()
	if len(recs) == 0 {
		f.printf("No games recorded yet.\n")
		return
	}
	for _, rec := range recs {
		f.printf("%s", formatRecord(rec))
	}
}

func (f *Frontend) cmdDeleteGame(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delgame <id>")
	}
	return f.svc.DeleteHistoryEntry(ctx, historyID(args[0]))
}

func (f *Frontend) cmdLeaderboard() {
	board := f.svc.Leaderboard()
	if len(board) == 0 {
		f.printf("No finished games yet, nothing to rank.\n")
		return
	}
	f.printf("%s", formatLeaderboard(board))
}

func (f *Frontend) cmdExport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <file>")
	}
	data, err := f.svc.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", args[0], err)
	}
	f.printf("Exported to %s.\n", args[0])
	return nil
}

func (f *Frontend) cmdImport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %q: %w", args[0], err)
	}
	report, err := f.svc.Import(ctx, data)
	if err != nil {
		return err
	}
	f.printf("Imported %d players and %d games.\n", report.PlayersAdded, report.GamesAdded)
	return nil
}
