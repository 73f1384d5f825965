package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/scoring"
	"github.com/schnitzelapp/schnitzel/internal/game/turn"
)

// ErrNoPlayers is returned when starting a game with an empty roster.
var ErrNoPlayers = errors.New("no players in session")

// ErrNotStarted is returned for score operations before the game starts.
var ErrNotStarted = errors.New("game not started")

// ErrFinished is returned for score operations after the sheets are full.
var ErrFinished = errors.New("game already complete")

// ErrNotComplete is returned when finalizing an unfinished game.
var ErrNotComplete = errors.New("game not complete")

// ErrBlitzRequiresPlay is returned when blitz is requested outside play mode.
var ErrBlitzRequiresPlay = errors.New("blitz mode requires play mode")

// AutoScore reports a blitz-timeout forced commit.
type AutoScore struct {
	PlayerName string
	Category   scoring.CategoryID
	Score      int
}

// Session is the active game. All exported methods are safe for
// concurrent use; mutation happens only through them, never by direct
// field writes from a presentation layer.
type Session struct {
	mu      sync.Mutex
	players []*PlayerInGame
	current int

	mode     Mode
	blitz    bool
	blitzSet []scoring.CategoryID

	started   bool
	complete  bool
	startedAt time.Time

	machine *turn.Machine
	timer   *turn.BlitzTimer
	// turnSeq guards against a stale blitz timer firing after the turn
	// it belonged to has ended.
	turnSeq int

	diceHistory []int

	rules  Rules
	roller *dice.Roller
	logger *zap.Logger

	// onAutoScore, when set, is notified of blitz-timeout commits.
	onAutoScore func(AutoScore)
}

// New creates an empty, unstarted session.
//
// Precondition: roller and logger must be non-nil.
func New(rules Rules, roller *dice.Roller, logger *zap.Logger) *Session {
	return &Session{
		mode:   ModeScore,
		rules:  rules,
		roller: roller,
		logger: logger,
	}
}

// SetAutoScoreHandler registers fn to observe blitz-timeout commits.
// Must be called before Start.
func (s *Session) SetAutoScoreHandler(fn func(AutoScore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAutoScore = fn
}

// AddPlayer appends p to the roster with a fresh sheet.
//
// Guards (silent no-ops returning false): game already started, roster
// full, or the player already present.
func (s *Session) AddPlayer(p Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || len(s.players) >= MaxPlayers {
		return false
	}
	for _, pg := range s.players {
		if pg.ID == p.ID {
			return false
		}
	}
	s.players = append(s.players, &PlayerInGame{Player: p, Sheet: scoring.NewSheet()})
	return true
}

// RemovePlayer drops the player with the given ID from the roster.
//
// Guards: game already started, or ID not present.
func (s *Session) RemovePlayer(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	for i, pg := range s.players {
		if pg.ID == id {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return true
		}
	}
	return false
}

// Reorder swaps the player at index i with the one at i+dir.
//
// Guards: either index out of bounds, or the game already started.
func (s *Session) Reorder(i, dir int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	j := i + dir
	if i < 0 || i >= len(s.players) || j < 0 || j >= len(s.players) {
		return false
	}
	s.players[i], s.players[j] = s.players[j], s.players[i]
	return true
}

// Players returns a copy of the roster in turn order.
func (s *Session) Players() []PlayerInGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PlayerInGame, len(s.players))
	for i, pg := range s.players {
		out[i] = PlayerInGame{Player: pg.Player, Sheet: pg.Sheet.Clone()}
	}
	return out
}

// PlayerCount returns the roster size.
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// CurrentIndex returns the index of the player whose turn it is.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentPlayer returns the player whose turn it is.
//
// Precondition: the roster is non-empty.
func (s *Session) CurrentPlayer() PlayerInGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	pg := s.players[s.current]
	return PlayerInGame{Player: pg.Player, Sheet: pg.Sheet.Clone()}
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Blitz reports whether the session plays the blitz variant.
func (s *Session) Blitz() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blitz
}

// BlitzCategories returns the six categories a blitz game plays, in
// catalog order. Empty outside blitz mode.
func (s *Session) BlitzCategories() []scoring.CategoryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scoring.CategoryID, len(s.blitzSet))
	copy(out, s.blitzSet)
	return out
}

// Started reports whether the game has started.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// StartedAt returns the game start time (zero before Start).
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// DiceHistory returns a copy of every die value rolled this game.
func (s *Session) DiceHistory() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.diceHistory))
	copy(out, s.diceHistory)
	return out
}

// Start begins the game in the given mode.
//
// Precondition: at least one player on the roster; blitz requires play
// mode. The caller is responsible for clearing any paused-game snapshot.
// Postcondition: the turn pointer is on player 0; in play mode the dice
// machine is ready; in blitz mode six categories are selected per the
// documented policy.
func (s *Session) Start(mode Mode, blitz bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.players) == 0 {
		return ErrNoPlayers
	}
	if mode != ModeScore && mode != ModePlay {
		return fmt.Errorf("unknown mode %q", mode)
	}
	if blitz && mode != ModePlay {
		return ErrBlitzRequiresPlay
	}

	s.mode = mode
	s.blitz = blitz
	s.current = 0
	s.started = true
	s.complete = false
	s.startedAt = time.Now()
	s.diceHistory = nil

	if mode == ModePlay {
		s.machine = s.newMachine()
	}
	if blitz {
		s.blitzSet = selectBlitzCategories(s.roller.Source())
		s.logger.Info("blitz categories selected",
			zap.Any("categories", s.blitzSet),
		)
	} else {
		s.blitzSet = nil
	}

	s.logger.Info("game started",
		zap.String("mode", string(mode)),
		zap.Bool("blitz", blitz),
		zap.Int("players", len(s.players)),
	)
	return nil
}

func (s *Session) newMachine() *turn.Machine {
	maxRolls := s.rules.MaxRolls
	if s.blitz {
		maxRolls = s.rules.BlitzMaxRolls
	}
	return turn.NewMachine(s.roller, maxRolls, s.logger,
		turn.WithAnimation(s.rules.AnimTicks, s.rules.AnimInterval),
		turn.WithRollSink(func(values []int) {
			s.mu.Lock()
			s.diceHistory = append(s.diceHistory, values...)
			s.mu.Unlock()
		}),
	)
}

// categorySetLocked returns the category IDs relevant to this game's
// mode: the six blitz categories, or the full thirteen.
func (s *Session) categorySetLocked() []scoring.CategoryID {
	if s.blitz {
		return s.blitzSet
	}
	return scoring.AllCategoryIDs()
}

// CategorySet returns the category IDs relevant to this game's mode.
func (s *Session) CategorySet() []scoring.CategoryID {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.categorySetLocked()
	out := make([]scoring.CategoryID, len(set))
	copy(out, set)
	return out
}

// StartTurn begins the current player's dice turn. In blitz mode this
// arms the countdown, cancelling any prior timer first so at most one is
// live per session.
//
// Guards (silent no-ops returning false): not a play-mode game, game not
// started or already complete, or the turn already begun.
func (s *Session) StartTurn() bool {
	s.mu.Lock()
	if s.mode != ModePlay || !s.started || s.complete || s.machine == nil {
		s.mu.Unlock()
		return false
	}
	if !s.machine.StartTurn() {
		s.mu.Unlock()
		return false
	}
	if s.blitz {
		s.stopTimerLocked()
		s.armTimerLocked(s.rules.BlitzTurn)
	}
	s.mu.Unlock()
	return true
}

// Roll rolls the unheld dice, delegating to the turn machine's guards.
func (s *Session) Roll(onDone func(turn.RollResult)) bool {
	s.mu.Lock()
	m := s.machine
	blocked := s.mode != ModePlay || !s.started || s.complete || m == nil
	s.mu.Unlock()
	if blocked {
		return false
	}
	return m.Roll(onDone)
}

// ToggleHold flips the hold flag on die i, delegating to the machine's
// guards.
func (s *Session) ToggleHold(i int) bool {
	s.mu.Lock()
	m := s.machine
	blocked := s.mode != ModePlay || !s.started || s.complete || m == nil
	s.mu.Unlock()
	if blocked {
		return false
	}
	return m.ToggleHold(i)
}

// Dice returns the turn machine's current snapshot. The zero Snapshot is
// returned outside play mode.
func (s *Session) Dice() turn.Snapshot {
	s.mu.Lock()
	m := s.machine
	s.mu.Unlock()
	if m == nil {
		return turn.Snapshot{}
	}
	return m.Snapshot()
}

// TimerRemaining returns the seconds left on the blitz countdown, or 0
// when no timer is live.
func (s *Session) TimerRemaining() float64 {
	s.mu.Lock()
	t := s.timer
	s.mu.Unlock()
	if t == nil || t.Stopped() {
		return 0
	}
	return t.Remaining()
}

// CommitScore writes value into the current player's sheet for the given
// category and advances the turn.
//
// Guards (silent no-ops returning false): category already filled, or —
// in blitz mode — a category outside the blitz set.
// Errors: game not started or already complete, unknown category.
//
// Side effects on acceptance: in blitz mode a commit inside the bonus
// window earns +5 and a speed-bonus marker; in play mode a rolled Yahtzee
// on a sheet that already holds yahtzee=50 earns the +100 bonus
// automatically; the blitz timer is cancelled; if every player's sheet is
// now complete the session transitions to ready-to-finish and the turn
// pointer stays put, otherwise the turn advances round-robin and the dice
// reset for the next player.
func (s *Session) CommitScore(id scoring.CategoryID, value int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(id, value, false)
}

// CommitScoreAuto commits the current hand's possible score for the
// given category. Play-mode convenience for picking a category straight
// off the score preview.
//
// Guards and errors as CommitScore; additionally errors outside play
// mode.
func (s *Session) CommitScoreAuto(id scoring.CategoryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModePlay || s.machine == nil {
		return false, errors.New("auto scoring requires play mode")
	}
	possible, err := scoring.PossibleScores(s.machine.Hand())
	if err != nil {
		return false, err
	}
	value, ok := possible[id]
	if !ok {
		return false, fmt.Errorf("category %q: %w", id, scoring.ErrUnknownCategory)
	}
	return s.commitLocked(id, value, false)
}

func (s *Session) commitLocked(id scoring.CategoryID, value int, forced bool) (bool, error) {
	if !s.started {
		return false, ErrNotStarted
	}
	if s.complete {
		return false, ErrFinished
	}
	if _, ok := scoring.Lookup(id); !ok {
		return false, fmt.Errorf("category %q: %w", id, scoring.ErrUnknownCategory)
	}
	if s.blitz && !s.inBlitzSetLocked(id) {
		return false, fmt.Errorf("category %q is not played in this blitz game", id)
	}

	pg := s.players[s.current]
	if _, filled := pg.Sheet.Score(id); filled {
		return false, nil
	}

	// Automatic Yahtzee bonus: dice modes detect a repeat Yahtzee at
	// commit time. Score mode uses the explicit ClaimBonus gesture.
	if s.mode == ModePlay && !forced && s.machine != nil && s.machine.HasRolled() {
		if prior, ok := pg.Sheet.Score(scoring.Yahtzee); ok && prior == 50 && scoring.IsYahtzee(s.machine.Hand()) {
			pg.Sheet.AddYahtzeeBonus()
			s.logger.Info("yahtzee bonus awarded", zap.String("player", pg.Name))
		}
	}

	if s.blitz && !forced && s.timer != nil && !s.timer.Stopped() && s.timer.InBonusWindow() {
		value += SpeedBonusPoints
		pg.Sheet.MarkSpeedBonus(id)
		s.logger.Info("speed bonus awarded",
			zap.String("player", pg.Name),
			zap.String("category", string(id)),
		)
	}

	if err := pg.Sheet.Set(id, value); err != nil {
		return false, err
	}
	s.logger.Debug("score committed",
		zap.String("player", pg.Name),
		zap.String("category", string(id)),
		zap.Int("value", value),
	)

	s.endTurnLocked()

	if s.isCompleteLocked() {
		s.complete = true
		s.logger.Info("all sheets complete")
		return true, nil
	}

	s.current = (s.current + 1) % len(s.players)
	return true, nil
}

// endTurnLocked cancels the live timer, resets the dice machine, and
// bumps the turn sequence so stale timer callbacks become no-ops.
func (s *Session) endTurnLocked() {
	s.turnSeq++
	s.stopTimerLocked()
	if s.machine != nil {
		s.machine.Reset()
	}
}

func (s *Session) inBlitzSetLocked(id scoring.CategoryID) bool {
	for _, c := range s.blitzSet {
		if c == id {
			return true
		}
	}
	return false
}

// ClaimBonus adds 100 Yahtzee bonus points for the current player.
// This is the manual gesture for score mode, which has no dice to detect
// repeat Yahtzees automatically.
//
// Guards (silent no-ops returning false): not score mode, game not
// active, or the current player's yahtzee is not 50.
func (s *Session) ClaimBonus() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeScore || !s.started || s.complete {
		return false
	}
	pg := s.players[s.current]
	v, ok := pg.Sheet.Score(scoring.Yahtzee)
	if !ok || v != 50 {
		return false
	}
	pg.Sheet.AddYahtzeeBonus()
	s.logger.Info("yahtzee bonus claimed", zap.String("player", pg.Name))
	return true
}

// ClearScore sets the current player's category back to unfilled (undo).
//
// Guards: game not active. Errors: unknown category.
func (s *Session) ClearScore(id scoring.CategoryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.complete {
		return false, nil
	}
	pg := s.players[s.current]
	if _, filled := pg.Sheet.Score(id); !filled {
		if _, ok := scoring.Lookup(id); !ok {
			return false, fmt.Errorf("category %q: %w", id, scoring.ErrUnknownCategory)
		}
		return false, nil
	}
	if err := pg.Sheet.Clear(id); err != nil {
		return false, err
	}
	return true, nil
}

// SwitchPlayer moves the turn pointer to index i, resetting the dice for
// the new turn. Used for out-of-order manual entry.
//
// Guards: i out of bounds, i already current, or game not active.
func (s *Session) SwitchPlayer(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.complete || i == s.current || i < 0 || i >= len(s.players) {
		return false
	}
	s.endTurnLocked()
	s.current = i
	return true
}

// IsComplete reports whether every category relevant to the mode is
// filled for every player.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompleteLocked()
}

func (s *Session) isCompleteLocked() bool {
	if len(s.players) == 0 {
		return false
	}
	set := s.categorySetLocked()
	for _, pg := range s.players {
		if !pg.Sheet.Complete(set) {
			return false
		}
	}
	return true
}

// FinishEarly fills every remaining unfilled category with 0 for every
// player, completing the game. An explicit user-confirmed override of
// normal completion.
//
// Precondition: the game has started.
func (s *Session) FinishEarly() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	set := s.categorySetLocked()
	for _, pg := range s.players {
		pg.Sheet.FillUnfilledWithZero(set)
	}
	s.endTurnLocked()
	s.complete = true
	s.logger.Info("game finished early")
	return nil
}

// Summary is the immutable result of a finished game, consumed by the
// history record builder. Sheets are deep copies.
type Summary struct {
	Mode        Mode
	Blitz       bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Players     []PlayerResult
	DiceHistory []int
}

// PlayerResult is one player's final standing.
type PlayerResult struct {
	ID    int64
	Name  string
	Sheet *scoring.Sheet
	Total int
}

// Finalize stops any live timer and returns the finished game's summary.
// It does not persist anything; the caller appends the derived record to
// history and clears the session.
//
// Precondition: IsComplete() (normally, or via FinishEarly).
func (s *Session) Finalize() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return Summary{}, ErrNotStarted
	}
	if !s.isCompleteLocked() {
		return Summary{}, ErrNotComplete
	}
	s.endTurnLocked()
	s.complete = true

	out := Summary{
		Mode:        s.mode,
		Blitz:       s.blitz,
		StartedAt:   s.startedAt,
		FinishedAt:  time.Now(),
		Players:     make([]PlayerResult, len(s.players)),
		DiceHistory: append([]int(nil), s.diceHistory...),
	}
	for i, pg := range s.players {
		sheet := pg.Sheet.Clone()
		out.Players[i] = PlayerResult{
			ID:    pg.ID,
			Name:  pg.Name,
			Sheet: sheet,
			Total: sheet.GrandTotal(s.blitz),
		}
	}
	return out, nil
}

// Close releases the session's timer resources. Safe to call multiple
// times.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnSeq++
	s.stopTimerLocked()
}
