// Package app wires the game model to persistence: the known-player
// roster, finished-game history, the paused-game snapshot, and the
// active session all live here, written through to the store on every
// mutation.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/history"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
	"github.com/schnitzelapp/schnitzel/internal/storage"
)

// ErrNoSavedGame is returned by Resume when no snapshot exists.
var ErrNoSavedGame = errors.New("no saved game")

// ErrNoSession is returned for game operations with no active session.
var ErrNoSession = errors.New("no active game")

// ErrGameInProgress is returned when starting over an active session.
var ErrGameInProgress = errors.New("a game is already in progress")

// Service owns all application state and persists it through the store.
// Mutating methods are safe for concurrent use.
type Service struct {
	mu     sync.Mutex
	store  storage.Store
	roller *dice.Roller
	rules  session.Rules
	logger *zap.Logger

	known   []session.Player
	history []history.Record
	saved   *session.SavedGame
	sess    *session.Session
}

// New creates a Service. Call Load before anything else.
//
// Precondition: store, roller, and logger must be non-nil.
func New(store storage.Store, roller *dice.Roller, rules session.Rules, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		roller: roller,
		rules:  rules,
		logger: logger,
	}
}

// Load reads the roster, history, and any paused snapshot from the
// store, upgrading legacy history records in place. Corrupted blobs are
// logged and degrade to empty defaults rather than failing startup.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := storage.GetJSON(ctx, s.store, storage.KeyPlayers, &s.known); err != nil {
		s.logger.Warn("players blob unreadable, starting empty", zap.Error(err))
		s.known = nil
	}
	if _, err := storage.GetJSON(ctx, s.store, storage.KeyHistory, &s.history); err != nil {
		s.logger.Warn("history blob unreadable, starting empty", zap.Error(err))
		s.history = nil
	}

	if migrated := history.MigrateAll(s.history); migrated > 0 {
		s.logger.Info("migrated legacy history records", zap.Int("count", migrated))
		if err := s.saveHistoryLocked(ctx); err != nil {
			return err
		}
	}

	var saved session.SavedGame
	found, err := storage.GetJSON(ctx, s.store, storage.KeySaved, &saved)
	switch {
	case err != nil:
		s.logger.Warn("saved game unreadable, discarding", zap.Error(err))
		_ = s.store.Delete(ctx, storage.KeySaved)
	case found:
		s.saved = &saved
	}

	s.logger.Info("state loaded",
		zap.Int("players", len(s.known)),
		zap.Int("games", len(s.history)),
		zap.Bool("saved_game", s.saved != nil),
	)
	return nil
}

// Close releases the active session's resources, if any.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		s.sess.Close()
		s.sess = nil
	}
}

// KnownPlayers returns the persistent roster.
func (s *Service) KnownPlayers() []session.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.Player(nil), s.known...)
}

// AddKnownPlayer creates and persists a new player.
//
// Precondition: name must be non-empty after trimming by the caller.
func (s *Service) AddKnownPlayer(ctx context.Context, name string) (session.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := session.NewPlayer(name)
	s.known = append(s.known, p)
	if err := s.saveRosterLocked(ctx); err != nil {
		s.known = s.known[:len(s.known)-1]
		return session.Player{}, err
	}
	s.logger.Info("player added", zap.String("name", name), zap.Int64("id", p.ID))
	return p, nil
}

// RenameKnownPlayer updates a player's name on the persistent roster.
func (s *Service) RenameKnownPlayer(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.known {
		if s.known[i].ID == id {
			s.known[i].Name = name
			return s.saveRosterLocked(ctx)
		}
	}
	return fmt.Errorf("player %d not on the roster", id)
}

// DeleteKnownPlayer removes a player from the persistent roster. Their
// history records stay; the leaderboard simply stops listing them.
func (s *Service) DeleteKnownPlayer(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.known {
		if s.known[i].ID == id {
			s.known = append(s.known[:i], s.known[i+1:]...)
			if s.sess != nil && !s.sess.Started() {
				s.sess.RemovePlayer(id)
			}
			return s.saveRosterLocked(ctx)
		}
	}
	return fmt.Errorf("player %d not on the roster", id)
}

// History returns the finished-game records, newest first.
func (s *Service) History() []history.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]history.Record(nil), s.history...)
}

// DeleteHistoryEntry drops one record.
func (s *Service) DeleteHistoryEntry(ctx context.Context, id history.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].ID == id {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return s.saveHistoryLocked(ctx)
		}
	}
	return fmt.Errorf("game %s not in history", id)
}

// Leaderboard computes the current standings.
func (s *Service) Leaderboard() []history.Standing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history.ComputeLeaderboard(s.history, s.known)
}

// Session returns the active session, or nil.
func (s *Service) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// NewSession creates an empty unstarted session for roster building.
// Any previous session is closed.
func (s *Service) NewSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		s.sess.Close()
	}
	s.sess = session.New(s.rules, s.roller, s.logger)
	return s.sess
}

// StartGame starts the active session and discards any paused snapshot;
// starting a fresh game invalidates the old save.
func (s *Service) StartGame(ctx context.Context, mode session.Mode, blitz bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return ErrNoSession
	}
	if s.sess.Started() {
		return ErrGameInProgress
	}
	if err := s.sess.Start(mode, blitz); err != nil {
		return err
	}
	return s.clearSavedLocked(ctx)
}

// HasSavedGame reports whether a paused snapshot exists.
func (s *Service) HasSavedGame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved != nil
}

// SavedGame returns the paused snapshot, or nil.
func (s *Service) SavedGame() *session.SavedGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return nil
	}
	saved := *s.saved
	return &saved
}

// Pause snapshots the active session, persists it, and closes the
// session.
func (s *Service) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || !s.sess.Started() {
		return ErrNoSession
	}
	saved := s.sess.Snapshot()
	if err := storage.PutJSON(ctx, s.store, storage.KeySaved, saved); err != nil {
		return err
	}
	s.saved = &saved
	s.sess.Close()
	s.sess = nil
	s.logger.Info("game paused")
	return nil
}

// Resume rebuilds the session from the paused snapshot. The snapshot
// stays in the store until the game finishes or a new one starts.
func (s *Service) Resume(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return nil, ErrNoSavedGame
	}
	sess, err := session.Restore(*s.saved, s.rules, s.roller, s.logger)
	if err != nil {
		return nil, err
	}
	if s.sess != nil {
		s.sess.Close()
	}
	s.sess = sess
	return sess, nil
}

// DiscardSaved drops the paused snapshot.
func (s *Service) DiscardSaved(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearSavedLocked(ctx)
}

// FinishGame finalizes the completed session, prepends the derived
// record to history, persists, and clears both the session and any
// paused snapshot.
func (s *Service) FinishGame(ctx context.Context) (history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return history.Record{}, ErrNoSession
	}
	sum, err := s.sess.Finalize()
	if err != nil {
		return history.Record{}, err
	}

	rec := history.BuildRecord(sum)
	s.history = append([]history.Record{rec}, s.history...)
	if err := s.saveHistoryLocked(ctx); err != nil {
		s.history = s.history[1:]
		return history.Record{}, err
	}

	if err := s.clearSavedLocked(ctx); err != nil {
		s.logger.Warn("clearing saved game", zap.Error(err))
	}
	s.sess.Close()
	s.sess = nil
	s.logger.Info("game recorded", zap.String("record", string(rec.ID)))
	return rec, nil
}

func (s *Service) saveRosterLocked(ctx context.Context) error {
	return storage.PutJSON(ctx, s.store, storage.KeyPlayers, s.known)
}

func (s *Service) saveHistoryLocked(ctx context.Context) error {
	return storage.PutJSON(ctx, s.store, storage.KeyHistory, s.history)
}

func (s *Service) clearSavedLocked(ctx context.Context) error {
	s.saved = nil
	return s.store.Delete(ctx, storage.KeySaved)
}
