package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/game/history"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
)

// ExportVersion is the data-exchange format version.
const ExportVersion = 1

// ExportData is the portable backup format: the full roster and history
// in one document. The field names match the original export files so
// old backups import cleanly.
type ExportData struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Players    []session.Player `json:"players"`
	History    []history.Record `json:"history"`
}

// ImportReport summarizes what an import added.
type ImportReport struct {
	PlayersAdded int
	GamesAdded   int
}

// Export serializes the roster and history for backup.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Players:    s.known,
		History:    s.history,
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return out, nil
}

// Import merges a backup into the current state: players and games
// already present (by ID) are skipped, imported legacy records are
// upgraded, and history is re-sorted newest first. A malformed payload
// is a recoverable error; nothing changes.
func (s *Service) Import(ctx context.Context, raw []byte) (ImportReport, error) {
	var data ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return ImportReport{}, fmt.Errorf("parsing import: %w", err)
	}
	if data.Players == nil || data.History == nil {
		return ImportReport{}, fmt.Errorf("invalid import: players and history are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var report ImportReport

	knownIDs := make(map[int64]bool, len(s.known))
	for _, p := range s.known {
		knownIDs[p.ID] = true
	}
	mergedPlayers := append([]session.Player(nil), s.known...)
	for _, p := range data.Players {
		if !knownIDs[p.ID] {
			mergedPlayers = append(mergedPlayers, p)
			report.PlayersAdded++
		}
	}

	recordIDs := make(map[history.RecordID]bool, len(s.history))
	for _, rec := range s.history {
		recordIDs[rec.ID] = true
	}
	mergedHistory := append([]history.Record(nil), s.history...)
	for _, rec := range data.History {
		if recordIDs[rec.ID] {
			continue
		}
		upgraded, _ := history.MigrateLegacy(rec)
		mergedHistory = append(mergedHistory, upgraded)
		report.GamesAdded++
	}
	history.SortByDateDesc(mergedHistory)

	// Persist both before swapping state in, so a storage failure
	// leaves memory and store consistent.
	prevKnown, prevHistory := s.known, s.history
	s.known, s.history = mergedPlayers, mergedHistory
	if err := s.saveRosterLocked(ctx); err != nil {
		s.known, s.history = prevKnown, prevHistory
		return ImportReport{}, err
	}
	if err := s.saveHistoryLocked(ctx); err != nil {
		s.known, s.history = prevKnown, prevHistory
		return ImportReport{}, err
	}

	s.logger.Info("import merged",
		zap.Int("players_added", report.PlayersAdded),
		zap.Int("games_added", report.GamesAdded),
	)
	return report, nil
}
