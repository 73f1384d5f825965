// Package main provides the schnitzel binary: the interactive console
// scorekeeper over a file or PostgreSQL store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/schnitzelapp/schnitzel/internal/app"
	"github.com/schnitzelapp/schnitzel/internal/config"
	"github.com/schnitzelapp/schnitzel/internal/frontend/console"
	"github.com/schnitzelapp/schnitzel/internal/game/dice"
	"github.com/schnitzelapp/schnitzel/internal/game/session"
	"github.com/schnitzelapp/schnitzel/internal/observability"
	"github.com/schnitzelapp/schnitzel/internal/server"
	"github.com/schnitzelapp/schnitzel/internal/storage"
	"github.com/schnitzelapp/schnitzel/internal/storage/file"
	"github.com/schnitzelapp/schnitzel/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	flag.Parse()

	ctx := context.Background()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	logger.Info("store opened", zap.String("backend", cfg.Storage.Backend))

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	svc := app.New(store, roller, rulesFrom(cfg), logger)
	if err := svc.Load(ctx); err != nil {
		logger.Fatal("loading application state", zap.Error(err))
	}
	defer svc.Close()
	logger.Info("application loaded",
		zap.Int("players", len(svc.KnownPlayers())),
		zap.Int("games", len(svc.History())),
		zap.Bool("saved_game", svc.HasSavedGame()),
		zap.Duration("elapsed", time.Since(start)),
	)

	frontend := console.New(svc, os.Stdin, os.Stdout, cfg.Reveal.StepInterval, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("console", frontend)
	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("runtime error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.Storage.Backend == "postgres" {
		return postgres.OpenStore(ctx, cfg.Database)
	}
	return file.New(cfg.Storage.DataDir)
}

func rulesFrom(cfg config.Config) session.Rules {
	return session.Rules{
		MaxRolls:      cfg.Rules.MaxRolls,
		BlitzMaxRolls: cfg.Rules.BlitzMaxRolls,
		BlitzTurn:     time.Duration(cfg.Rules.BlitzTurnSeconds * float64(time.Second)),
		BlitzWindow:   time.Duration(cfg.Rules.BlitzBonusWindowSeconds * float64(time.Second)),
		AnimTicks:     cfg.Dice.AnimationTicks,
		AnimInterval:  cfg.Dice.TickInterval,
	}
}
