package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/blend/internal/api"
	"github.com/npezzotti/blend/internal/assistant"
	"github.com/npezzotti/blend/internal/blend"
	"github.com/npezzotti/blend/internal/catalog"
	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/database"
	"github.com/npezzotti/blend/internal/logging"
	"github.com/npezzotti/blend/internal/presence"
	"github.com/npezzotti/blend/internal/router"
	"github.com/npezzotti/blend/internal/server"
	"github.com/npezzotti/blend/internal/stats"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("BLEND_CONFIG"), "path to a YAML config file")
	flag.Parse()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		bootLog.Fatal().Err(err).Msg("load .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.Log, os.Stdout)

	db, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open store")
	}

	statsUpdater := stats.NewStatsUpdater()
	statsUpdater.Run()

	r := router.New(logger, presence.NewRegistry[router.Conn]())

	var posters blend.PosterLookup
	if tmdb := catalog.NewTMDBClient(cfg.Catalog, logger); tmdb.Enabled() {
		posters = tmdb
	} else {
		logger.Info().Msg("catalog lookups disabled")
	}

	var gen blend.TextGenerator
	if gemini := assistant.NewGeminiClient(cfg.Assistant, logger); gemini.Enabled() {
		gen = gemini
	} else {
		logger.Info().Msg("assistant disabled")
	}

	svc := blend.NewService(logger, db, r, posters, gen, statsUpdater, blend.OptionsFromConfig(cfg))

	chatServer, err := server.NewChatServer(logger, svc, r, statsUpdater)
	if err != nil {
		logger.Fatal().Err(err).Msg("new chat server")
	}
	go chatServer.Run()

	app := api.NewBlendApp(logger, cfg, db, svc, chatServer, statsUpdater.Handler())

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("received signal")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server stopped")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("shutting down chat server...")
	if err := chatServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("chat server shutdown")
	}

	if err := svc.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("room service shutdown")
	}

	if err := db.Close(); err != nil {
		logger.Error().Err(err).Msg("close store")
	}

	statsUpdater.Stop()
	logger.Info().Msg("shutdown complete")
}

func openStore(cfg config.DatabaseConfig, logger zerolog.Logger) (database.BlendRepository, error) {
	if cfg.Driver == "postgres" {
		pg, err := database.NewPgBlendRepository(cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info().Msg("using postgres store")
		return pg, nil
	}

	bdb, err := database.NewBadgerBlendRepository(cfg.BadgerPath)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", cfg.BadgerPath).Msg("using badger store")
	return bdb, nil
}
