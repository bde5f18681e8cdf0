package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"spotifum/internal/app"
	"spotifum/shared/go/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("spotifum stopped")
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The console owns stdout, so logs go to stderr.
	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	a := app.New(repo, app.Options{
		TokenSecret: cfg.Security.JWTSecret,
		SessionTTL:  cfg.Security.SessionTTL,
		CacheSize:   cfg.Search.CacheSize,
		CacheTTL:    cfg.Search.CacheTTL,
		Seed:        cfg.Playback.Seed,
	})

	if err := bootstrapData(ctx, a, cfg.Bootstrap); err != nil {
		return err
	}

	log.Info().Str("storage", cfg.Storage.Driver).Msg("spotifum ready")
	return NewConsole(a, os.Stdin, os.Stdout, logger).Run(ctx)
}
