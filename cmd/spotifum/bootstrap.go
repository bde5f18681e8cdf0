package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"spotifum/internal/app"
	"spotifum/internal/app/users"
	"spotifum/internal/store"
	"spotifum/shared/go/config"
)

//go:embed demo_catalog.json
var demoCatalog []byte

const (
	demoUsername = "demo"
	demoPassword = "demo123"
)

func bootstrapData(ctx context.Context, a *app.App, cfg config.BootstrapConfig) error {
	if err := ensureAdmin(ctx, a, cfg); err != nil {
		return err
	}
	if cfg.ImportFile != "" {
		if _, err := a.Importer.ImportFile(ctx, cfg.ImportFile); err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
	}
	if cfg.SeedDemo {
		if err := ensureDemoData(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin creates the configured administrator on a premium plan. Without a password no
// administrator is created.
func ensureAdmin(ctx context.Context, a *app.App, cfg config.BootstrapConfig) error {
	if cfg.AdminPassword == "" {
		log.Debug().Msg("ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}

	_, err := a.Users.ByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	admin, err := a.Users.Signup(ctx, users.SignupInput{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Name:     "Administrator",
		Email:    cfg.AdminUsername + "@spotifum.local",
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if err := a.Users.SetAdmin(ctx, admin.ID, true); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if _, err := a.Users.ChangePlan(ctx, admin.ID, "premium"); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info().Str("username", admin.Username).Msg("admin account created")
	return nil
}

func ensureDemoData(ctx context.Context, a *app.App) error {
	if _, err := a.Users.Signup(ctx, users.SignupInput{
		Username: demoUsername,
		Password: demoPassword,
		Name:     "Demo Listener",
		Email:    "demo@spotifum.local",
	}); err != nil && !errors.Is(err, store.ErrInvalidParams) {
		return fmt.Errorf("bootstrap demo user: %w", err)
	}

	n, err := a.Catalog.CountMusics(ctx)
	if err != nil {
		return fmt.Errorf("count musics: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := a.Importer.Import(ctx, demoCatalog); err != nil {
		return fmt.Errorf("bootstrap demo catalog: %w", err)
	}
	return nil
}
