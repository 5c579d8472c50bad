package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autokittens/internal/config"
	"autokittens/internal/game"
	"autokittens/internal/storage"
	"autokittens/internal/transport/telegram"
	logx "autokittens/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:        strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:          strings.TrimSpace(sc.Path),
		BusyTimeout:   busy,
		RedisAddr:     sc.RedisAddr,
		RedisPassword: sc.RedisPassword,
		RedisDB:       sc.RedisDB,
		RedisKey:      sc.RedisKey,
	}, nil
}

func mapTelegramConfig(cfg *config.Config) (telegram.Config, bool, error) {
	if !cfg.Telegram.Enabled() {
		return telegram.Config{}, false, nil
	}
	poll, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, false, err
	}
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		ChatID:      cfg.Telegram.ChatID,
		ThreadID:    cfg.Telegram.ThreadID,
		Commands:    cfg.Telegram.Commands,
		PollTimeout: poll,
	}, true, nil
}

// openGame returns the unlimited client; the app owns it and closes it.
func openGame(ctx context.Context, cfg *config.Config, dryRun bool, log logx.Logger) (game.Client, error) {
	gc := cfg.Game
	if dryRun || strings.EqualFold(gc.Driver, "fake") {
		log.Info("using fake game client", logx.Bool("dry_run", dryRun), logx.Any("races", gc.Races))
		return game.NewFake(gc.Races...), nil
	}

	timeout, err := config.ParseDurationOrDefault("game.timeout", gc.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	b, err := game.OpenBrowser(ctx, game.BrowserConfig{
		URL:      gc.URL,
		Headless: gc.Headless,
		Install:  gc.Install,
		Timeout:  timeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open game: %w", err)
	}
	return b, nil
}
