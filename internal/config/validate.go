package config

import (
	"errors"
	"fmt"
	"strings"

	logx "autokittens/pkg/logx"
)

const (
	DefaultGameURL         = "https://kittensgame.com/web/"
	DefaultHTTPAddr        = "127.0.0.1:8089"
	DefaultIntervalMinutes = 4
)

// ApplyDefaults fills zero values in place.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Game.Driver == "" {
		c.Game.Driver = "browser"
	}
	if c.Game.URL == "" {
		c.Game.URL = DefaultGameURL
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.Tasks.DefaultIntervalMinutes <= 0 {
		c.Tasks.DefaultIntervalMinutes = DefaultIntervalMinutes
	}
	if c.Tasks.LoopQueue <= 0 {
		c.Tasks.LoopQueue = 256
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(c.Game.Driver)) {
	case "", "browser", "fake":
	default:
		add(fmt.Errorf("game.driver: unknown driver %q", c.Game.Driver))
	}
	if c.Game.RatePerSec < 0 {
		add(errors.New("game.rate_per_sec: must be >= 0"))
	}
	if c.Game.Burst < 0 {
		add(errors.New("game.burst: must be >= 0"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "none", "memory":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			add(fmt.Errorf("storage.path: required for driver %q", c.Storage.Driver))
		}
	case "redis":
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			add(errors.New("storage.redis_addr: required for driver \"redis\""))
		}
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}

	if c.Logging.Telegram.Enabled && !c.Telegram.Enabled() {
		add(errors.New("logging.telegram: requires telegram.token and telegram.chat_id"))
	}
	if c.Telegram.Commands && !c.Telegram.Enabled() {
		add(errors.New("telegram.commands: requires telegram.token and telegram.chat_id"))
	}
	if c.Tasks.DefaultIntervalMinutes < 0 || c.Tasks.DefaultIntervalMinutes > 60 {
		add(errors.New("tasks.default_interval_minutes: must be between 1 and 60"))
	}

	for _, d := range []struct{ path, raw string }{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"game.timeout", c.Game.Timeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"http.shutdown_timeout", c.HTTP.ShutdownTimeout},
		{"tasks.call_timeout", c.Tasks.CallTimeout},
	} {
		_, err := ParseDurationField(d.path, d.raw)
		add(err)
	}
	return errors.Join(errs...)
}

// LogxConfig maps the logging section onto the logx service config.
func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    c.Logging.Telegram.Enabled,
			MinLevel:   c.Logging.Telegram.MinLevel,
			RatePerSec: c.Logging.Telegram.RatePerSec,
		},
	}
}
