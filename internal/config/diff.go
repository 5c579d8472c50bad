package config

import (
	"reflect"
	"sort"
	"strings"

	logx "autokittens/pkg/logx"
)

// SummarizeConfigChange returns the changed section names and safe structured
// attrs for logging. Secrets (bot token, redis password, http token) are only
// ever reported as set/unset.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Telegram != newCfg.Telegram {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""),
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
			logx.Bool("telegram.commands", newCfg.Telegram.Commands),
		)
	}

	if !reflect.DeepEqual(oldCfg.Game, newCfg.Game) {
		changed = append(changed, "game")
		attrs = append(attrs,
			logx.String("game.driver", newCfg.Game.Driver),
			logx.String("game.url", newCfg.Game.URL),
			logx.Bool("game.headless", newCfg.Game.Headless),
			logx.Any("game.rate_per_sec", newCfg.Game.RatePerSec),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.Bool("storage.redis_password_set", newCfg.Storage.RedisPassword != ""),
		)
	}

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", newCfg.HTTP.Enabled),
			logx.String("http.addr", newCfg.HTTP.Addr),
			logx.Bool("http.token_set", newCfg.HTTP.Token != ""),
		)
	}

	if oldCfg.Tasks != newCfg.Tasks {
		changed = append(changed, "tasks")
		attrs = append(attrs,
			logx.Int("tasks.default_interval_minutes", newCfg.Tasks.DefaultIntervalMinutes),
			logx.Int("tasks.loop_queue", newCfg.Tasks.LoopQueue),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// HotReloadable reports whether every changed section can be applied without
// a restart. Only logging is applied live.
func HotReloadable(changed []string) bool {
	for _, s := range changed {
		if s != "logging" {
			return false
		}
	}
	return true
}
