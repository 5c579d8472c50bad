package config

type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
	Game     GameConfig     `json:"game"`
	Storage  StorageConfig  `json:"storage,omitempty"`
	HTTP     HTTPConfig     `json:"http,omitempty"`
	Tasks    TasksConfig    `json:"tasks,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file"`

	// Telegram forwards task narration to the chat configured in the
	// telegram section.
	Telegram LoggingTelegramConfig `json:"telegram"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TelegramConfig configures the bot used both as a log sink and, when
// Commands is set, as a remote control.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	Commands bool   `json:"commands,omitempty"`

	// PollTimeout is a Go duration string (default "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

// Enabled reports whether a bot can be created at all.
func (c TelegramConfig) Enabled() bool { return c.Token != "" && c.ChatID != 0 }

// GameConfig selects and tunes the game client.
//
// Driver is "browser" (default) or "fake". The fake driver never touches a
// browser and is what --dry-run forces.
type GameConfig struct {
	Driver   string `json:"driver,omitempty"`
	URL      string `json:"url,omitempty"`
	Headless bool   `json:"headless,omitempty"`
	Install  bool   `json:"install,omitempty"`

	// Timeout bounds page loads and single game calls (default "30s").
	Timeout string `json:"timeout,omitempty"`

	// RatePerSec limits effect calls; 0 disables the limit.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`

	// Races seeds the fake client.
	Races []string `json:"races,omitempty"`
}

// StorageConfig selects where task settings are persisted.
//
// Driver: "" / "none" / "memory", "file", "sqlite", "redis".
type StorageConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path,omitempty"`

	// BusyTimeout is a Go duration string for the sqlite driver (default "5s").
	BusyTimeout string `json:"busy_timeout,omitempty"`

	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisKey      string `json:"redis_key,omitempty"`
}

// HTTPConfig configures the control panel.
type HTTPConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`

	// ShutdownTimeout is a Go duration string (default "5s").
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`

	// Pprof exposes runtime profiles under /debug/pprof (token protected).
	Pprof bool `json:"pprof,omitempty"`
}

type TasksConfig struct {
	// DefaultIntervalMinutes applies to periodic tasks that have no persisted
	// interval yet (default 4).
	DefaultIntervalMinutes int `json:"default_interval_minutes,omitempty"`

	// LoopQueue is the capacity of the task loop queue (default 256).
	LoopQueue int `json:"loop_queue,omitempty"`

	// CallTimeout bounds a single task effect (default "10s").
	CallTimeout string `json:"call_timeout,omitempty"`
}
