// Package app wires configuration, the game client, the task set and the
// outer surfaces into one process, and owns its startup and shutdown order.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autokittens/internal/automation"
	"autokittens/internal/config"
	"autokittens/internal/control"
	"autokittens/internal/eventbus"
	"autokittens/internal/game"
	"autokittens/internal/httpapi"
	"autokittens/internal/metrics"
	"autokittens/internal/runtime/loop"
	"autokittens/internal/runtime/supervisor"
	"autokittens/internal/storage"
	"autokittens/internal/task"
	"autokittens/internal/transport/telegram"
	logx "autokittens/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	bus     eventbus.Bus
	metrics *metrics.Metrics
	store   storage.Store
	game    game.Client

	loop   *loop.Loop
	ticker *task.CronTicker
	reg    *task.Registry
	rec    *recorder
	ctrl   *control.Service

	http *httpapi.Server
	bot  *telegram.Bot
}

type Option func(*options)

type options struct {
	dryRun bool
}

// WithDryRun forces the fake game client regardless of game.driver.
func WithDryRun(v bool) Option { return func(o *options) { o.dryRun = v } }

func NewApp(ctx context.Context, cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	// The bot is both a log sink and a command surface, so it exists before
	// the logging service and logs through a bootstrap console logger.
	var (
		bot    *telegram.Bot
		sender logx.Sender
	)
	if tc, ok, err := mapTelegramConfig(cfg); err != nil {
		return nil, err
	} else if ok {
		bot, err = telegram.New(tc, logx.NewConsole(cfg.Logging.Level))
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sender = bot
	}

	logSvc, log := logx.New(cfg.LogxConfig(), sender)
	appLog := log.With(logx.String("comp", "app"))

	a := &App{
		cfgm:    cfgm,
		log:     appLog,
		logs:    logSvc,
		bus:     eventbus.New(),
		metrics: metrics.New(),
		bot:     bot,
	}
	ok := false
	defer func() {
		if !ok {
			a.closeResources()
			_ = a.logs.Close()
		}
	}()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	a.store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	appLog.Info("storage opened", logx.String("driver", sc.Driver))

	raw, err := openGame(ctx, cfg, o.dryRun, log.With(logx.String("comp", "game")))
	if err != nil {
		return nil, err
	}
	a.game = game.NewLimited(raw, cfg.Game.RatePerSec, cfg.Game.Burst)

	callTimeout, err := config.ParseDurationOrDefault("tasks.call_timeout", cfg.Tasks.CallTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}

	a.loop = loop.New(cfg.Tasks.LoopQueue, log.With(logx.String("comp", "loop")))
	a.ticker = task.NewCronTicker(a.loop.Poster("ticker"))

	tasks := automation.Standard(automation.Env{
		Game:     a.game,
		Ticker:   a.ticker,
		Post:     a.loop.Poster("game"),
		View:     taskView{bus: a.bus, metrics: a.metrics},
		Log:      log.With(logx.String("comp", "tasks")),
		Timeout:  callTimeout,
		Interval: cfg.Tasks.DefaultIntervalMinutes * 60,
	})
	a.reg, err = task.NewRegistry(log.With(logx.String("comp", "registry")), tasks...)
	if err != nil {
		return nil, err
	}
	a.rec = &recorder{
		store:   a.store,
		bus:     a.bus,
		metrics: a.metrics,
		log:     log.With(logx.String("comp", "settings")),
		timeout: 5 * time.Second,
	}
	a.ctrl = control.New(a.reg, a.loop, a.game)

	a.metrics.GaugeFunc("events_dropped", "Bus deliveries lost to slow subscribers.", func() float64 {
		return float64(a.bus.Dropped())
	})
	a.metrics.GaugeFunc("ticker_entries", "Running one-second task tickers.", func() float64 {
		return float64(a.ticker.Entries())
	})

	if cfg.HTTP.Enabled {
		shutdown, err := config.ParseDurationOrDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout, 5*time.Second)
		if err != nil {
			return nil, err
		}
		a.http = httpapi.New(httpapi.Config{
			Addr:            cfg.HTTP.Addr,
			Token:           cfg.HTTP.Token,
			ShutdownTimeout: shutdown,
			Pprof:           cfg.HTTP.Pprof,
		}, a.ctrl, a.bus,
			httpapi.WithMetrics(a.metrics.Handler()),
			httpapi.WithHealth(a.health),
			httpapi.WithLogger(log),
		)
	}

	ok = true
	return a, nil
}

// Control exposes the task operations, mainly for tests and embedding.
func (a *App) Control() *control.Service { return a.ctrl }

func (a *App) Bus() eventbus.Bus { return a.bus }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) health() any {
	out := map[string]any{
		"tasks":          len(a.reg.All()),
		"events_dropped": a.bus.Dropped(),
	}
	if a.sup != nil {
		out["goroutines"] = a.sup.Snapshot()
	}
	return out
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.sup.Go("loop", a.loop.Run)
	a.ticker.Start()

	if err := a.restore(ctx); err != nil {
		return err
	}

	if a.http != nil {
		a.sup.GoRestart("httpapi", a.http.Run,
			supervisor.WithRestartBackoff(time.Second, 30*time.Second),
			supervisor.WithMaxRestarts(10),
		)
	}
	if a.bot != nil {
		a.sup.GoRestart("telegram", func(c context.Context) error { return a.bot.Run(c, a.ctrl) },
			supervisor.WithRestartBackoff(2*time.Second, time.Minute),
		)
	}

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	sub := a.cfgm.Subscribe(4)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.applyConfig(c, sub)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	sdNotify(a.log, "READY=1")
	a.log.Info("app started", logx.Int("tasks", len(a.reg.All())))
	return nil
}

// restore loads persisted settings and applies them on the loop before any
// listener is attached, then writes the resulting state back once. A store
// that cannot be read fails the start: an empty store means first run, an
// unreadable one does not, and flushing defaults would overwrite it.
func (a *App) restore(ctx context.Context) error {
	snapshots, err := a.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	err = a.loop.Do(ctx, func() {
		a.reg.Restore(snapshots)
		a.reg.Attach(a.rec.persist)
		for _, t := range a.reg.All() {
			a.rec.persist(t.Settings(), t)
		}
	})
	if err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	return nil
}

// applyConfig handles reloads. Only logging is applied live; everything else
// is reported and waits for a restart.
func (a *App) applyConfig(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			sections, attrs := config.SummarizeConfigChange(last, next)
			last = next
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}
			a.logs.Apply(next.LogxConfig())

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
			if !config.HotReloadable(sections) {
				a.log.Warn("config changed outside logging; restart required for it to take effect",
					logx.String("changed", strings.Join(sections, ",")))
			}
		}
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeResources()
		return a.logs.Close()
	}
	sdNotify(a.log, "STOPPING=1")
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// Drivers are stopped without pausing, so the persisted state still says
	// which tasks were running.
	a.step(ctx, "drivers", 2*time.Second, func(c context.Context) error {
		return a.loop.Do(c, func() {
			for _, t := range a.reg.All() {
				if d := t.Driver(); d != nil && t.IsActive() {
					d.Stop()
				}
			}
		})
	})
	a.step(ctx, "ticker", 2*time.Second, a.ticker.Stop)
	a.step(ctx, "supervisor", 6*time.Second, a.sup.Stop)
	a.closeResources()

	a.log.Info("stopped")
	return a.logs.Close()
}

func (a *App) closeResources() {
	if a.game != nil {
		if err := a.game.Close(); err != nil {
			a.log.Warn("game close failed", logx.Err(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
}

// step runs one shutdown step bounded by max and by ctx, so one component
// can't stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
