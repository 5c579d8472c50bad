// Package automation defines the concrete tasks: crafters, hunter, praiser,
// trader and sky observer. Each variant is a set of task.Hooks over a
// game.Client; the task package owns their lifecycle.
package automation

import (
	"context"
	"time"

	"autokittens/internal/game"
	"autokittens/internal/task"
	logx "autokittens/pkg/logx"
)

const defaultTimeout = 10 * time.Second

// Env carries what every variant needs.
type Env struct {
	Game   game.Client
	Ticker task.Ticker
	// Post delivers game notifications onto the task goroutine. nil delivers
	// them on whatever goroutine the game uses.
	Post func(func())
	View task.View
	Log  logx.Logger
	// Timeout bounds a single game call.
	Timeout time.Duration
	// Interval is the initial period of periodic tasks, in seconds.
	Interval int
}

func (e Env) ctx() (context.Context, context.CancelFunc) {
	d := e.Timeout
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(context.Background(), d)
}

func (e Env) interval() int {
	if e.Interval > 0 {
		return e.Interval
	}
	return task.DefaultInterval
}

func (e Env) periodic(s task.Settings, h task.Hooks) *task.Task {
	s.Interval = e.interval()
	return task.New(s, h,
		task.WithDriver(task.NewPeriodicTimer(e.Ticker)),
		task.WithView(e.View),
		task.WithLogger(e.Log),
	)
}

// Crafts lists the crafted resources in display order. compedium is the
// game's own spelling.
var Crafts = []struct {
	Name, Label, Icon string
}{
	{"wood", "", "🌳"},
	{"beam", "", "🏗"},
	{"slab", "", "⛰"},
	{"plate", "", "🔗"},
	{"steel", "", "⚔️"},
	{"kerosene", "", "🛢"},
	{"parchment", "", "📝"},
	{"manuscript", "", "🗞"},
	{"compedium", "compendium", "📖"},
	{"blueprint", "", "📘"},
}

// Standard returns every task in the order they are shown.
func Standard(env Env) []*task.Task {
	out := make([]*task.Task, 0, len(Crafts)+4)
	for _, c := range Crafts {
		out = append(out, NewCrafter(env, c.Icon, c.Name, c.Label))
	}
	out = append(out,
		NewHunter(env, "🐯", "hunt"),
		NewSkyObserver(env, "☄️", "sky"),
		NewTrader(env, "🤝", "trade"),
		NewPraiser(env, "🙏", "praise"),
	)
	return out
}
