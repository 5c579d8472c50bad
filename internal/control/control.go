// Package control exposes task operations to the outer surfaces (control
// panel, chat commands). Every operation runs on the task loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"autokittens/internal/automation"
	"autokittens/internal/game"
	"autokittens/internal/runtime/loop"
	"autokittens/internal/task"
)

var (
	ErrNotPeriodic = errors.New("control: task has no interval")
	ErrNotTrader   = errors.New("control: task does not trade")
)

const (
	KindPeriodic = "periodic"
	KindEvent    = "event"
)

// TaskView is a read-only snapshot of a task.
type TaskView struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Icon         string `json:"icon,omitempty"`
	Kind         string `json:"kind"`
	Active       bool   `json:"active"`
	Interval     int    `json:"interval,omitempty"`
	Remaining    string `json:"remaining,omitempty"`
	SelectedRace string `json:"selectedRace,omitempty"`
	CaptureCount int    `json:"captureCount,omitempty"`
}

func viewOf(t *task.Task) TaskView {
	s := t.Settings()
	v := TaskView{
		Name:         s.Name,
		Label:        t.Label(),
		Icon:         s.Icon,
		Kind:         KindEvent,
		Active:       s.IsActive,
		SelectedRace: s.SelectedRace,
		CaptureCount: s.CaptureCount,
	}
	if pt, ok := t.Driver().(*task.PeriodicTimer); ok {
		v.Kind = KindPeriodic
		v.Interval = s.Interval
		if s.IsActive {
			v.Remaining = task.FormatTime(pt.Remaining())
		}
	}
	return v
}

type Service struct {
	reg  *task.Registry
	loop *loop.Loop
	game game.Client
}

func New(reg *task.Registry, lp *loop.Loop, g game.Client) *Service {
	return &Service{reg: reg, loop: lp, game: g}
}

// onTask runs fn against the named task on the loop and returns its view.
func (s *Service) onTask(ctx context.Context, name string, fn func(t *task.Task) error) (TaskView, error) {
	var (
		v   TaskView
		err error
	)
	if lerr := s.loop.Do(ctx, func() {
		var t *task.Task
		t, err = s.reg.Get(name)
		if err != nil {
			return
		}
		if fn != nil {
			err = fn(t)
		}
		v = viewOf(t)
	}); lerr != nil {
		return TaskView{}, lerr
	}
	return v, err
}

func (s *Service) Tasks(ctx context.Context) ([]TaskView, error) {
	var out []TaskView
	err := s.loop.Do(ctx, func() {
		for _, t := range s.reg.All() {
			out = append(out, viewOf(t))
		}
	})
	return out, err
}

func (s *Service) Task(ctx context.Context, name string) (TaskView, error) {
	return s.onTask(ctx, name, nil)
}

func (s *Service) Start(ctx context.Context, name string) (TaskView, error) {
	return s.onTask(ctx, name, func(t *task.Task) error {
		t.Start(nil)
		return nil
	})
}

func (s *Service) Pause(ctx context.Context, name string) (TaskView, error) {
	return s.onTask(ctx, name, func(t *task.Task) error {
		t.Pause()
		return nil
	})
}

// Execute runs the task's effect once, whether or not it is active.
func (s *Service) Execute(ctx context.Context, name string) (TaskView, error) {
	return s.onTask(ctx, name, func(t *task.Task) error { return t.Execute(nil) })
}

func (s *Service) SetInterval(ctx context.Context, name string, minutes int) (TaskView, error) {
	return s.onTask(ctx, name, func(t *task.Task) error {
		if _, ok := t.Driver().(*task.PeriodicTimer); !ok {
			return fmt.Errorf("%w: %s", ErrNotPeriodic, name)
		}
		return t.SetInterval(minutes)
	})
}

// SelectRace stores the trade partner. An empty race clears the selection,
// which pauses the trader.
func (s *Service) SelectRace(ctx context.Context, name, race string) (TaskView, error) {
	if race != "" {
		races, err := s.Races(ctx)
		if err != nil {
			return TaskView{}, err
		}
		if !slices.Contains(races, race) {
			return TaskView{}, fmt.Errorf("%w: %s", game.ErrUnknownRace, race)
		}
	}
	return s.onTask(ctx, name, func(t *task.Task) error {
		if !automation.IsTrader(t) {
			return fmt.Errorf("%w: %s", ErrNotTrader, name)
		}
		t.UpdateSettings(task.Patch{SelectedRace: task.String(race)})
		return nil
	})
}

func (s *Service) StartAll(ctx context.Context) ([]string, error) {
	var names []string
	err := s.loop.Do(ctx, func() { names = s.reg.StartAll() })
	return names, err
}

func (s *Service) PauseAll(ctx context.Context) ([]string, error) {
	var names []string
	err := s.loop.Do(ctx, func() { names = s.reg.PauseAll() })
	return names, err
}

// Races lists unlocked trade partners. It queries the game directly.
func (s *Service) Races(ctx context.Context) ([]string, error) {
	return s.game.Races(ctx)
}
