// Package task implements the automation task lifecycle.
//
// A Task is a named, independently toggleable unit of automation. Its state
// lives entirely in Settings; it moves between Inactive and Active through
// Start and Pause, and a Driver (periodic timer or external event source)
// decides when Execute runs. Every settings change is reported to a single
// change listener, which the app uses to persist and render the task.
//
// Tasks are not safe for concurrent use. All calls, including driver
// callbacks, must be serialized (internal/runtime/loop does this in the app).
package task

import (
	"fmt"
	"strings"

	logx "autokittens/pkg/logx"
)

// Hooks is implemented by every task variant.
type Hooks interface {
	// OnExecute performs the task's effect. arg is whatever was passed to Execute.
	OnExecute(t *Task, arg any) error
	// ExecutionMessage is narrated after a successful execution.
	ExecutionMessage(t *Task) string
}

// Starter may veto activation. It runs before the driver starts.
type Starter interface {
	OnStart(t *Task) error
}

// Pauser may veto deactivation. It runs before the driver stops.
type Pauser interface {
	OnPause(t *Task) error
}

// SettingsObserver is told about every patch after the change listener ran.
type SettingsObserver interface {
	OnSettings(t *Task, p Patch)
}

// ChangeListener receives the merged settings after every update.
type ChangeListener func(s Settings, t *Task)

type Task struct {
	settings Settings
	hooks    Hooks
	driver   Driver
	view     View
	log      logx.Logger
	listener ChangeListener
}

type Option func(*Task)

func WithDriver(d Driver) Option { return func(t *Task) { t.driver = d } }

func WithView(v View) Option {
	return func(t *Task) {
		if v != nil {
			t.view = v
		}
	}
}

func WithLogger(log logx.Logger) Option { return func(t *Task) { t.log = log } }

// New creates an inactive task. Settings.IsActive is ignored: a task only
// becomes active through Start.
func New(s Settings, hooks Hooks, opts ...Option) *Task {
	s.Name = strings.TrimSpace(s.Name)
	s.IsActive = false
	t := &Task{
		settings: s,
		hooks:    hooks,
		view:     nopView{},
		listener: func(Settings, *Task) {},
	}
	for _, o := range opts {
		if o != nil {
			o(t)
		}
	}
	if t.log.IsZero() {
		t.log = logx.Nop()
	}
	t.log = t.log.With(logx.String("task", t.settings.Name))
	return t
}

func (t *Task) Name() string { return t.settings.Name }
func (t *Task) Icon() string { return t.settings.Icon }

func (t *Task) Label() string {
	if t.settings.Label != "" {
		return t.settings.Label
	}
	return t.settings.Name
}

func (t *Task) IsActive() bool { return t.settings.IsActive }

// Interval returns the configured period in seconds.
func (t *Task) Interval() int { return t.settings.Interval }

// Settings returns a copy of the current settings.
func (t *Task) Settings() Settings { return t.settings }

func (t *Task) Driver() Driver { return t.driver }

func (t *Task) Hooks() Hooks { return t.hooks }

// OnChange registers the change listener. Only one listener is kept; a later
// call replaces the earlier one. nil restores the no-op listener.
func (t *Task) OnChange(fn ChangeListener) {
	if fn == nil {
		fn = func(Settings, *Task) {}
	}
	t.listener = fn
}

// UpdateSettings merges p into the settings and notifies the listener before returning.
func (t *Task) UpdateSettings(p Patch) {
	t.settings.Apply(p)
	t.listener(t.settings, t)
	if o, ok := t.hooks.(SettingsObserver); ok {
		o.OnSettings(t, p)
	}
}

// Start activates the task.
//
// When override carries IsActive=true it is merged first, so restoring a
// persisted "was active" snapshot also restores its other fields. Otherwise
// starting an active task is a no-op. A veto from a hook or the driver leaves
// the task inactive and narrates the reason.
func (t *Task) Start(override *Patch) {
	if override != nil && override.IsActive != nil && *override.IsActive {
		t.UpdateSettings(*override)
	} else if t.IsActive() {
		return
	}

	if err := t.onStart(); err != nil {
		t.narrateVeto(err)
		t.setActive(false)
		return
	}
	t.setActive(true)
}

// Pause deactivates the task. Pausing an inactive task is a no-op.
func (t *Task) Pause() {
	if !t.IsActive() {
		return
	}
	if err := t.onPause(); err != nil {
		t.narrateVeto(err)
		return
	}
	t.setActive(false)
}

// Execute runs the effect and narrates the execution message.
// It can be called directly, independent of the driver.
func (t *Task) Execute(arg any) error {
	err := t.runEffect(arg)
	t.view.Executed(t, err)
	if err != nil {
		t.log.Warn(t.brand("Execution failed."), logx.Err(err))
		return err
	}
	t.Log(t.hooks.ExecutionMessage(t))
	return nil
}

// SetInterval changes the period of a periodic task. The running timer picks
// the new value up on its next tick.
func (t *Task) SetInterval(minutes int) error {
	if minutes <= 0 || minutes > MaxIntervalMinutes {
		return fmt.Errorf("%w: got %d minutes", ErrInvalidInterval, minutes)
	}
	t.UpdateSettings(Patch{Interval: Int(minutes * 60)})
	t.Log(fmt.Sprintf("Interval changed to %s.", FormatTime(t.Interval())))
	return nil
}

// Log writes a line branded with the task's icon and label.
func (t *Task) Log(msg string) {
	t.log.Info(t.brand(msg))
}

func (t *Task) brand(msg string) string {
	if t.settings.Icon == "" {
		return fmt.Sprintf("[%s] %s", t.Label(), msg)
	}
	return fmt.Sprintf("%s [%s] %s", t.settings.Icon, t.Label(), msg)
}

func (t *Task) onStart() error {
	if s, ok := t.hooks.(Starter); ok {
		if err := s.OnStart(t); err != nil {
			return err
		}
	}
	if t.driver != nil {
		return t.driver.Start(t)
	}
	return nil
}

func (t *Task) onPause() error {
	if p, ok := t.hooks.(Pauser); ok {
		if err := p.OnPause(t); err != nil {
			return err
		}
	}
	if t.driver != nil {
		t.driver.Stop()
	}
	return nil
}

func (t *Task) setActive(active bool) {
	t.UpdateSettings(Patch{IsActive: Bool(active)})
	t.view.Status(t)
	if active {
		t.Log("▶️ Task started.")
	} else {
		t.Log("⏸ Task pawsed.")
	}
}

func (t *Task) narrateVeto(err error) {
	if IsCanceled(err) {
		t.Log(err.Error())
		return
	}
	t.log.Warn(t.brand("Transition canceled."), logx.Err(err))
}

func (t *Task) runEffect(arg any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{value: r}
		}
	}()
	return t.hooks.OnExecute(t, arg)
}
