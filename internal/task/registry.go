package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	logx "autokittens/pkg/logx"
)

// Registry is the ordered, fixed set of configured tasks.
type Registry struct {
	tasks  []*Task
	byName map[string]*Task
	log    logx.Logger
}

func NewRegistry(log logx.Logger, tasks ...*Task) (*Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Registry{byName: make(map[string]*Task, len(tasks)), log: log}
	for _, t := range tasks {
		if t == nil || t.Name() == "" {
			return nil, ErrInvalidName
		}
		if _, dup := r.byName[t.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, t.Name())
		}
		r.byName[t.Name()] = t
		r.tasks = append(r.tasks, t)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Task, error) {
	t, ok := r.byName[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}

// All returns the tasks in registration order.
func (r *Registry) All() []*Task {
	out := make([]*Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Name())
	}
	return out
}

// StartAll starts every task independently and returns the names that ended
// up active. A veto on one task does not affect the others.
func (r *Registry) StartAll() []string {
	var active []string
	for _, t := range r.tasks {
		t.Start(nil)
		if t.IsActive() {
			active = append(active, t.Name())
		}
	}
	return active
}

// PauseAll pauses every task and returns the names that ended up inactive.
func (r *Registry) PauseAll() []string {
	var paused []string
	for _, t := range r.tasks {
		t.Pause()
		if !t.IsActive() {
			paused = append(paused, t.Name())
		}
	}
	return paused
}

// Attach registers fn as the change listener of every task.
func (r *Registry) Attach(fn ChangeListener) {
	for _, t := range r.tasks {
		t.OnChange(fn)
	}
}

// Restore applies persisted snapshots, keyed by task name.
//
// A task without a usable snapshot is started with its defaults. A snapshot
// that was active restarts the task with the snapshot merged in one step;
// otherwise the snapshot is merged and the task stays inactive. Snapshots for
// names that are not registered are reported and skipped.
func (r *Registry) Restore(snapshots map[string][]byte) {
	for _, t := range r.tasks {
		raw, ok := snapshots[t.Name()]
		if !ok {
			r.log.Warn(fmt.Sprintf("No settings found for task %q yet.", t.Name()))
			t.Start(nil)
			continue
		}
		p, err := DecodeSnapshot(raw)
		if err != nil {
			if !errors.Is(err, ErrInvalidSnapshot) {
				r.log.Warn(fmt.Sprintf("No settings found for task %q yet.", t.Name()), logx.Err(err))
				t.Start(nil)
				continue
			}
			// Partially valid: keep what decoded.
			r.log.Warn("settings snapshot partially invalid", logx.String("task", t.Name()), logx.Err(err))
		}
		if p.IsActive != nil && *p.IsActive {
			t.Start(&p)
			continue
		}
		t.UpdateSettings(p)
	}

	var unknown []string
	for name := range snapshots {
		if _, ok := r.byName[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		r.log.Debug("ignoring settings for unknown tasks", logx.Any("names", unknown))
	}
}
