package app

import (
	"context"
	"encoding/json"
	"time"

	"autokittens/internal/eventbus"
	"autokittens/internal/metrics"
	"autokittens/internal/storage"
	"autokittens/internal/task"
	logx "autokittens/pkg/logx"
)

// taskView renders task state as bus events and metrics. It only reads from
// the task it is handed.
type taskView struct {
	bus     eventbus.Bus
	metrics *metrics.Metrics
}

func (v taskView) Status(t *task.Task) {
	v.metrics.SetActive(t.Name(), t.IsActive())
	v.bus.Publish(eventbus.Event{
		Type: eventbus.TaskStatus,
		Task: t.Name(),
		Data: map[string]any{"active": t.IsActive()},
	})
}

func (v taskView) Remaining(t *task.Task, text string) {
	v.bus.Publish(eventbus.Event{Type: eventbus.TaskRemaining, Task: t.Name(), Data: text})
}

func (v taskView) Executed(t *task.Task, err error) {
	v.metrics.Executed(t.Name(), err)
	data := map[string]any{"ok": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	v.bus.Publish(eventbus.Event{Type: eventbus.TaskExecuted, Task: t.Name(), Data: data})
}

// recorder is the change listener attached to every task: it writes the
// snapshot to the store and announces it.
type recorder struct {
	store   storage.Store
	bus     eventbus.Bus
	metrics *metrics.Metrics
	log     logx.Logger
	timeout time.Duration
}

func (r *recorder) persist(s task.Settings, t *task.Task) {
	raw, err := task.EncodeSettings(s)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err = r.store.Put(ctx, s.Name, raw)
		cancel()
	}
	r.metrics.StoreWrite(err)
	if _, ok := t.Driver().(*task.EventDriver); ok {
		r.metrics.SetCaptures(s.Name, s.CaptureCount)
	}
	if err != nil {
		r.log.Warn("settings not saved", logx.String("task", s.Name), logx.Err(err))
		r.bus.Publish(eventbus.Event{Type: eventbus.StorageError, Task: s.Name, Data: err.Error()})
		return
	}
	r.bus.Publish(eventbus.Event{Type: eventbus.TaskSettings, Task: s.Name, Data: json.RawMessage(raw)})
}
