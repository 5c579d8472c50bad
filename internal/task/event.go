package task

import "fmt"

// EventDriver executes a task whenever its Source reports a qualifying
// notification. It subscribes exactly once per active period.
type EventDriver struct {
	source Source
	cancel func()
	gen    uint64
}

func NewEventDriver(source Source) *EventDriver {
	return &EventDriver{source: source}
}

func (d *EventDriver) Start(t *Task) error {
	if d.source == nil {
		return fmt.Errorf("event driver: no source")
	}
	d.Stop()
	d.gen++
	gen := d.gen
	cancel, err := d.source.Subscribe(func(arg any) {
		if gen != d.gen {
			return
		}
		_ = t.Execute(arg)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	d.cancel = cancel
	return nil
}

func (d *EventDriver) Stop() {
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Subscribed reports whether the driver currently holds a subscription.
func (d *EventDriver) Subscribed() bool { return d.cancel != nil }
