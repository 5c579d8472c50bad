package task

import "time"

// Driver decides when a task executes. Start is called after the task's own
// start gate passed; a non-nil error vetoes the start. Stop must be synchronous:
// no execution may be driven after it returns.
type Driver interface {
	Start(t *Task) error
	Stop()
}

// Ticker produces a recurring callback. The callback must be delivered on the
// same goroutine that owns the task (see internal/runtime/loop).
type Ticker interface {
	Every(d time.Duration, fn func()) (stop func())
}

// Source is an external notification mechanism an event-driven task reacts to.
type Source interface {
	Subscribe(fn func(arg any)) (cancel func(), err error)
}

// View renders task state. Implementations must not call back into the task.
type View interface {
	Status(t *Task)
	Remaining(t *Task, text string)
	Executed(t *Task, err error)
}

type nopView struct{}

func (nopView) Status(*Task)            {}
func (nopView) Remaining(*Task, string) {}
func (nopView) Executed(*Task, error)   {}
