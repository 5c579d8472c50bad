package task

import (
	"fmt"
	"time"
)

// DefaultInterval is the period new periodic tasks start with, in seconds.
const DefaultInterval = 4 * 60

// MaxIntervalMinutes is the longest period SetInterval accepts.
const MaxIntervalMinutes = 60

// PeriodicTimer drives a task from a one-second accumulator.
//
// The interval is read from the task's settings on every tick, so a live
// interval change neither restarts the timer nor loses elapsed progress.
// Elapsed time survives a pause; it is only reset by a fire.
type PeriodicTimer struct {
	ticker  Ticker
	elapsed int
	gen     uint64
	stop    func()
	task    *Task
}

func NewPeriodicTimer(ticker Ticker) *PeriodicTimer {
	return &PeriodicTimer{ticker: ticker}
}

func (p *PeriodicTimer) Start(t *Task) error {
	if p.ticker == nil {
		return fmt.Errorf("periodic timer: no ticker")
	}
	if t.Interval() <= 0 {
		return fmt.Errorf("%w: got %d seconds", ErrInvalidInterval, t.Interval())
	}
	p.Stop()
	p.task = t
	p.gen++
	gen := p.gen
	p.publish()
	p.stop = p.ticker.Every(time.Second, func() {
		// A tick queued before Stop carries a stale generation.
		if gen != p.gen {
			return
		}
		p.Tick()
	})
	return nil
}

func (p *PeriodicTimer) Stop() {
	p.gen++
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// Tick advances the accumulator by one second and fires when the interval is
// reached. The counter is reset even when the execution failed.
func (p *PeriodicTimer) Tick() {
	t := p.task
	if t == nil {
		return
	}
	p.elapsed++
	if p.elapsed >= t.Interval() {
		_ = t.Execute(nil)
		p.elapsed = 0
	}
	p.publish()
}

// Elapsed returns the seconds accumulated since the last fire.
func (p *PeriodicTimer) Elapsed() int { return p.elapsed }

// Remaining returns the seconds left until the next fire.
func (p *PeriodicTimer) Remaining() int {
	if p.task == nil {
		return 0
	}
	return p.task.Interval() - p.elapsed
}

func (p *PeriodicTimer) publish() {
	p.task.view.Remaining(p.task, FormatTime(p.Remaining()))
}

// FormatTime renders seconds as m:ss. Zero and negative values render blank.
func FormatTime(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
