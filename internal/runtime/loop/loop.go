// Package loop provides the single goroutine on which all task work runs.
//
// Tasks, drivers, change hooks and store writes are not safe for concurrent
// use. Every caller (tickers, mutation callbacks, HTTP handlers) posts work here
// instead, so the task layer can be written as if it were single-threaded.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	logx "autokittens/pkg/logx"
)

var (
	ErrStopped = errors.New("loop stopped")
	ErrFull    = errors.New("loop queue full")
)

type Loop struct {
	log  logx.Logger
	jobs chan func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// New returns a loop with a bounded queue. Run must be called to start draining.
func New(queue int, log logx.Logger) *Loop {
	if queue <= 0 {
		queue = 256
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{
		log:  log,
		jobs: make(chan func(), queue),
		done: make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled. Jobs still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.jobs:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop job panicked", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}

// Post enqueues fn without blocking.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	select {
	case l.jobs <- fn:
		return nil
	default:
		return ErrFull
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.jobs <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("loop: enqueue: %w", ctx.Err())
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have exited with our job still queued.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return fmt.Errorf("loop: wait: %w", ctx.Err())
	}
}

// Poster adapts Post to callers that only want a fire-and-forget hook.
// Dropped jobs are logged at debug level.
func (l *Loop) Poster(name string) func(func()) {
	return func(fn func()) {
		if err := l.Post(fn); err != nil {
			l.log.Debug("loop job dropped", logx.String("source", name), logx.Err(err))
		}
	}
}
