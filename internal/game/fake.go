package game

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Fake is an in-memory Client. It records every effect as a short call string
// such as "craft:wood" or "trade:zebras".
type Fake struct {
	mu       sync.Mutex
	calls    []string
	races    []string
	fail     map[string]error
	watchers map[int]func()
	nextID   int
	closed   bool
}

func NewFake(races ...string) *Fake {
	return &Fake{
		races:    races,
		fail:     map[string]error{},
		watchers: map[int]func(){},
	}
}

// FailOn makes the call with the given name return err. nil clears it.
func (f *Fake) FailOn(call string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, call)
		return
	}
	f.fail[call] = err
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *Fake) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if err := f.fail[call]; err != nil {
		return err
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *Fake) CraftAll(_ context.Context, resource string) error {
	return f.record("craft:" + resource)
}

func (f *Fake) HuntAll(context.Context) error { return f.record("hunt") }
func (f *Fake) Praise(context.Context) error  { return f.record("praise") }

func (f *Fake) TradeAll(_ context.Context, race string) error {
	f.mu.Lock()
	known := slices.Contains(f.races, race)
	f.mu.Unlock()
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownRace, race)
	}
	return f.record("trade:" + race)
}

func (f *Fake) Races(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.races), nil
}

func (f *Fake) ClickObserve(context.Context) error { return f.record("observe") }

func (f *Fake) WatchObserve(fn func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["watch"]; err != nil {
		return nil, err
	}
	f.nextID++
	id := f.nextID
	f.watchers[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}, nil
}

// Watchers returns the number of live observe watchers.
func (f *Fake) Watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watchers)
}

// TriggerObserve simulates the observe button appearing.
func (f *Fake) TriggerObserve() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.watchers))
	for _, fn := range f.watchers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
