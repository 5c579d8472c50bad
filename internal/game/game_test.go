package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLimitedFailsWhenDeadlineTooClose(t *testing.T) {
	f := NewFake("zebras")
	l := NewLimited(f, 0.001, 2)
	ctx := context.Background()

	if err := l.CraftAll(ctx, "wood"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := l.HuntAll(ctx); err != nil {
		t.Fatalf("second call: %v", err)
	}
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := l.Praise(short); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third call err = %v, want ErrRateLimited", err)
	}
	if got := strings.Join(f.Calls(), ","); got != "craft:wood,hunt" {
		t.Fatalf("calls = %s", got)
	}
	// Queries are not limited.
	if races, err := l.Races(ctx); err != nil || len(races) != 1 {
		t.Fatalf("Races = %v, %v", races, err)
	}
}

func TestLimitedWaitsForToken(t *testing.T) {
	f := NewFake()
	l := NewLimited(f, 100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		if err := l.CraftAll(ctx, "beam"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if n := len(f.Calls()); n != 5 {
		t.Fatalf("calls = %d, want 5", n)
	}
}

func TestLimitedHonoursCancel(t *testing.T) {
	l := NewLimited(NewFake(), 0.001, 1)
	_ = l.HuntAll(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.HuntAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLimitedUnlimitedWhenRateZero(t *testing.T) {
	l := NewLimited(NewFake(), 0, 1)
	for i := 0; i < 50; i++ {
		if err := l.CraftAll(context.Background(), "beam"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestFakeTradeUnknownRace(t *testing.T) {
	f := NewFake("zebras")
	if err := f.TradeAll(context.Background(), "dragons"); !errors.Is(err, ErrUnknownRace) {
		t.Fatalf("err = %v", err)
	}
}

func TestFakeWatchersFireUntilCancelled(t *testing.T) {
	f := NewFake()
	n := 0
	cancel, err := f.WatchObserve(func() { n++ })
	if err != nil {
		t.Fatalf("WatchObserve: %v", err)
	}
	f.TriggerObserve()
	cancel()
	f.TriggerObserve()
	if n != 1 || f.Watchers() != 0 {
		t.Fatalf("n=%d watchers=%d", n, f.Watchers())
	}
}

func TestToStrings(t *testing.T) {
	got, err := toStrings([]interface{}{"lizards", "sharks"})
	if err != nil || strings.Join(got, ",") != "lizards,sharks" {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := toStrings(42.0); !errors.Is(err, ErrUnexpectedResult) {
		t.Fatalf("err = %v", err)
	}
	if got, err := toStrings(nil); err != nil || got != nil {
		t.Fatalf("nil: %v, %v", got, err)
	}
}

func TestAwaitReturnsAtDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := await(ctx, func() (interface{}, error) {
		<-release
		return nil, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("await blocked for %s", took)
	}
}

func TestAwaitPassesResultThrough(t *testing.T) {
	v, err := await(context.Background(), func() (interface{}, error) { return "zebras", nil })
	if err != nil || v != "zebras" {
		t.Fatalf("got %v, %v", v, err)
	}
}
