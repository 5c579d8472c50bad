package task

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	logx "autokittens/pkg/logx"
)

type fakeSource struct {
	fn        func(arg any)
	subs      int
	cancels   int
	subscribe error
}

func (s *fakeSource) Subscribe(fn func(arg any)) (func(), error) {
	if s.subscribe != nil {
		return nil, s.subscribe
	}
	s.subs++
	s.fn = fn
	return func() {
		s.cancels++
		s.fn = nil
	}, nil
}

func (s *fakeSource) fire(arg any) {
	if s.fn != nil {
		s.fn(arg)
	}
}

func TestEventDriverSubscribesOncePerActivePeriod(t *testing.T) {
	src := &fakeSource{}
	h := &countingHooks{}
	d := NewEventDriver(src)
	tk := New(Settings{Name: "observe"}, h, WithDriver(d))

	tk.Start(nil)
	tk.Start(nil)
	if src.subs != 1 || !d.Subscribed() {
		t.Fatalf("subs = %d", src.subs)
	}
	src.fire("mutation")
	if h.runs != 1 || h.args[0] != "mutation" {
		t.Fatalf("runs=%d args=%v", h.runs, h.args)
	}

	stale := src.fn
	tk.Pause()
	if src.cancels != 1 || d.Subscribed() {
		t.Fatalf("cancels = %d", src.cancels)
	}
	stale("late")
	if h.runs != 1 {
		t.Fatalf("notification after pause executed the task")
	}

	tk.Start(nil)
	if src.subs != 2 {
		t.Fatalf("resubscribe: subs = %d", src.subs)
	}
}

func TestEventDriverSubscribeErrorVetoes(t *testing.T) {
	src := &fakeSource{subscribe: errors.New("no observe button")}
	tk := New(Settings{Name: "observe"}, &countingHooks{}, WithDriver(NewEventDriver(src)))
	tk.Start(nil)
	if tk.IsActive() {
		t.Fatalf("task active without a subscription")
	}
}

func TestPostingSourceHopsThroughPost(t *testing.T) {
	src := &fakeSource{}
	var queued []func()
	ps := PostingSource{Source: src, Post: func(fn func()) { queued = append(queued, fn) }}
	var got []any
	cancel, err := ps.Subscribe(func(arg any) { got = append(got, arg) })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	src.fire(1)
	if len(got) != 0 || len(queued) != 1 {
		t.Fatalf("callback ran before being posted")
	}
	queued[0]()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v", got)
	}
	cancel()
	if src.cancels != 1 {
		t.Fatalf("cancel not forwarded")
	}
}

func TestNewRegistryRejectsBadNames(t *testing.T) {
	a := New(Settings{Name: "wood"}, &countingHooks{})
	b := New(Settings{Name: "wood"}, &countingHooks{})
	if _, err := NewRegistry(logx.Nop(), a, b); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("err = %v, want ErrDuplicateName", err)
	}
	empty := New(Settings{Name: "  "}, &countingHooks{})
	if _, err := NewRegistry(logx.Nop(), a, empty); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err = %v, want ErrInvalidName", err)
	}
}

func TestRegistryLookupAndOrder(t *testing.T) {
	r, err := NewRegistry(logx.Nop(),
		New(Settings{Name: "wood"}, &countingHooks{}),
		New(Settings{Name: "beam"}, &countingHooks{}),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := strings.Join(r.Names(), ","); got != "wood,beam" {
		t.Fatalf("names = %s", got)
	}
	if _, err := r.Get("steel"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if tk, err := r.Get("beam"); err != nil || tk.Name() != "beam" {
		t.Fatalf("Get(beam) = %v, %v", tk, err)
	}
}

func TestStartAllIsPerTask(t *testing.T) {
	ok := New(Settings{Name: "wood"}, &countingHooks{})
	vetoed := New(Settings{Name: "trade"}, &countingHooks{gate: Cancel("no race")})
	last := New(Settings{Name: "hunt"}, &countingHooks{})
	r, _ := NewRegistry(logx.Nop(), ok, vetoed, last)

	active := r.StartAll()
	if strings.Join(active, ",") != "wood,hunt" {
		t.Fatalf("active = %v", active)
	}
	if vetoed.IsActive() {
		t.Fatalf("vetoed task active")
	}
	paused := r.PauseAll()
	if len(paused) != 3 {
		t.Fatalf("paused = %v", paused)
	}
}

func TestAttachRegistersListenerOnEveryTask(t *testing.T) {
	a := New(Settings{Name: "wood"}, &countingHooks{})
	b := New(Settings{Name: "beam"}, &countingHooks{})
	r, _ := NewRegistry(logx.Nop(), a, b)
	seen := map[string]int{}
	r.Attach(func(s Settings, _ *Task) { seen[s.Name]++ })
	a.UpdateSettings(Patch{Label: String("Wood")})
	b.UpdateSettings(Patch{Label: String("Beam")})
	if seen["wood"] != 1 || seen["beam"] != 1 {
		t.Fatalf("seen = %v", seen)
	}
}

func TestRestoreActiveSnapshotUsesRestoredInterval(t *testing.T) {
	h := &countingHooks{}
	tk, pt, ft := newPeriodic(DefaultInterval, h)
	r, _ := NewRegistry(logx.Nop(), tk)

	r.Restore(map[string][]byte{"wood": []byte(`{"isActive":true,"interval":300}`)})
	if !tk.IsActive() || tk.Interval() != 300 {
		t.Fatalf("active=%v interval=%d", tk.IsActive(), tk.Interval())
	}
	if pt.Remaining() != 300 {
		t.Fatalf("remaining = %d", pt.Remaining())
	}
	ft.tick(300)
	if h.runs != 1 {
		t.Fatalf("runs = %d", h.runs)
	}
}

func TestRestoreInactiveSnapshotOnlyMerges(t *testing.T) {
	tk, _, ft := newPeriodic(DefaultInterval, &countingHooks{})
	r, _ := NewRegistry(logx.Nop(), tk)
	r.Restore(map[string][]byte{"wood": []byte(`{"name":"wood","isActive":false,"interval":120,"extra":1}`)})
	if tk.IsActive() || ft.started != 0 || tk.Interval() != 120 {
		t.Fatalf("active=%v started=%d interval=%d", tk.IsActive(), ft.started, tk.Interval())
	}
}

func TestRestoreMissingSnapshotStartsWithDefaults(t *testing.T) {
	var buf bytes.Buffer
	tk, _, _ := newPeriodic(DefaultInterval, &countingHooks{})
	r, _ := NewRegistry(logx.NewJSON(&buf, "debug"), tk)

	r.Restore(nil)
	if !tk.IsActive() || tk.Interval() != DefaultInterval {
		t.Fatalf("active=%v interval=%d", tk.IsActive(), tk.Interval())
	}
	if !strings.Contains(buf.String(), `No settings found for task \"wood\" yet.`) {
		t.Fatalf("missing notice in %s", buf.String())
	}
}

func TestRestoreGarbageSnapshotTreatedAsMissing(t *testing.T) {
	tk, _, _ := newPeriodic(DefaultInterval, &countingHooks{})
	r, _ := NewRegistry(logx.Nop(), tk)
	r.Restore(map[string][]byte{"wood": []byte(`[1,2`)})
	if !tk.IsActive() || tk.Interval() != DefaultInterval {
		t.Fatalf("active=%v interval=%d", tk.IsActive(), tk.Interval())
	}
}

func TestRestoreDropsInvalidIntervalKeepsRest(t *testing.T) {
	tk, _, _ := newPeriodic(DefaultInterval, &countingHooks{})
	r, _ := NewRegistry(logx.Nop(), tk)
	r.Restore(map[string][]byte{"wood": []byte(`{"isActive":true,"interval":0,"label":"Logs"}`)})
	if !tk.IsActive() || tk.Interval() != DefaultInterval || tk.Label() != "Logs" {
		t.Fatalf("active=%v interval=%d label=%q", tk.IsActive(), tk.Interval(), tk.Label())
	}
}
