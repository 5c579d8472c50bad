package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autokittens/internal/control"
	"autokittens/internal/eventbus"
	"autokittens/internal/metrics"
	"autokittens/internal/storage"
	"autokittens/internal/task"
	logx "autokittens/pkg/logx"
)

func writeConfig(t *testing.T, dir, settingsPath string) string {
	t.Helper()
	cfg := map[string]any{
		"logging": map[string]any{"level": "warn"},
		"game":    map[string]any{"driver": "fake", "races": []string{"zebras", "lizards"}},
		"storage": map[string]any{"driver": "file", "path": settingsPath},
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p := filepath.Join(dir, "config.json")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func startApp(t *testing.T, cfgPath string) (*App, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	a, err := NewApp(ctx, cfgPath)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	return a, ctx
}

func byName(t *testing.T, views []control.TaskView) map[string]control.TaskView {
	t.Helper()
	out := make(map[string]control.TaskView, len(views))
	for _, v := range views {
		out[v.Name] = v
	}
	return out
}

func readSettings(t *testing.T, path string) map[string]map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var out map[string]map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	return out
}

func TestFirstRunStartsEverythingButTrader(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.json")
	a, ctx := startApp(t, writeConfig(t, dir, settings))

	views, err := a.Control().Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if len(views) != 14 {
		t.Fatalf("got %d tasks, want 14", len(views))
	}
	for _, v := range views {
		want := v.Name != "trade"
		if v.Active != want {
			t.Fatalf("%s active=%v, want %v", v.Name, v.Active, want)
		}
	}

	if err := a.Stop(context.Background(), StopSignal); err != nil {
		t.Fatalf("stop: %v", err)
	}

	saved := readSettings(t, settings)
	if len(saved) != 14 {
		t.Fatalf("saved %d snapshots, want 14", len(saved))
	}
	if saved["hunt"]["isActive"] != true {
		t.Fatalf("hunt should be saved active after stop: %v", saved["hunt"])
	}
	if saved["trade"]["isActive"] != false {
		t.Fatalf("trade should be saved inactive: %v", saved["trade"])
	}
}

func TestRestoresPersistedSettings(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.json")
	seed := `{
		"hunt": {"name": "hunt", "isActive": false, "interval": 300},
		"trade": {"name": "trade", "isActive": true, "interval": 120, "selectedRace": "zebras"},
		"ghost": {"name": "ghost", "isActive": true}
	}`
	if err := os.WriteFile(settings, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	a, ctx := startApp(t, writeConfig(t, dir, settings))
	defer a.Stop(context.Background(), StopSignal)

	views, err := a.Control().Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	got := byName(t, views)
	if h := got["hunt"]; h.Active || h.Interval != 300 {
		t.Fatalf("hunt=%+v, want inactive with interval 300", h)
	}
	if tr := got["trade"]; !tr.Active || tr.SelectedRace != "zebras" || tr.Interval != 120 {
		t.Fatalf("trade=%+v, want active trading with zebras every 120s", tr)
	}
	if _, ok := got["ghost"]; ok {
		t.Fatalf("unknown snapshot should not create a task")
	}
}

func TestControlChangesArePersisted(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.json")
	a, ctx := startApp(t, writeConfig(t, dir, settings))

	events, unsub := a.Bus().Subscribe(64, eventbus.TaskSettings)
	defer unsub()

	if _, err := a.Control().SetInterval(ctx, "wood", 2); err != nil {
		t.Fatalf("set interval: %v", err)
	}
	if _, err := a.Control().SelectRace(ctx, "trade", "lizards"); err != nil {
		t.Fatalf("select race: %v", err)
	}
	if _, err := a.Control().Start(ctx, "trade"); err != nil {
		t.Fatalf("start trade: %v", err)
	}

	select {
	case e := <-events:
		if e.Task != "wood" {
			t.Fatalf("first settings event for %q, want wood", e.Task)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no settings event")
	}

	if err := a.Stop(context.Background(), StopSignal); err != nil {
		t.Fatalf("stop: %v", err)
	}
	saved := readSettings(t, settings)
	if saved["wood"]["interval"] != float64(120) {
		t.Fatalf("wood=%v, want interval 120", saved["wood"])
	}
	if saved["trade"]["selectedRace"] != "lizards" || saved["trade"]["isActive"] != true {
		t.Fatalf("trade=%v", saved["trade"])
	}
}

func TestNewAppRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	if err := os.WriteFile(p, []byte(`{"storage":{"driver":"mongo"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewApp(context.Background(), p); err == nil {
		t.Fatalf("expected error for unknown storage driver")
	}
}

type unreadableStore struct{ storage.Store }

func (unreadableStore) LoadAll(context.Context) (map[string][]byte, error) {
	return nil, errors.New("i/o timeout")
}

func TestUnreadableStoreFailsStartWithoutOverwriting(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.json")
	seed := `{
		"trade": {"name": "trade", "isActive": true, "interval": 600, "selectedRace": "zebras"},
		"wood": {"name": "wood", "isActive": false, "interval": 900}
	}`
	if err := os.WriteFile(settings, []byte(seed), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a, err := NewApp(ctx, writeConfig(t, dir, settings))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.store = unreadableStore{a.store}
	a.rec.store = a.store

	if err := a.Start(ctx); err == nil {
		t.Fatalf("start succeeded with an unreadable store")
	}
	if err := a.Stop(context.Background(), StopFatalError); err != nil {
		t.Fatalf("stop: %v", err)
	}

	saved := readSettings(t, settings)
	if tr := saved["trade"]; tr["isActive"] != true || tr["interval"] != float64(600) || tr["selectedRace"] != "zebras" {
		t.Fatalf("trade overwritten: %v", tr)
	}
	if w := saved["wood"]; w["isActive"] != false || w["interval"] != float64(900) {
		t.Fatalf("wood overwritten: %v", w)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d snapshots, want the 2 seeded", len(saved))
	}
}

type failingStore struct{ storage.Store }

func (failingStore) Put(context.Context, string, []byte) error { return errors.New("disk full") }

func TestRecorderReportsStoreFailure(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	r := &recorder{
		store:   failingStore{storage.NewMemory()},
		bus:     bus,
		metrics: metrics.New(),
		log:     logx.Nop(),
		timeout: time.Second,
	}
	tk := task.New(task.Settings{Name: "wood"}, nopHooks{})
	r.persist(tk.Settings(), tk)

	select {
	case e := <-events:
		if e.Type != eventbus.StorageError || e.Task != "wood" {
			t.Fatalf("got %+v, want storage error for wood", e)
		}
	default:
		t.Fatalf("no event published")
	}
}

type nopHooks struct{}

func (nopHooks) OnExecute(*task.Task, any) error    { return nil }
func (nopHooks) ExecutionMessage(*task.Task) string { return "" }
