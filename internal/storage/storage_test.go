package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "autokittens/pkg/logx"
)

func roundTrip(t *testing.T, open func() Store) {
	t.Helper()
	ctx := context.Background()

	st := open()
	if got, err := st.LoadAll(ctx); err != nil || len(got) != 0 {
		t.Fatalf("fresh store: %v, %v", got, err)
	}
	if err := st.Put(ctx, "wood", []byte(`{"name":"wood","isActive":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.Put(ctx, "trade", []byte(`{"name":"trade","isActive":false}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.Put(ctx, "wood", []byte(`{"name":"wood","isActive":false}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := st.Put(ctx, " ", []byte(`{}`)); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("empty key err = %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st = open()
	defer st.Close()
	got, err := st.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 2 || string(got["wood"]) != `{"name":"wood","isActive":false}` {
		t.Fatalf("reloaded = %q", got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "autokittens.json")
	roundTrip(t, func() Store {
		st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autokittens.db")
	roundTrip(t, func() Store {
		st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return st
	})
}

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("AUTOKITTENS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUTOKITTENS_TEST_REDIS_ADDR not set")
	}
	key := "autokittens:test:" + t.Name()
	first := true
	roundTrip(t, func() Store {
		st, err := Open(Config{Driver: "redis", RedisAddr: addr, RedisKey: key}, logx.Nop())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if first {
			first = false
			rs := st.(*redisStore)
			_ = rs.client.Del(context.Background(), key).Err()
		}
		return st
	})
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	st, err := Open(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := []byte(`{"a":1}`)
	_ = st.Put(context.Background(), "a", buf)
	buf[2] = 'X'
	got, _ := st.LoadAll(context.Background())
	if string(got["a"]) != `{"a":1}` {
		t.Fatalf("store aliased caller buffer: %s", got["a"])
	}
	_ = st.Close()
	if _, err := st.LoadAll(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err after close = %v", err)
	}
}

func TestFileStoreMovesCorruptFileAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autokittens.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if got, _ := st.LoadAll(context.Background()); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Fatalf("corrupt file not preserved: %v", err)
	}
}

func TestFileStoreRejectsInvalidSnapshot(t *testing.T) {
	st, _ := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "s.json")}, logx.Nop())
	defer st.Close()
	if err := st.Put(context.Background(), "wood", []byte("nope")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v", err)
	}
}
