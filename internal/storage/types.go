package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownDriver = errors.New("storage: unknown driver")
	ErrClosed        = errors.New("storage: closed")
	ErrInvalidKey    = errors.New("storage: empty key")
)

// Config configures storage.
//
// Driver values:
//   - "memory": process-local map, nothing survives a restart
//   - "file": single JSON document, rewritten atomically on each put
//   - "sqlite": SQLite database file
//   - "redis": one hash with a field per task
//
// An empty Driver or "none" selects memory.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisKey is the hash holding all snapshots.
	RedisKey string
}

// Store is the settings persistence API.
type Store interface {
	// LoadAll returns every stored snapshot keyed by task name.
	LoadAll(ctx context.Context) (map[string][]byte, error)
	// Put overwrites the snapshot stored under name.
	Put(ctx context.Context, name string, snapshot []byte) error
	Close() error
}
