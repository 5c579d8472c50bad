package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "autokittens/pkg/logx"
)

// fileStore keeps every snapshot in one JSON object keyed by task name, the
// same layout the browser script kept under its single storage key.
//
// Each Put rewrites the document through <path>.tmp and a rename, so a crash
// leaves either the old or the new document on disk.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	data   map[string]json.RawMessage
	closed bool
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	data := map[string]json.RawMessage{}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	case len(bytes.TrimSpace(b)) > 0:
		if err := json.Unmarshal(b, &data); err != nil {
			// Keep the unreadable file around instead of overwriting it.
			bad := path + ".corrupt"
			_ = os.Rename(path, bad)
			log.Warn("settings file unreadable, starting empty", logx.String("moved_to", bad), logx.Err(err))
			data = map[string]json.RawMessage{}
		}
	}
	return &fileStore{log: log, path: path, data: data}, nil
}

func (s *fileStore) LoadAll(context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (s *fileStore) Put(ctx context.Context, name string, snapshot []byte) error {
	_ = ctx
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidKey
	}
	if !json.Valid(snapshot) {
		return fmt.Errorf("storage: snapshot for %q is not valid JSON", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, had := s.data[name]
	s.data[name] = append(json.RawMessage(nil), snapshot...)
	if err := s.flushLocked(); err != nil {
		if had {
			s.data[name] = prev
		} else {
			delete(s.data, name)
		}
		return err
	}
	return nil
}

func (s *fileStore) flushLocked() error {
	b, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
