package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "autokittens/pkg/logx"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "autokittens:settings"

// redisStore keeps all snapshots as fields of a single hash.
type redisStore struct {
	client *redis.Client
	key    string
	log    logx.Logger
}

func openRedis(cfg Config, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("storage.redis_addr is required for redis driver")
	}
	key := strings.TrimSpace(cfg.RedisKey)
	if key == "" {
		key = defaultRedisKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &redisStore{client: client, key: key, log: log}, nil
}

func (s *redisStore) LoadAll(ctx context.Context) (map[string][]byte, error) {
	m, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = []byte(v)
	}
	return out, nil
}

func (s *redisStore) Put(ctx context.Context, name string, snapshot []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidKey
	}
	return s.client.HSet(ctx, s.key, name, snapshot).Err()
}

func (s *redisStore) Close() error { return s.client.Close() }
