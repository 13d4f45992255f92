package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arbolmarket/cartsync/pkg/config"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "cartsync"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// RedisBackend stores envelopes in redis under a namespaced keyspace.
type RedisBackend struct {
	store cmdable
	raw   *redis.Client
}

// NewRedisBackend bootstraps a redis-backed Backend and verifies connectivity.
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig) (*RedisBackend, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisBackend{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if b.store == nil {
		return "", false, errors.New("redis backend not initialized")
	}
	value, err := b.store.Get(ctx, buildKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if b.store == nil {
		return errors.New("redis backend not initialized")
	}
	return b.store.Set(ctx, buildKey(key), value, ttl).Err()
}

func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	if b.store == nil {
		return errors.New("redis backend not initialized")
	}
	namespaced := make([]string, 0, len(keys))
	for _, key := range keys {
		namespaced = append(namespaced, buildKey(key))
	}
	return b.store.Del(ctx, namespaced...).Err()
}

// Ping verifies the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if b.store == nil {
		return errors.New("redis backend not initialized")
	}
	return b.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (b *RedisBackend) Close() error {
	if b.raw == nil {
		return nil
	}
	return b.raw.Close()
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
