package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"baccarat-road/apps/server/internal/config"
	"baccarat-road/road"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

type RedisStore struct {
	client RedisClient
	prefix string
}

func NewRedisStore(cfg config.PrefsConfig) (*RedisStore, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

func NewRedisStoreWithClient(client RedisClient, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "baccarat"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(cfg config.PrefsConfig) (*redis.Options, error) {
	raw := strings.TrimSpace(cfg.RedisURL)
	if strings.HasPrefix(raw, "redis://") || strings.HasPrefix(raw, "rediss://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		if cfg.RedisPassword != "" {
			opts.Password = cfg.RedisPassword
		}
		return opts, nil
	}
	if raw == "" {
		raw = "localhost:6379"
	}
	return &redis.Options{
		Addr:     raw,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func (r *RedisStore) key(name string) string {
	return r.prefix + ":" + name
}

func (r *RedisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *RedisStore) SaveOutcomes(ctx context.Context, sessionID string, events []road.OutcomeEvent) error {
	raw, err := encodeOutcomes(sessionID, events)
	if err != nil {
		return fmt.Errorf("marshaling outcomes: %w", err)
	}
	return r.client.Set(ctx, r.key("outcomes"), raw, 0).Err()
}

func (r *RedisStore) LoadOutcomes(ctx context.Context, sessionID string) ([]road.OutcomeEvent, bool, error) {
	raw, err := r.client.Get(ctx, r.key("outcomes")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	owner, events, err := decodeOutcomes(raw)
	if err != nil {
		return nil, false, err
	}
	if owner != sessionID {
		return nil, false, nil
	}
	return events, true, nil
}

func (r *RedisStore) SetActiveSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return r.client.Del(ctx, r.key("session:active")).Err()
	}
	return r.client.Set(ctx, r.key("session:active"), sessionID, 0).Err()
}

func (r *RedisStore) ActiveSession(ctx context.Context) (string, bool, error) {
	id, err := r.client.Get(ctx, r.key("session:active")).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, id != "", nil
}

func (r *RedisStore) SetTimerStart(ctx context.Context, start time.Time) error {
	if start.IsZero() {
		return r.client.Del(ctx, r.key("timer:start")).Err()
	}
	return r.client.Set(ctx, r.key("timer:start"), start.UnixMilli(), 0).Err()
}

func (r *RedisStore) TimerStart(ctx context.Context) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, r.key("timer:start")).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("timer start %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}
