package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Locker hands out short-lived exclusive locks, used to keep one instance per sweep run.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Deduper remembers keys for a while; Mark reports true only the first time a key is seen.
type Deduper interface {
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	full := l.prefix + key
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		_ = unlockScript.Run(context.Background(), l.rdb, []string{full}, token).Err()
	}
	return unlock, true, nil
}

type RedisDeduper struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisDeduper(rdb *redis.Client, prefix string) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, prefix: prefix}
}

func (d *RedisDeduper) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe %s: %w", key, err)
	}
	return ok, nil
}
