// Package runlock keeps two healer runs from resolving issues at the same
// time, across processes.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress is returned by Acquire when another holder owns the lock.
var ErrRunInProgress = errors.New("another run is in progress")

const keyPrefix = "workflow-healer:lock:"

// ReleaseFunc gives the lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (ReleaseFunc, error)
	Close() error
}

// releaseScript deletes the key only when it still holds our token, so an
// expired lock taken over by another run is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisLocker connects to the redis instance at url
// (redis://[:password@]host:port/db).
func NewRedisLocker(ctx context.Context, logger *slog.Logger, url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return &RedisLocker{client: client, logger: logger.With("module", "runlock")}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (ReleaseFunc, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	if !ok {
		return nil, fmt.Errorf("lock %s: %w", name, ErrRunInProgress)
	}

	l.logger.DebugContext(ctx, "Lock acquired", "lock", name, "ttl", ttl)

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", name, err)
		}

		return nil
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Noop always grants the lock. It is used when no redis is configured and
// for dry runs, which change nothing.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

func (Noop) Close() error { return nil }

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = Noop{}
)
