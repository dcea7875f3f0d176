package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces batch locks in Redis.
const keyPrefix = "shipbatch:lock:"

// Redis is a distributed lock over a Redis server.
type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedis wraps an existing client. ttl is the lease length and wait is
// how long Lock retries a busy key before giving up.
func NewRedis(rdb redis.UniversalClient, ttl, wait time.Duration) *Redis {
	return &Redis{client: redislock.New(rdb), ttl: ttl, wait: wait}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// Lock obtains the lease for key, retrying every 100ms for up to the
// configured wait. The lease is refreshed at half its TTL until Unlock.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	retries := int(r.wait / (100 * time.Millisecond))
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries),
	}

	l, err := r.client.Obtain(ctx, keyPrefix+key, r.ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.refresh(l, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				slog.Warn("release batch lock failed", "key", key, "error", err)
			}
		})
	}, nil
}

func (r *Redis) refresh(l *redislock.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := l.Refresh(context.Background(), r.ttl, nil); err != nil {
				slog.Warn("refresh batch lock failed", "key", l.Key(), "error", err)
				return
			}
		}
	}
}
