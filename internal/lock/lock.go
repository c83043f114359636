// Package lock serializes writers of the same key across server instances.
// Locks are best-effort: when Redis is down or the lock is held too long the
// caller proceeds and relies on the database transaction alone.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Locker interface {
	// Acquire returns a release func that is always safe to call.
	Acquire(ctx context.Context, key string) func()
}

type Noop struct{}

func (Noop) Acquire(context.Context, string) func() { return func() {} }

type Redis struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	logger *logrus.Logger
}

func NewRedis(rdb redis.UniversalClient, logger *logrus.Logger) *Redis {
	return &Redis{
		client: redislock.New(rdb),
		ttl:    30 * time.Second,
		wait:   5 * time.Second,
		logger: logger,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) func() {
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), int(r.wait/(100*time.Millisecond))),
	}
	l, err := r.client.Obtain(ctx, "lock:"+key, r.ttl, opts)
	if err != nil {
		msg := "error obtaining redis lock; proceeding without redis lock"
		if errors.Is(err, redislock.ErrNotObtained) {
			msg = "could not obtain redis lock; proceeding without redis lock"
		}
		r.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn(msg)
		return func() {}
	}
	return func() {
		if err := l.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			r.logger.WithField("key", key).Warn("failed to release redis lock: " + err.Error())
		}
	}
}
