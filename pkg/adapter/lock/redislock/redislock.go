// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package redislock implements the repo.Locker interface with a Redis
// key. The key is set (if it does not exist) with a random owner token
// and an expiration time, so a crashed process cannot keep the lock
// forever. The expiration is extended while the action is running and
// the key is deleted afterwards, if it is still owned by this process.
//
// Using Redis is an opt-in alternative to the database level locks
// when several processes (possibly using different database sessions)
// must be serialized.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/sqlmig/pkg/core/log"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/redis/go-redis/v9"
)

// These scripts only touch the key if its value is the owner token.
var (
	release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
	refresh = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// ErrLost indicates that the lock key was expired or taken by another
// owner while the action was running.
var ErrLost = errors.New("redis lock is lost")

// Locker holds locks as keys of a Redis server.
type Locker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

var _ repo.Locker = (*Locker)(nil)

// New instantiates a Locker which uses the client connection.
// By default, keys are prefixed by "sqlmig:lock:", expire after 30s
// unless refreshed, and busy locks are polled every 100ms.
func New(client redis.UniversalClient, opts ...Option) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	l := &Locker{
		client: client,
		prefix: "sqlmig:lock:",
		ttl:    30 * time.Second,
		retry:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Lock blocks until the object lock is acquired (or ctx is cancelled),
// then runs action with the c connection. The action error (if any) is
// joined with the release error.
func (l *Locker) Lock(
	ctx context.Context, c repo.Conn, object string,
	action repo.LockedHandler,
) (err error) {
	key := l.prefix + object
	token := uuid.NewString()
	if err = l.acquire(ctx, key, token); err != nil {
		return err
	}
	log.Debug(ctx, "acquired redis lock", slog.String("key", key))
	done := make(chan struct{})
	lost := make(chan struct{})
	go l.keepAlive(ctx, key, token, done, lost)
	defer func() {
		close(done)
		uctx := context.WithoutCancel(ctx)
		n, err2 := release.Run(uctx, l.client, []string{key}, token).Int()
		switch {
		case err2 != nil:
			err = errors.Join(err, fmt.Errorf("releasing %s: %w", key, err2))
		case n == 0:
			err = errors.Join(err, fmt.Errorf("releasing %s: %w", key, ErrLost))
		}
	}()
	err = action(ctx, c)
	select {
	case <-lost:
		err = errors.Join(err, ErrLost)
	default:
	}
	return err
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", key, ctx.Err())
		}
	}
}

// keepAlive extends the key expiration time every third of its ttl
// until done is closed. It closes lost if the key is not owned anymore.
func (l *Locker) keepAlive(
	ctx context.Context, key, token string, done, lost chan struct{},
) {
	ctx = context.WithoutCancel(ctx)
	t := time.NewTicker(l.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
		}
		n, err := refresh.Run(
			ctx, l.client, []string{key}, token, l.ttl.Milliseconds(),
		).Int()
		if err != nil {
			log.Warn(
				ctx, "refreshing redis lock failed",
				slog.String("key", key), log.Err("err", err),
			)
			continue
		}
		if n == 0 {
			log.Error(ctx, "redis lock is lost", slog.String("key", key))
			close(lost)
			return
		}
	}
}
