package redislock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/momeni/sqlmig/pkg/adapter/lock/redislock"
	"github.com/momeni/sqlmig/pkg/core/repo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(
	t *testing.T, opts ...redislock.Option,
) (*miniredis.Miniredis, *redislock.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		assert.NoError(t, client.Close(), "closing redis client")
	})
	opts = append([]redislock.Option{
		redislock.WithRetry(time.Millisecond),
	}, opts...)
	l, err := redislock.New(client, opts...)
	require.NoError(t, err, "redislock.New")
	return mr, l
}

func TestMutualExclusion(t *testing.T) {
	mr, l := newLocker(t)
	ctx := context.Background()
	var (
		inside  atomic.Int32
		overlap atomic.Bool
		runs    atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Lock(ctx, nil, "history", func(
				context.Context, repo.Queryer,
			) error {
				if inside.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(2 * time.Millisecond)
				inside.Add(-1)
				runs.Add(1)
				return nil
			})
			assert.NoError(t, err, "Lock")
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load(), "actions overlapped")
	assert.EqualValues(t, 8, runs.Load())
	assert.False(t, mr.Exists("sqlmig:lock:history"), "key is not released")
}

func TestActionErrorAndKeyOwnership(t *testing.T) {
	mr, l := newLocker(t, redislock.WithPrefix("p:"))
	ctx := context.Background()
	errAction := errors.New("action failed")
	err := l.Lock(ctx, nil, "t", func(context.Context, repo.Queryer) error {
		v, err := mr.Get("p:t")
		require.NoError(t, err, "lock key is missing")
		require.NotEmpty(t, v, "owner token is missing")
		return errAction
	})
	require.ErrorIs(t, err, errAction)
	assert.False(t, mr.Exists("p:t"), "key is not released")
}

func TestBusyLockHonoursCancellation(t *testing.T) {
	mr, l := newLocker(t)
	require.NoError(t, mr.Set("sqlmig:lock:t", "someone-else"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := l.Lock(ctx, nil, "t", func(context.Context, repo.Queryer) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called, "action ran without the lock")
	v, err := mr.Get("sqlmig:lock:t")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v, "foreign key is modified")
}

func TestLostLock(t *testing.T) {
	mr, l := newLocker(t, redislock.WithTTL(30*time.Millisecond))
	ctx := context.Background()
	err := l.Lock(ctx, nil, "t", func(context.Context, repo.Queryer) error {
		mr.FastForward(time.Minute)
		require.NoError(t, mr.Set("sqlmig:lock:t", "another-owner"))
		time.Sleep(60 * time.Millisecond)
		return nil
	})
	require.ErrorIs(t, err, redislock.ErrLost)
	v, err := mr.Get("sqlmig:lock:t")
	require.NoError(t, err)
	assert.Equal(t, "another-owner", v, "release removed a foreign key")
}

func TestOptions(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	for _, opt := range []redislock.Option{
		redislock.WithTTL(time.Millisecond),
		redislock.WithRetry(0),
	} {
		_, err := redislock.New(client, opt)
		assert.Error(t, err)
	}
	_, err := redislock.New(nil)
	assert.Error(t, err, "nil client")
}
