package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutex_LockUnlock(t *testing.T) {
	mr, client := newMiniClient(t)
	factory := NewLockFactory(client, "alchemist:", nil)
	ctx := context.Background()

	lock := factory.NewMutex("prediction:42", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists("alchemist:lock:prediction:42"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("alchemist:lock:prediction:42"))
	assert.Equal(t, ErrLockNotHeld, lock.Unlock(ctx))
}

func TestMutex_Contention(t *testing.T) {
	_, client := newMiniClient(t)
	factory := NewLockFactory(client, "alchemist:", nil)
	ctx := context.Background()

	first := factory.NewMutex("p", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))
	second := factory.NewMutex("p", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))

	require.NoError(t, first.Lock(ctx))
	assert.Equal(t, ErrLockNotAcquired, second.Lock(ctx))

	ok, err := second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock(ctx))
	assert.NoError(t, second.Lock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	mr, client := newMiniClient(t)
	lock := NewLockFactory(client, "", nil).NewMutex("p", WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, lock.Lock(ctx))
	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("lock:p"))
}

func TestMutex_Watchdog(t *testing.T) {
	_, client := newMiniClient(t)
	lock := NewLockFactory(client, "", nil).NewMutex("p", WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	ctx := context.Background()

	require.NoError(t, lock.Lock(ctx))
	require.NoError(t, lock.Unlock(ctx))
}

func TestMutex_ContextCancelled(t *testing.T) {
	_, client := newMiniClient(t)
	factory := NewLockFactory(client, "", nil)
	holder := factory.NewMutex("p")
	require.NoError(t, holder.Lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	waiter := factory.NewMutex("p", WithRetryDelay(time.Second))
	assert.ErrorIs(t, waiter.Lock(ctx), context.Canceled)
}
