package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepLockIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	first := NewSweepLock(client, time.Minute)
	second := NewSweepLock(client, time.Minute)

	require.NoError(t, first.TryLock(ctx))
	assert.True(t, mr.Exists("reconcile:sweep:lock"))
	assert.Error(t, second.TryLock(ctx))

	require.NoError(t, first.Unlock(ctx))
	require.NoError(t, second.TryLock(ctx))
	require.NoError(t, second.Unlock(ctx))
}
