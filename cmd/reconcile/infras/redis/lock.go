package redis

import (
	"context"
	"time"

	"FoodTok.com/config"
	"FoodTok.com/pkg/constants"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

func Load() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.ConfigInfo.Redis.Addr,
		Password: config.ConfigInfo.Redis.Password,
		DB:       config.ConfigInfo.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		hlog.Warnf("redis ping failed: %v", err)
	}
	return client
}

// SweepLock 保证同一时刻只有一个实例在执行全量修复
type SweepLock struct {
	mutex *redsync.Mutex
}

func NewSweepLock(client redis.UniversalClient, ttl time.Duration) *SweepLock {
	rs := redsync.New(goredis.NewPool(client))
	return &SweepLock{
		mutex: rs.NewMutex(constants.SweepLockKey,
			redsync.WithExpiry(ttl),
			redsync.WithTries(1),
		),
	}
}

// TryLock 只尝试一次, 锁被其他实例持有时返回错误
func (l *SweepLock) TryLock(ctx context.Context) error {
	return l.mutex.TryLockContext(ctx)
}

func (l *SweepLock) Unlock(ctx context.Context) error {
	_, err := l.mutex.UnlockContext(ctx)
	return err
}
