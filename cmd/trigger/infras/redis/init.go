package redis

import (
	"context"

	"FoodTok.com/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/redis/go-redis/v9"
)

var redisDBEvents *redis.Client

func Load() *redis.Client {
	redisDBEvents = redis.NewClient(&redis.Options{
		Addr:     config.ConfigInfo.Redis.Addr,
		Password: config.ConfigInfo.Redis.Password,
		DB:       config.ConfigInfo.Redis.DB,
	})
	if err := redisDBEvents.Ping(context.Background()).Err(); err != nil {
		hlog.Warnf("redisDBEvents ping failed, dedupe and notification push degrade: %v", err)
	}
	return redisDBEvents
}
