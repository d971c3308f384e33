package redis

import (
	"context"
	"time"

	"FoodTok.com/pkg/constants"
	"github.com/redis/go-redis/v9"
)

// EventDeduper 记住最近处理完成的事件id. 只是预过滤, 数据库中的幂等记录才是最终依据
type EventDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewEventDeduper(client redis.Cmdable, ttl time.Duration) *EventDeduper {
	if ttl <= 0 {
		ttl = constants.EventDedupeTTLSec * time.Second
	}
	return &EventDeduper{client: client, ttl: ttl}
}

func eventKey(eventID string) string {
	return constants.EventDedupeKeyPrefix + eventID
}

func (d *EventDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, eventKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *EventDeduper) MarkDone(ctx context.Context, eventID string) error {
	return d.client.SetNX(ctx, eventKey(eventID), 1, d.ttl).Err()
}
