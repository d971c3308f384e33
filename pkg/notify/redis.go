package notify

import (
	"context"
	"encoding/json"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher 发布到 user_notifications:{recipientId} 频道, 在线的客户端通过订阅接收
type RedisPublisher struct {
	client redis.Cmdable
}

func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func Channel(recipientID string) string {
	return constants.NotificationChannelPrefix + recipientID
}

func (p *RedisPublisher) Publish(ctx context.Context, n *model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Channel(n.RecipientID), payload).Err()
}
