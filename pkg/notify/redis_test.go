package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"FoodTok.com/cmd/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel("bob"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n, err := Build(Follow{RecipientID: "bob", SourceUserID: "alice"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, NewRedisPublisher(client).Publish(ctx, n))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "user_notifications:bob", msg.Channel)
		var got model.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, model.NotificationFollow, got.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not published")
	}
}
