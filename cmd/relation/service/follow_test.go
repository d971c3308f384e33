package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/dal/dbtest"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n *model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func newService(t *testing.T) (*RelationService, *gorm.DB, *recordingPublisher) {
	gdb := dbtest.New(t)
	policy := &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	pub := &recordingPublisher{}
	svc := NewRelationService(context.Background(), counter.NewUpdater(gdb, policy, nil), pub)
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, db.CreateUser(context.Background(), gdb, &model.User{ID: id, Email: id + "@foodtok.com"}))
	}
	return svc, gdb, pub
}

func loadUser(t *testing.T, gdb *gorm.DB, id string) *model.User {
	u, err := db.GetUser(context.Background(), gdb, id)
	require.NoError(t, err)
	return u
}

func TestFollowAndUnfollow(t *testing.T) {
	svc, gdb, pub := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.FollowUser("alice", "bob"))

	edge, err := db.GetFollowEdge(ctx, gdb, "alice_bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", edge.FollowerID)
	assert.Equal(t, "bob", edge.FollowingID)
	assert.Equal(t, int64(1), loadUser(t, gdb, "alice").FollowingCount)
	assert.Equal(t, int64(1), loadUser(t, gdb, "bob").FollowersCount)

	notes, err := db.ListNotifications(ctx, gdb, "bob")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationFollow, notes[0].Type)
	assert.Equal(t, "alice", notes[0].SourceUserID)
	require.Len(t, pub.sent, 1)
	assert.Equal(t, notes[0].ID, pub.sent[0].ID)

	err = svc.FollowUser("alice", "bob")
	assert.ErrorIs(t, err, errno.AlreadyExistsErr)
	assert.Equal(t, int64(1), loadUser(t, gdb, "bob").FollowersCount)

	require.NoError(t, svc.UnfollowUser("alice", "bob"))
	_, err = db.GetFollowEdge(ctx, gdb, "alice_bob")
	assert.ErrorIs(t, err, errno.NotFoundErr)
	assert.Equal(t, int64(0), loadUser(t, gdb, "alice").FollowingCount)
	assert.Equal(t, int64(0), loadUser(t, gdb, "bob").FollowersCount)

	notes, err = db.ListNotifications(ctx, gdb, "bob")
	require.NoError(t, err)
	assert.Len(t, notes, 1, "follow notification is kept after unfollow")

	err = svc.UnfollowUser("alice", "bob")
	assert.ErrorIs(t, err, errno.NotFoundErr)
}

func TestFollowRejects(t *testing.T) {
	svc, gdb, pub := newService(t)

	assert.ErrorIs(t, svc.FollowUser("alice", "alice"), errno.RequestErr)
	assert.ErrorIs(t, svc.FollowUser("alice", ""), errno.RequestErr)
	assert.ErrorIs(t, svc.FollowUser("", "bob"), errno.UnauthenticatedErr)
	assert.ErrorIs(t, svc.FollowUser("alice", "ghost"), errno.NotFoundErr)

	var edges int64
	require.NoError(t, gdb.Model(&model.FollowEdge{}).Count(&edges).Error)
	assert.Zero(t, edges)
	assert.Zero(t, loadUser(t, gdb, "alice").FollowingCount)
	assert.Empty(t, pub.sent)
}

func TestRefollowCreatesNewNotification(t *testing.T) {
	svc, gdb, _ := newService(t)

	require.NoError(t, svc.FollowUser("alice", "bob"))
	require.NoError(t, svc.UnfollowUser("alice", "bob"))
	require.NoError(t, svc.FollowUser("alice", "bob"))

	notes, err := db.ListNotifications(context.Background(), gdb, "bob")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
	assert.Equal(t, int64(1), loadUser(t, gdb, "bob").FollowersCount)
}
