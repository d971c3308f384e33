package service

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"FoodTok.com/cmd/model"
	reconcile "FoodTok.com/cmd/reconcile/service"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

// TestVideoCreated 测试发布视频: 作者视频数+1, 生成标签, 通知粉丝
func TestVideoCreated(t *testing.T) {
	f := newFixture(t, WithChunkSize(2))
	f.user("owner")
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("fan%d", i)
		f.user(id)
		f.follow(id, "owner")
	}
	f.follow("owner", "fan0")
	v := f.video(&model.Video{
		ID: "v1", OwnerID: "owner", Title: "Spicy noodles",
		Budget: ptr(15), Calories: ptr(700), PrepTimeMinutes: ptr(20),
		Hashtags: model.StringSet{"#Pasta", "pasta"},
	})

	created := f.event("videos/v1", nil, v)
	require.NoError(t, f.handle(created))

	assert.Equal(t, int64(1), f.getUser("owner").TotalVideos)
	assert.Equal(t, []string{"budget_10-25", "calories_600-1000", "prep_15-30", "tag_pasta"}, f.getVideo("v1").Tags.Sorted())

	for i := 0; i < 5; i++ {
		ns := f.notifications(fmt.Sprintf("fan%d", i))
		require.Len(t, ns, 1)
		assert.Equal(t, model.NotificationVideoPost, ns[0].Type)
		assert.Equal(t, "owner", ns[0].SourceUserID)
		assert.Equal(t, "v1", ns[0].VideoID)
	}
	assert.Empty(t, f.notifications("owner"))
	assert.Len(t, f.publisher.sent, 5)

	doc := f.indexer.indexed["v1"]
	require.NotNil(t, doc)
	assert.Contains(t, doc.Tags, "tag_pasta")

	t.Run("redelivery does not duplicate", func(t *testing.T) {
		delete(f.indexer.indexed, "v1")
		require.NoError(t, f.handle(created))
		assert.Equal(t, int64(1), f.getUser("owner").TotalVideos)
		assert.Len(t, f.notifications("fan3"), 1)
		assert.Len(t, f.publisher.sent, 5)
		assert.NotContains(t, f.indexer.indexed, "v1", "side effects run once per event")
	})
}

// 没有作者的视频不改计数, 重复投递同样只同步一次
func TestVideoCreatedWithoutOwnerRedelivered(t *testing.T) {
	f := newFixture(t)
	v := f.video(&model.Video{ID: "v1", Title: "Orphan"})
	created := f.event("videos/v1", nil, v)

	require.NoError(t, f.handle(created))
	require.Contains(t, f.indexer.indexed, "v1")
	delete(f.indexer.indexed, "v1")

	require.NoError(t, f.handle(created))
	assert.NotContains(t, f.indexer.indexed, "v1")
	assert.Empty(t, f.publisher.sent)
}

func TestPrivateVideoNotifiesNobody(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.user("fan")
	f.follow("fan", "owner")
	v := f.video(&model.Video{ID: "v1", OwnerID: "owner", Privacy: model.PrivacyPrivate})

	require.NoError(t, f.handle(f.event("videos/v1", nil, v)))
	assert.Equal(t, int64(1), f.getUser("owner").TotalVideos)
	assert.Empty(t, f.notifications("fan"))
}

func TestTagsWrittenOnlyWhenDifferent(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	v := f.video(&model.Video{ID: "v1", OwnerID: "owner", Spiciness: 3, Tags: model.StringSet{"spicy_3"}})
	versionBefore := f.getVideo("v1").Version

	require.NoError(t, f.handle(f.event("videos/v1", nil, v)))
	assert.Equal(t, versionBefore, f.getVideo("v1").Version, "matching tags are not rewritten")

	after := *v
	after.Spiciness = 0
	require.NoError(t, f.db.Model(&model.Video{}).Where("id = ?", "v1").Update("spiciness", 0).Error)
	require.NoError(t, f.handle(f.event("videos/v1", v, &after)))
	assert.Empty(t, f.getVideo("v1").Tags)
}

// TestVideoLikesChanged 视频点赞数变化时作者总获赞数同步变化
func TestVideoLikesChanged(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	before := f.video(&model.Video{ID: "v1", OwnerID: "owner"})
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", "owner").Update("total_likes", 10).Error)
	require.NoError(t, f.db.Model(&model.Video{}).Where("id = ?", "v1").Update("likes_count", 3).Error)
	after := *before
	after.LikesCount = 3

	require.NoError(t, f.handle(f.event("videos/v1", before, &after)))
	assert.Equal(t, int64(13), f.getUser("owner").TotalLikes)
	assert.Empty(t, f.pending())
}

// TestStaleLikesEventQueuesRepair 事件中的点赞数与当前值不一致, 重试耗尽后进入修复队列
func TestStaleLikesEventQueuesRepair(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	before := f.video(&model.Video{ID: "v1", OwnerID: "owner"})
	require.NoError(t, f.db.Model(&model.Video{}).Where("id = ?", "v1").Update("likes_count", 5).Error)
	after := *before
	after.LikesCount = 3

	require.NoError(t, f.handle(f.event("videos/v1", before, &after)))
	assert.Equal(t, int64(0), f.getUser("owner").TotalLikes)
	tasks := f.pending()
	require.Len(t, tasks, 1)
	assert.Equal(t, model.KindUserTotalLikes, tasks[0].Kind)
	assert.Equal(t, "owner", tasks[0].TargetID)
}

// TestVideoDeleted 删除视频: 扣除作者计数并清理所有点赞记录
func TestVideoDeleted(t *testing.T) {
	f := newFixture(t, WithChunkSize(2))
	f.user("owner")
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", "owner").Updates(map[string]interface{}{"total_likes": 3, "total_videos": 2}).Error)
	v := f.video(&model.Video{ID: "v1", OwnerID: "owner", LikesCount: 5})
	f.video(&model.Video{ID: "v2", OwnerID: "owner"})
	for i := 0; i < 5; i++ {
		require.NoError(t, db.CreateVideoLike(f.ctx, f.db, &model.VideoLike{VideoID: "v1", UserID: fmt.Sprintf("u%d", i)}))
	}
	require.NoError(t, db.CreateVideoLike(f.ctx, f.db, &model.VideoLike{VideoID: "v2", UserID: "u0"}))
	require.NoError(t, f.db.Delete(&model.Video{}, "id = ?", "v1").Error)

	require.NoError(t, f.handle(f.event("videos/v1", v, nil)))

	owner := f.getUser("owner")
	assert.Equal(t, int64(0), owner.TotalLikes, "clamped at zero")
	assert.Equal(t, int64(1), owner.TotalVideos)
	assert.Zero(t, f.count(&model.VideoLike{}, "video_id = ?", "v1"))
	assert.Equal(t, int64(1), f.count(&model.VideoLike{}, "video_id = ?", "v2"))
	assert.Contains(t, f.indexer.deleted, "v1")
}

func TestVideoSoftDeleted(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", "owner").Updates(map[string]interface{}{"total_likes": 7, "total_videos": 1}).Error)
	before := f.video(&model.Video{ID: "v1", OwnerID: "owner", LikesCount: 4})
	require.NoError(t, db.CreateVideoLike(f.ctx, f.db, &model.VideoLike{VideoID: "v1", UserID: "u1"}))
	after := *before
	after.Status = model.VideoStatusDeleted
	require.NoError(t, f.db.Model(&model.Video{}).Where("id = ?", "v1").Update("status", model.VideoStatusDeleted).Error)

	require.NoError(t, f.handle(f.event("videos/v1", before, &after)))
	owner := f.getUser("owner")
	assert.Equal(t, int64(3), owner.TotalLikes)
	assert.Equal(t, int64(0), owner.TotalVideos)
	assert.Zero(t, f.count(&model.VideoLike{}, "video_id = ?", "v1"))
	assert.Contains(t, f.indexer.deleted, "v1")
	assert.NotContains(t, f.indexer.indexed, "v1")
}

func TestProcessingVideoPublished(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.user("fan")
	f.follow("fan", "owner")
	before := f.video(&model.Video{ID: "v1", OwnerID: "owner", Status: model.VideoStatusProcessing})

	require.NoError(t, f.handle(f.event("videos/v1", nil, before)))
	assert.Equal(t, int64(0), f.getUser("owner").TotalVideos)
	assert.Empty(t, f.notifications("fan"))

	after := *before
	after.Status = model.VideoStatusActive
	require.NoError(t, f.handle(f.event("videos/v1", before, &after)))
	assert.Equal(t, int64(1), f.getUser("owner").TotalVideos)
	assert.Len(t, f.notifications("fan"), 1)
}

func TestOwnerChangeQueuesRecount(t *testing.T) {
	f := newFixture(t)
	before := f.video(&model.Video{ID: "v1", LegacyUserID: "legacy"})
	after := *before
	after.OwnerID = "legacy"

	require.NoError(t, f.handle(f.event("videos/v1", before, &after)))
	kinds := map[model.ReconcileKind]string{}
	for _, task := range f.pending() {
		kinds[task.Kind] = task.TargetID
	}
	assert.Equal(t, map[model.ReconcileKind]string{
		model.KindUserTotalLikes:  "legacy",
		model.KindUserTotalVideos: "legacy",
	}, kinds)
}

// TestVideoLike 点赞: 视频点赞数+1, 通知作者, 并发布视频更新事件
func TestVideoLike(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.video(&model.Video{ID: "v1", OwnerID: "owner"})
	like := &model.VideoLike{ID: "v1_alice", VideoID: "v1", UserID: "alice"}

	require.NoError(t, f.handle(f.event("videos/v1/likes/alice", nil, like)))
	assert.Equal(t, int64(1), f.getVideo("v1").LikesCount)
	ns := f.notifications("owner")
	require.Len(t, ns, 1)
	assert.Equal(t, model.NotificationLike, ns[0].Type)

	require.Len(t, f.emitter.events, 1)
	emitted := f.emitter.events[0]
	assert.Equal(t, "videos/v1", emitted.Path)
	assert.Equal(t, mq.ChangeUpdate, emitted.Kind())
	var b, a model.Video
	require.NoError(t, json.Unmarshal(emitted.Before, &b))
	require.NoError(t, json.Unmarshal(emitted.After, &a))
	assert.Equal(t, int64(0), b.LikesCount)
	assert.Equal(t, int64(1), a.LikesCount)

	// 把发布的事件交回处理函数, 作者总获赞数随之更新
	require.NoError(t, f.handle(emitted))
	assert.Equal(t, int64(1), f.getUser("owner").TotalLikes)

	require.NoError(t, f.handle(f.event("videos/v1/likes/alice", like, nil)))
	assert.Equal(t, int64(0), f.getVideo("v1").LikesCount)
	require.Len(t, f.emitter.events, 2)
	require.NoError(t, f.handle(f.emitter.events[1]))
	assert.Equal(t, int64(0), f.getUser("owner").TotalLikes)
	assert.Len(t, f.notifications("owner"), 1, "unlike keeps the like notification")
}

func TestVideoLikeBySelf(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.video(&model.Video{ID: "v1", OwnerID: "owner"})
	require.NoError(t, f.handle(f.event("videos/v1/likes/owner", nil, &model.VideoLike{VideoID: "v1", UserID: "owner"})))
	assert.Equal(t, int64(1), f.getVideo("v1").LikesCount)
	assert.Empty(t, f.notifications("owner"))
}

func TestConcurrentVideoLikesNetSum(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.video(&model.Video{ID: "v1", OwnerID: "owner"})

	events := make([]*mq.ChangeEvent, 0, 30)
	for i := 0; i < 20; i++ {
		events = append(events, f.event(fmt.Sprintf("videos/v1/likes/u%d", i), nil, &model.VideoLike{VideoID: "v1"}))
	}
	for i := 0; i < 8; i++ {
		events = append(events, f.event(fmt.Sprintf("videos/v1/likes/u%d", i), &model.VideoLike{VideoID: "v1"}, nil))
	}
	done := make(chan error, len(events[:20]))
	for _, e := range events[:20] {
		go func(e *mq.ChangeEvent) { done <- f.disp.HandleChangeEvent(f.ctx, e) }(e)
	}
	for range events[:20] {
		require.NoError(t, <-done)
	}
	for _, e := range events[20:] {
		go func(e *mq.ChangeEvent) { done <- f.disp.HandleChangeEvent(f.ctx, e) }(e)
	}
	for range events[20:] {
		require.NoError(t, <-done)
	}
	// 重复投递不改变结果
	for _, e := range events {
		require.NoError(t, f.disp.HandleChangeEvent(f.ctx, e))
	}
	assert.Equal(t, int64(12), f.getVideo("v1").LikesCount)
}

// TestOutOfOrderVideoLikesConverge 取消点赞先于点赞到达时计数被截断, 修复任务把它拉回到净值
func TestOutOfOrderVideoLikesConverge(t *testing.T) {
	f := newFixture(t)
	f.user("owner")
	f.video(&model.Video{ID: "v1", OwnerID: "owner"})
	// 最终状态: u0..u7 点赞后又取消, u8..u19 仍然点赞
	for i := 8; i < 20; i++ {
		require.NoError(t, db.CreateVideoLike(f.ctx, f.db, &model.VideoLike{VideoID: "v1", UserID: fmt.Sprintf("u%d", i)}))
	}

	removes := make([]*mq.ChangeEvent, 0, 8)
	for i := 0; i < 8; i++ {
		removes = append(removes, f.event(fmt.Sprintf("videos/v1/likes/u%d", i), &model.VideoLike{VideoID: "v1"}, nil))
	}
	adds := make([]*mq.ChangeEvent, 0, 20)
	for i := 0; i < 20; i++ {
		adds = append(adds, f.event(fmt.Sprintf("videos/v1/likes/u%d", i), nil, &model.VideoLike{VideoID: "v1"}))
	}
	rnd := rand.New(rand.NewSource(7))
	rnd.Shuffle(len(adds), func(i, j int) { adds[i], adds[j] = adds[j], adds[i] })

	for _, e := range append(removes, adds...) {
		require.NoError(t, f.disp.HandleChangeEvent(f.ctx, e))
	}
	assert.Equal(t, int64(20), f.getVideo("v1").LikesCount, "removes before any add are clamped")

	queued := 0
	for _, task := range f.pending() {
		if task.Kind == model.KindVideoLikes && task.TargetID == "v1" {
			queued++
		}
	}
	assert.Equal(t, 8, queued)

	sweeper := reconcile.NewReconcileService(f.svc.updater, 100)
	_, err := sweeper.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), f.getVideo("v1").LikesCount)
	assert.Equal(t, int64(12), f.getUser("owner").TotalLikes)

	stats, err := sweeper.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Changed)
}
