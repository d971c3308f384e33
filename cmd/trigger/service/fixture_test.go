package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/dal/dbtest"
	"FoodTok.com/pkg/mq"
	"FoodTok.com/pkg/retry"
	"FoodTok.com/pkg/search"
	"github.com/google/uuid"
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

type recordingIndexer struct {
	indexed map[string]*search.Document
	deleted []string
}

func (r *recordingIndexer) IndexVideo(_ context.Context, doc *search.Document) error {
	r.indexed[doc.VideoID] = doc
	return nil
}

func (r *recordingIndexer) DeleteVideo(_ context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	delete(r.indexed, id)
	return nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*mq.ChangeEvent
}

func (r *recordingEmitter) PublishChangeEvent(_ context.Context, e *mq.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *gorm.DB
	svc       *FanoutService
	disp      *dispatcher.Dispatcher
	publisher *recordingPublisher
	indexer   *recordingIndexer
	emitter   *recordingEmitter
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	gdb := dbtest.New(t)
	policy := &retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        gdb,
		publisher: &recordingPublisher{},
		indexer:   &recordingIndexer{indexed: map[string]*search.Document{}},
		emitter:   &recordingEmitter{},
	}
	all := append([]Option{
		WithPublisher(f.publisher),
		WithIndexer(f.indexer),
		WithEmitter(f.emitter),
		WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	}, opts...)
	f.svc = NewFanoutService(counter.NewUpdater(gdb, policy, nil), all...)
	f.disp = dispatcher.New(nil)
	f.svc.Register(f.disp)
	return f
}

func (f *fixture) user(id string) {
	require.NoError(f.t, db.CreateUser(f.ctx, f.db, &model.User{ID: id, Email: id + "@foodtok.test"}))
}

func (f *fixture) video(v *model.Video) *model.Video {
	if v.Status == "" {
		v.Status = model.VideoStatusActive
	}
	if v.Privacy == "" {
		v.Privacy = model.PrivacyEveryone
	}
	require.NoError(f.t, db.CreateVideo(f.ctx, f.db, v))
	return v
}

func (f *fixture) comment(c *model.Comment) *model.Comment {
	require.NoError(f.t, db.CreateComment(f.ctx, f.db, c))
	return c
}

func (f *fixture) follow(follower, following string) {
	require.NoError(f.t, db.CreateFollowEdge(f.ctx, f.db, &model.FollowEdge{
		ID: model.FollowEdgeID(follower, following), FollowerID: follower, FollowingID: following,
	}))
}

func (f *fixture) event(path string, before, after interface{}) *mq.ChangeEvent {
	e, err := mq.NewChangeEvent(uuid.NewString(), path, before, after)
	require.NoError(f.t, err)
	return e
}

// handle 直接调用处理函数, 返回处理函数自身的错误
func (f *fixture) handle(e *mq.ChangeEvent) error {
	pattern, params, ok := f.disp.Match(e.Path)
	require.True(f.t, ok, e.Path)
	handlers := map[string]dispatcher.HandlerFunc{
		"videos/{videoId}":                                     f.svc.HandleVideo,
		"videos/{videoId}/likes/{userId}":                      f.svc.HandleVideoLike,
		"videos/{videoId}/comments/{commentId}":                f.svc.HandleComment,
		"videos/{videoId}/comments/{commentId}/likes/{userId}": f.svc.HandleCommentLike,
		"follows/{edgeId}":                                     f.svc.HandleFollowEdge,
	}
	return handlers[pattern](f.ctx, e, params)
}

func (f *fixture) getVideo(id string) *model.Video {
	v, err := db.GetVideo(f.ctx, f.db, id)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) getUser(id string) *model.User {
	u, err := db.GetUser(f.ctx, f.db, id)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) getComment(id string) *model.Comment {
	c, err := db.GetComment(f.ctx, f.db, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) notifications(recipient string) []*model.Notification {
	ns, err := db.ListNotifications(f.ctx, f.db, recipient)
	require.NoError(f.t, err)
	return ns
}

func (f *fixture) count(m interface{}, where string, args ...interface{}) int64 {
	var n int64
	require.NoError(f.t, f.db.Model(m).Where(where, args...).Count(&n).Error)
	return n
}

func (f *fixture) pending() []*model.ReconciliationTask {
	tasks, err := db.PendingTasks(f.ctx, f.db, 0, 1000)
	require.NoError(f.t, err)
	return tasks
}
