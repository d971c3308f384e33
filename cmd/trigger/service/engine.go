package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/metrics"
	"FoodTok.com/pkg/mq"
	"FoodTok.com/pkg/notify"
	"FoodTok.com/pkg/search"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"
)

// FanoutService 根据变更事件维护计数并生成通知
type FanoutService struct {
	updater   *counter.Updater
	db        *gorm.DB
	publisher notify.Publisher
	indexer   search.Indexer
	emitter   mq.ChangeEventPublisher
	chunkSize int
	now       func() time.Time
}

type Option func(s *FanoutService)

// WithPublisher 通知写入后推送给在线用户
func WithPublisher(p notify.Publisher) Option {
	return func(s *FanoutService) { s.publisher = p }
}

func WithIndexer(idx search.Indexer) Option {
	return func(s *FanoutService) { s.indexer = idx }
}

// WithEmitter 点赞改变 likesCount 后发布视频的更新事件
func WithEmitter(e mq.ChangeEventPublisher) Option {
	return func(s *FanoutService) { s.emitter = e }
}

func WithChunkSize(n int) Option {
	return func(s *FanoutService) {
		if n > 0 && n <= constants.MaxWritesPerBatch {
			s.chunkSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *FanoutService) { s.now = now }
}

func NewFanoutService(updater *counter.Updater, opts ...Option) *FanoutService {
	s := &FanoutService{
		updater:   updater,
		db:        updater.DB(),
		indexer:   search.NopIndexer{},
		chunkSize: constants.MaxWritesPerBatch,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register 把全部处理函数挂到 d 上
func (s *FanoutService) Register(d *dispatcher.Dispatcher) {
	d.Register("videos/{videoId}", s.HandleVideo)
	d.Register("videos/{videoId}/likes/{userId}", s.HandleVideoLike)
	d.Register("videos/{videoId}/comments/{commentId}", s.HandleComment)
	d.Register("videos/{videoId}/comments/{commentId}/likes/{userId}", s.HandleCommentLike)
	d.Register("follows/{edgeId}", s.HandleFollowEdge)
}

func decode(raw json.RawMessage, out interface{}) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return errno.RequestErr.WithMessage("malformed snapshot: " + err.Error())
	}
	return nil
}

// addNotification 在事务内写入一条通知, 自己通知自己时跳过
func (s *FanoutService) addNotification(tx *counter.Tx, v notify.Variant) (*model.Notification, error) {
	n, err := notify.Build(v, s.now())
	if errors.Is(err, notify.ErrSelfNotification) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := db.CreateNotification(tx.Context(), tx.DB(), n); err != nil {
		return nil, err
	}
	return n, nil
}

// publish 在提交之后调用, 推送失败只记录日志
func (s *FanoutService) publish(ctx context.Context, ns ...*model.Notification) {
	for _, n := range ns {
		if n == nil {
			continue
		}
		metrics.NotificationsWritten.WithLabelValues(n.Type).Inc()
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.Publish(ctx, n); err != nil {
			hlog.CtxWarnf(ctx, "publish notification %s to %s failed: %v", n.ID, n.RecipientID, err)
		}
	}
}

func logDegraded(ctx context.Context, what string, res *counter.Result) {
	if res != nil && res.Degraded {
		hlog.CtxWarnf(ctx, "%s: applied with degraded guarantee after %d attempts, repair queued", what, res.Attempts)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, errno.NotFoundErr)
}
