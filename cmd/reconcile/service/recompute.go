package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/constants"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/metrics"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type ReconcileService struct {
	updater  *counter.Updater
	db       *gorm.DB
	pageSize int
	limiter  *rate.Limiter
	now      func() time.Time
}

type Option func(s *ReconcileService)

// WithRateLimit 限制扫描时每秒处理的用户数, perSecond <= 0 表示不限制
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *ReconcileService) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst))
	}
}

func NewReconcileService(updater *counter.Updater, pageSize int, opts ...Option) *ReconcileService {
	if pageSize <= 0 || pageSize > constants.MaxWritesPerBatch {
		pageSize = constants.MaxWritesPerBatch
	}
	s := &ReconcileService{
		updater:  updater,
		db:       updater.DB(),
		pageSize: pageSize,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Outcome 一次重算的结果
type Outcome struct {
	Kind     model.ReconcileKind `json:"kind"`
	TargetID string              `json:"targetId"`
	OldValue int64               `json:"oldValue"`
	NewValue int64               `json:"newValue"`
	Changed  bool                `json:"changed"`
}

type sourceFunc func(ctx context.Context, tx *gorm.DB, id string) (int64, error)

// 每个计数字段的源数据查询
var sources = map[model.ReconcileKind]sourceFunc{
	model.KindUserTotalLikes:  db.SumActiveLikes,
	model.KindUserTotalVideos: db.CountActiveVideos,
	model.KindUserFollowers:   db.CountFollowers,
	model.KindUserFollowing:   db.CountFollowing,
	model.KindVideoLikes:      db.CountVideoLikes,
	model.KindVideoComments:   db.CountTopLevelComments,
	model.KindCommentLikes:    db.CountCommentLikes,
	model.KindCommentReplies:  db.CountReplies,
}

// UserKinds 全量扫描时对每个用户重算的字段
var UserKinds = []model.ReconcileKind{
	model.KindUserTotalLikes,
	model.KindUserTotalVideos,
	model.KindUserFollowers,
	model.KindUserFollowing,
}

func splitKind(kind model.ReconcileKind) (model.DocRef, string, error) {
	collection, field, ok := strings.Cut(string(kind), ".")
	if !ok {
		return model.DocRef{}, "", errno.RequestErr.WithMessage("unknown reconcile kind " + string(kind))
	}
	return model.DocRef{Collection: collection}, field, nil
}

// Recompute 从源数据重算一个计数并在不同时覆盖.
// 值有变化或 resolve 为 true 时写入 RepairRecord, checkedAt 必须在读取源数据之前确定.
func (s *ReconcileService) Recompute(ctx context.Context, kind model.ReconcileKind, targetID, source string, checkedAt time.Time, resolve bool) (*Outcome, error) {
	if kind == model.KindVideoLikeRefs {
		return s.cleanupLikeRefs(ctx, targetID, source, checkedAt, resolve)
	}
	query, ok := sources[kind]
	if !ok {
		return nil, errno.RequestErr.WithMessage("unknown reconcile kind " + string(kind))
	}
	ref, field, err := splitKind(kind)
	if err != nil {
		return nil, err
	}
	ref.ID = targetID
	out := &Outcome{Kind: kind, TargetID: targetID}
	op := &counter.Op{
		Name: "reconcile:" + string(kind),
		Fn: func(tx *counter.Tx) error {
			value, err := query(tx.Context(), tx.DB(), targetID)
			if err != nil {
				return err
			}
			old, changed, err := tx.Set(ref, field, value)
			if err != nil {
				return err
			}
			out.OldValue, out.NewValue, out.Changed = old, value, changed
			if !changed && !resolve {
				return nil
			}
			return db.CreateRepairRecord(tx.Context(), tx.DB(), &model.RepairRecord{
				Kind:      kind,
				TargetID:  targetID,
				OldValue:  old,
				NewValue:  value,
				Changed:   changed,
				Source:    source,
				CheckedAt: checkedAt,
			})
		},
	}
	if _, err := s.updater.Execute(ctx, op); err != nil {
		return nil, errors.WithMessage(err, fmt.Sprintf("recompute %s %s", kind, targetID))
	}
	if out.Changed {
		metrics.Repairs.WithLabelValues(string(kind), source).Inc()
		hlog.CtxInfof(ctx, "reconcile %s %s: %d -> %d (%s)", kind, targetID, out.OldValue, out.NewValue, source)
	}
	return out, nil
}

// cleanupLikeRefs 删除指向已删除或不存在视频的点赞记录, 每页一个事务
func (s *ReconcileService) cleanupLikeRefs(ctx context.Context, videoID, source string, checkedAt time.Time, resolve bool) (*Outcome, error) {
	out := &Outcome{Kind: model.KindVideoLikeRefs, TargetID: videoID}
	video, err := db.GetVideo(ctx, s.db, videoID)
	if err != nil && !errors.Is(err, errno.NotFoundErr) {
		return nil, err
	}
	orphaned := video == nil || video.Status == model.VideoStatusDeleted
	before, err := db.CountVideoLikes(ctx, s.db, videoID)
	if err != nil {
		return nil, err
	}
	out.OldValue, out.NewValue = before, before
	if orphaned {
		for {
			ids, err := db.ListVideoLikeIDs(ctx, s.db, videoID, s.pageSize)
			if err != nil {
				return nil, err
			}
			if len(ids) == 0 {
				break
			}
			var deleted int64
			err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				deleted, err = db.DeleteVideoLikes(ctx, tx, ids)
				return err
			})
			if err != nil {
				return nil, errors.WithMessage(err, "delete like refs of "+videoID)
			}
			out.NewValue -= deleted
		}
		out.NewValue = max(0, out.NewValue)
	}
	out.Changed = out.NewValue != out.OldValue
	if !out.Changed && !resolve {
		return out, nil
	}
	err = db.CreateRepairRecord(ctx, s.db, &model.RepairRecord{
		Kind:      out.Kind,
		TargetID:  videoID,
		OldValue:  out.OldValue,
		NewValue:  out.NewValue,
		Changed:   out.Changed,
		Source:    source,
		CheckedAt: checkedAt,
	})
	if err != nil {
		return nil, err
	}
	if out.Changed {
		metrics.Repairs.WithLabelValues(string(out.Kind), source).Inc()
		hlog.CtxInfof(ctx, "reconcile %s %s: removed %d orphaned like(s)", out.Kind, videoID, out.OldValue-out.NewValue)
	}
	return out, nil
}
