package service

import (
	"context"
	"time"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/metrics"
	"FoodTok.com/pkg/notify"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"
)

type RelationService struct {
	ctx       context.Context
	updater   *counter.Updater
	publisher notify.Publisher
	now       func() time.Time
}

// NewRelationService publisher 可以为 nil, 此时通知只落库
func NewRelationService(ctx context.Context, updater *counter.Updater, publisher notify.Publisher) *RelationService {
	return &RelationService{ctx: ctx, updater: updater, publisher: publisher, now: time.Now}
}

func checkPair(followerID, followingID string) error {
	if followerID == "" {
		return errno.UnauthenticatedErr
	}
	if followingID == "" {
		return errno.RequestErr.WithMessage("followingId is required")
	}
	if followerID == followingID {
		return errno.RequestErr.WithMessage("cannot follow yourself")
	}
	return nil
}

func requireUsers(tx *counter.Tx, ids ...string) error {
	for _, id := range ids {
		ok, err := db.UserExists(tx.Context(), tx.DB(), id)
		if err != nil {
			return err
		}
		if !ok {
			return errno.NotFoundErr.WithMessage("user " + id + " not found")
		}
	}
	return nil
}

// FollowUser 关注关系, 双方计数和关注通知在同一个事务内写入
func (s *RelationService) FollowUser(followerID, followingID string) error {
	if err := checkPair(followerID, followingID); err != nil {
		return err
	}
	var created *model.Notification
	op := &counter.Op{
		Name: "follow",
		Fn: func(tx *counter.Tx) error {
			created = nil
			if err := requireUsers(tx, followerID, followingID); err != nil {
				return err
			}
			edgeID := model.FollowEdgeID(followerID, followingID)
			if _, err := db.GetFollowEdge(tx.Context(), tx.DB(), edgeID); err == nil {
				return errno.AlreadyExistsErr.WithMessage("already following " + followingID)
			} else if !errors.Is(err, errno.NotFoundErr) {
				return err
			}
			if err := db.CreateFollowEdge(tx.Context(), tx.DB(), &model.FollowEdge{
				ID:          edgeID,
				FollowerID:  followerID,
				FollowingID: followingID,
				CreatedAt:   s.now().UTC(),
			}); err != nil {
				return err
			}
			if _, err := tx.Add(model.UserRef(followerID), model.FieldFollowingCount, 1); err != nil {
				return err
			}
			if _, err := tx.Add(model.UserRef(followingID), model.FieldFollowersCount, 1); err != nil {
				return err
			}
			n, err := notify.Build(notify.Follow{RecipientID: followingID, SourceUserID: followerID}, s.now())
			if err != nil {
				return err
			}
			if err := db.CreateNotification(tx.Context(), tx.DB(), n); err != nil {
				return err
			}
			created = n
			return nil
		},
	}
	if _, err := s.updater.Execute(s.ctx, op); err != nil {
		return errors.WithMessage(err, "follow "+followingID)
	}
	hlog.CtxInfof(s.ctx, "user %s followed %s", followerID, followingID)
	s.publish(created)
	return nil
}

// UnfollowUser 删除关注关系并回退双方计数, 关注通知保留
func (s *RelationService) UnfollowUser(followerID, followingID string) error {
	if err := checkPair(followerID, followingID); err != nil {
		return err
	}
	op := &counter.Op{
		Name: "unfollow",
		Fn: func(tx *counter.Tx) error {
			edgeID := model.FollowEdgeID(followerID, followingID)
			deleted, err := db.DeleteFollowEdge(tx.Context(), tx.DB(), edgeID)
			if err != nil {
				return err
			}
			if !deleted {
				return errno.NotFoundErr.WithMessage("not following " + followingID)
			}
			if err := decrementIfExists(tx, model.UserRef(followerID), model.FieldFollowingCount); err != nil {
				return err
			}
			return decrementIfExists(tx, model.UserRef(followingID), model.FieldFollowersCount)
		},
	}
	if _, err := s.updater.Execute(s.ctx, op); err != nil {
		return errors.WithMessage(err, "unfollow "+followingID)
	}
	hlog.CtxInfof(s.ctx, "user %s unfollowed %s", followerID, followingID)
	return nil
}

// 对方账户可能已经不存在, 边依然要能删除
func decrementIfExists(tx *counter.Tx, ref model.DocRef, field string) error {
	if _, err := tx.Add(ref, field, -1); err != nil && !errors.Is(err, errno.NotFoundErr) {
		return err
	}
	return nil
}

func (s *RelationService) publish(n *model.Notification) {
	if n == nil {
		return
	}
	metrics.NotificationsWritten.WithLabelValues(n.Type).Inc()
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(s.ctx, n); err != nil {
		hlog.CtxWarnf(s.ctx, "publish notification %s failed: %v", n.ID, err)
	}
}
