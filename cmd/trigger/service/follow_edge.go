package service

import (
	"context"
	"fmt"

	"FoodTok.com/cmd/model"
	"FoodTok.com/cmd/trigger/dispatcher"
	"FoodTok.com/pkg/counter"
	"FoodTok.com/pkg/dal/db"
	"FoodTok.com/pkg/errno"
	"FoodTok.com/pkg/mq"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// HandleFollowEdge 关注边由关注接口在事务中创建和删除, 这里只修复id与字段不一致的边.
// 只处理更新事件, 并且两个用户都必须存在且不同
func (s *FanoutService) HandleFollowEdge(ctx context.Context, e *mq.ChangeEvent, p dispatcher.Params) error {
	if e.Kind() != mq.ChangeUpdate {
		return nil
	}
	var edge model.FollowEdge
	if err := decode(e.After, &edge); err != nil {
		return err
	}
	edgeID := p["edgeId"]
	canonical := edge.CanonicalID()
	if edgeID == canonical {
		return nil
	}
	if edge.FollowerID == "" || edge.FollowingID == "" || edge.FollowerID == edge.FollowingID {
		return errno.InvariantErr.WithMessage(fmt.Sprintf("follow edge %s has follower %q and following %q", edgeID, edge.FollowerID, edge.FollowingID))
	}

	healed := false
	res, err := s.updater.Execute(ctx, &counter.Op{
		Name:     "follow.heal",
		EventKey: e.EventID,
		Fn: func(tx *counter.Tx) error {
			healed = false
			for _, uid := range []string{edge.FollowerID, edge.FollowingID} {
				ok, err := db.UserExists(ctx, tx.DB(), uid)
				if err != nil {
					return err
				}
				if !ok {
					return errno.NotFoundErr.WithMessage("user " + uid + " not found")
				}
			}
			wrong, err := db.GetFollowEdge(ctx, tx.DB(), edgeID)
			if isNotFound(err) {
				// 已经被修复过
				return nil
			}
			if err != nil {
				return err
			}
			if _, err := db.DeleteFollowEdge(ctx, tx.DB(), edgeID); err != nil {
				return err
			}
			healed = true
			if _, err := db.GetFollowEdge(ctx, tx.DB(), canonical); err == nil {
				return nil
			} else if !isNotFound(err) {
				return err
			}
			return db.CreateFollowEdge(ctx, tx.DB(), &model.FollowEdge{
				ID:          canonical,
				FollowerID:  edge.FollowerID,
				FollowingID: edge.FollowingID,
				CreatedAt:   wrong.CreatedAt,
			})
		},
	})
	if err != nil {
		return err
	}
	if !res.Applied || !healed {
		return nil
	}
	hlog.CtxWarnf(ctx, "follow edge %s re-keyed as %s", edgeID, canonical)
	// 边的数量可能已经变化, 两个用户的计数都交给修复任务重算
	if err := s.updater.Enqueue(ctx, "follow edge "+edgeID+" re-keyed",
		counter.Repair{Kind: model.KindUserFollowing, TargetID: edge.FollowerID},
		counter.Repair{Kind: model.KindUserFollowers, TargetID: edge.FollowingID},
	); err != nil {
		hlog.CtxErrorf(ctx, "enqueue follow recount for %s: %v", edgeID, err)
		return err
	}
	return nil
}
